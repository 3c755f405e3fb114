package handler

import "pairgo/backend/internal/chathub"

// Handler carries the hub and the signing secret for anonymous-id tokens.
type Handler struct {
	Hub       *chathub.Hub
	JWTSecret []byte
}

func NewHandler(hub *chathub.Hub, jwtSecret string) *Handler {
	return &Handler{Hub: hub, JWTSecret: []byte(jwtSecret)}
}
