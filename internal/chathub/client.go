package chathub

import "pairgo/backend/internal/models"

// Client is the interface for one transport-level connection. It abstracts
// the underlying communication mechanism so the hub can treat every
// connection handle uniformly.
type Client interface {
	// GetUserID returns the unique identifier for the user bound to the
	// connection at handshake time.
	GetUserID() string

	// GetSendChannel returns the channel on which the hub delivers events
	// intended for this connection. It is a send-only channel.
	GetSendChannel() chan<- models.ServerEvent

	// Run starts the client's read and write pumps, which handle incoming
	// and outgoing events.
	Run()

	// Close shuts down the connection. Safe to call more than once.
	Close()
}
