package models

// Inbound event types, the closed set a connection may send.
const (
	EventRegister     = "register"
	EventFindMatch    = "find_match"
	EventCancelSearch = "cancel_search"
	EventSendMessage  = "send_message"
	EventTyping       = "typing"
	EventEndChat      = "end_chat"
	EventReport       = "report"
)

// Outbound event types.
const (
	EventAck            = "ack"
	EventMatchFound     = "match_found"
	EventReceiveMessage = "receive_message"
	EventPartnerTyping  = "partner_typing"
	EventChatEnded      = "chat_ended"
)

// PrefAny is the wildcard preference value meaning "no filter".
const PrefAny = "any"

// Preferences is the filter snapshot captured when a user requests a partner.
// It is immutable for the lifetime of the waiting entry.
type Preferences struct {
	Gender    string   `json:"gender,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// AnyGender reports whether the gender filter is a wildcard.
func (p Preferences) AnyGender() bool {
	return p.Gender == "" || p.Gender == PrefAny
}

// AnyInterests reports whether the interest filter is a wildcard.
func (p Preferences) AnyInterests() bool {
	if len(p.Interests) == 0 {
		return true
	}
	return len(p.Interests) == 1 && p.Interests[0] == PrefAny
}

// ClientEvent is one decoded inbound frame from a connection.
type ClientEvent struct {
	Type        string      `json:"type"`
	UserID      string      `json:"userId,omitempty"`
	PartnerID   string      `json:"partnerId,omitempty"`
	To          string      `json:"to,omitempty"`
	Message     string      `json:"message,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	IsTyping    bool        `json:"isTyping,omitempty"`
	Preferences Preferences `json:"preferences,omitempty"`
}

// ServerEvent is one outbound frame written to a connection.
type ServerEvent struct {
	Type string `json:"type"`

	// Ack fields: Op echoes the inbound event type being acknowledged.
	Op    string `json:"op,omitempty"`
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`

	PartnerID string `json:"partnerId,omitempty"`
	From      string `json:"from,omitempty"`
	Message   string `json:"message,omitempty"`
	IsTyping  bool   `json:"isTyping,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Ack builds a success acknowledgment for the given inbound event type.
func Ack(op string) ServerEvent {
	return ServerEvent{Type: EventAck, Op: op, OK: true}
}

// Nack builds a failure acknowledgment carrying the error text.
func Nack(op string, err error) ServerEvent {
	return ServerEvent{Type: EventAck, Op: op, OK: false, Error: err.Error()}
}
