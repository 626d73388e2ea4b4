package domain

import "time"

// MaxMessageAttachments caps the opaque attachment URIs per message.
const MaxMessageAttachments = 5

// Message is one entry in a ticket thread. Messages are immutable once
// created; only the read flag transitions, and only false to true.
type Message struct {
	ID          string
	TicketID    string
	SenderID    string
	Body        string
	IsAdmin     bool
	IsRead      bool
	Attachments []string
	CreatedAt   time.Time
}
