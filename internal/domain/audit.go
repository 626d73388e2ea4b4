package domain

import "time"

// AuditAction identifies what an audit entry records.
type AuditAction string

const (
	AuditTicketCreated  AuditAction = "ticket_created"
	AuditMessageAdded   AuditAction = "message_added"
	AuditStatusChanged  AuditAction = "status_changed"
	AuditTicketAssigned AuditAction = "ticket_assigned"
	AuditTicketDeleted  AuditAction = "ticket_deleted"
)

// AuditEntry is an immutable activity-log record written best-effort
// after ticket mutations.
type AuditEntry struct {
	ID        string
	TicketID  string
	ActorID   string
	ActorRole Role
	Action    AuditAction
	Detail    map[string]any
	CreatedAt time.Time
}
