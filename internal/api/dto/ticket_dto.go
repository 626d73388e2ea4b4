package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,min=5,max=255"`
	Description string                `json:"description" validate:"required,min=10"`
	CategoryID  string                `json:"category_id" validate:"required"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body        string   `json:"body" validate:"required,min=1,max=1000"`
	Attachments []string `json:"attachments" validate:"omitempty,max=5,dive,uri"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required,oneof=open pending in_progress closed"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	CategoryID string                `json:"category_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Status     domain.TicketStatus   `json:"status"`
	CreatorID  string                `json:"creator_id"`
	AssigneeID *string               `json:"assignee_id"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	CategoryID  string                `json:"category_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatorID   string                `json:"creator_id"`
	AssigneeID  *string               `json:"assignee_id"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	UnreadCount int                   `json:"unread_count"`
	Messages    []MessageResponse     `json:"messages"`
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	Body        string    `json:"body"`
	IsAdmin     bool      `json:"is_admin"`
	IsRead      bool      `json:"is_read"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditEntryResponse represents an activity-log row.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id"`
	ActorRole domain.Role    `json:"actor_role"`
	Action    string         `json:"action"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}
