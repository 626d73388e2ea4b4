package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// AuditService persists the activity log from domain events. Writes are
// fire-and-forget: a failed audit write is logged and swallowed.
type AuditService struct {
	entries    repository.AuditRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(entries repository.AuditRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{entries: entries, dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to all audited event types.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.record(domain.AuditTicketCreated))
	a.dispatcher.Subscribe(events.EventTicketMessageAdded, a.record(domain.AuditMessageAdded))
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.record(domain.AuditStatusChanged))
	a.dispatcher.Subscribe(events.EventTicketAssigned, a.record(domain.AuditTicketAssigned))
	a.dispatcher.Subscribe(events.EventTicketDeleted, a.record(domain.AuditTicketDeleted))
}

// ListForTicket returns the activity log for a ticket; staff only.
func (a *AuditService) ListForTicket(ctx context.Context, ticketID, actorID string, actorRole domain.Role, limit, offset int) ([]domain.AuditEntry, error) {
	if !policy.CanPerform(actorRole, policy.ActionViewAny, "", actorID) {
		return nil, apperrors.NewForbidden("staff role required")
	}
	result, err := a.entries.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func (a *AuditService) record(action domain.AuditAction) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		entry := &domain.AuditEntry{
			TicketID:  event.TicketID,
			ActorID:   event.Actor.UserID,
			ActorRole: event.Actor.Role,
			Action:    action,
			Detail:    payloadToDetail(event.Payload),
		}
		if err := a.entries.Create(ctx, entry); err != nil {
			a.logger.Warn("audit write failed",
				zap.String("ticket_id", event.TicketID),
				zap.String("action", string(action)),
				zap.Error(err))
		}
		return nil
	}
}

func payloadToDetail(payload any) map[string]any {
	switch p := payload.(type) {
	case events.TicketCreatedPayload:
		return map[string]any{"category_id": p.CategoryID, "priority": p.Priority, "title": p.Title}
	case events.TicketStatusChangedPayload:
		return map[string]any{"old_status": p.OldStatus, "new_status": p.NewStatus, "automatic": p.Automatic}
	case events.TicketAssignedPayload:
		detail := map[string]any{}
		if p.AssigneeID != nil {
			detail["assignee_id"] = *p.AssigneeID
		}
		return detail
	case events.TicketMessageAddedPayload:
		return map[string]any{"message_id": p.MessageID, "sender_id": p.SenderID, "is_admin": p.IsAdmin}
	case events.TicketDeletedPayload:
		return map[string]any{"title": p.Title}
	default:
		return map[string]any{}
	}
}
