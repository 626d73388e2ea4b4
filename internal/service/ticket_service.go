package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// TicketService coordinates the ticket lifecycle: creation, replies,
// assignment, status changes and deletion.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	MessageRepo  repository.MessageRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	CategoryID  string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Status     *domain.TicketStatus
	CategoryID *string
	Limit      int
	Offset     int
}

// Requester identifies the actor on owner-scoped reads. A nil requester
// means the staff path: no ownership restriction applies.
type Requester struct {
	ID   string
	Role domain.Role
}

// TicketDetails is the aggregate returned by detail lookups.
type TicketDetails struct {
	Ticket      *domain.Ticket
	Messages    []domain.Message
	UnreadCount int
}

// CreateTicket creates a ticket for a user. Status always starts open and
// priority defaults to medium.
func (s *TicketService) CreateTicket(ctx context.Context, creatorID string, creatorRole domain.Role, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if n := utf8.RuneCountInString(title); n < 5 || n > 255 {
		return nil, apperrors.NewValidationError("title must be 5-255 characters", map[string]any{"field": "title"})
	}
	if utf8.RuneCountInString(description) < 10 {
		return nil, apperrors.NewValidationError("description must be at least 10 characters", map[string]any{"field": "description"})
	}
	if input.Priority != "" && !input.Priority.IsValid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority", "value": input.Priority})
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("category does not exist", map[string]any{"field": "category_id"})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.IsActive {
		return nil, apperrors.NewValidationError("category is inactive", map[string]any{"field": "category_id"})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		CategoryID:  category.ID,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatorID:   creatorID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: creatorID, Role: creatorRole},
		Payload: events.TicketCreatedPayload{
			CategoryID: ticket.CategoryID,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// ListUserTickets returns tickets created by the given user.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		CreatorID:  &userID,
		CategoryID: filter.CategoryID,
		Status:     filter.Status,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAllTickets returns tickets across all users; staff only.
func (s *TicketService) ListAllTickets(ctx context.Context, actorID string, actorRole domain.Role, filter TicketListFilter) ([]domain.Ticket, error) {
	if !policy.CanPerform(actorRole, policy.ActionViewAny, "", actorID) {
		return nil, apperrors.NewForbidden("staff role required")
	}
	repoFilter := repository.TicketFilter{
		CategoryID: filter.CategoryID,
		Status:     filter.Status,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetDetails fetches a ticket with its thread. A nil requester takes the
// staff path. Non-owners get a not-found outcome rather than forbidden so
// ticket ids cannot be probed.
func (s *TicketService) GetDetails(ctx context.Context, ticketID string, requester *Requester) (*TicketDetails, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	unreadFromAdmin := true
	if requester != nil {
		if !policy.CanPerform(requester.Role, policy.ActionViewOwn, ticket.CreatorID, requester.ID) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		unreadFromAdmin = !requester.Role.IsStaff()
	} else {
		unreadFromAdmin = false
	}

	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	unread, err := s.messages.CountUnread(ctx, ticket.ID, unreadFromAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetails{Ticket: ticket, Messages: msgs, UnreadCount: unread}, nil
}

// Reply appends a message to the ticket thread and returns the complete
// thread after the append. A creator replying to a closed ticket reopens
// it; staff replies never change status.
func (s *TicketService) Reply(ctx context.Context, ticketID, actorID string, actorRole domain.Role, body string, attachments []string) ([]domain.Message, error) {
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n < 1 || n > 1000 {
		return nil, apperrors.NewValidationError("body must be 1-1000 characters", map[string]any{"field": "body"})
	}
	if len(attachments) > domain.MaxMessageAttachments {
		return nil, apperrors.NewValidationError("too many attachments", map[string]any{"field": "attachments", "max": domain.MaxMessageAttachments})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanPerform(actorRole, policy.ActionViewOwn, ticket.CreatorID, actorID) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}

	msg := &domain.Message{
		TicketID:    ticket.ID,
		SenderID:    actorID,
		Body:        body,
		IsAdmin:     actorRole.IsStaff(),
		Attachments: attachments,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.Status == domain.TicketStatusClosed && ticket.CreatorID == actorID && !actorRole.IsStaff() {
		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusOpen
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.publishEvent(ctx, events.Event{
			Type:        events.EventTicketStatusChanged,
			TicketID:    ticket.ID,
			Actor:       events.Actor{UserID: actorID, Role: actorRole},
			RecipientID: assigneeOrEmpty(ticket),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				Automatic: true,
			},
		})
	}

	recipient := ticket.CreatorID
	if !msg.IsAdmin {
		recipient = assigneeOrEmpty(ticket)
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketMessageAdded,
		TicketID:    ticket.ID,
		Actor:       events.Actor{UserID: actorID, Role: actorRole},
		RecipientID: recipient,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderID:    msg.SenderID,
			IsAdmin:     msg.IsAdmin,
			BodyPreview: bodyPreview(msg.Body, 120),
		},
	})

	thread, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return thread, nil
}

// Assign sets the ticket assignee; staff only. The assignee must hold a
// staff-capable role. Status is left untouched.
func (s *TicketService) Assign(ctx context.Context, ticketID, assigneeID, actorID string, actorRole domain.Role) (*domain.Ticket, error) {
	if !policy.CanPerform(actorRole, policy.ActionAssign, "", actorID) {
		return nil, apperrors.NewForbidden("staff role required")
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("assignee does not exist", map[string]any{"field": "assignee_id"})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Role.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must hold a staff role", map[string]any{"field": "assignee_id", "role": assignee.Role})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	ticket.AssigneeID = &assignee.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketAssigned,
		TicketID:    ticket.ID,
		Actor:       events.Actor{UserID: actorID, Role: actorRole},
		RecipientID: assignee.ID,
		Payload:     events.TicketAssignedPayload{AssigneeID: ticket.AssigneeID},
	})
	return ticket, nil
}

// ChangeStatus sets the ticket status; staff only. Any defined status may
// move to any other.
func (s *TicketService) ChangeStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, actorID string, actorRole domain.Role) (*domain.Ticket, error) {
	if !policy.CanPerform(actorRole, policy.ActionChangeStatus, "", actorID) {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if !newStatus.IsValid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"field": "status", "value": newStatus})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	oldStatus := ticket.Status
	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketStatusChanged,
		TicketID:    ticket.ID,
		Actor:       events.Actor{UserID: actorID, Role: actorRole},
		RecipientID: ticket.CreatorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// Delete removes a ticket and its thread; staff only.
func (s *TicketService) Delete(ctx context.Context, ticketID, actorID string, actorRole domain.Role) error {
	if !policy.CanPerform(actorRole, policy.ActionDeleteTicket, "", actorID) {
		return apperrors.NewForbidden("staff role required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actorID, Role: actorRole},
		Payload:  events.TicketDeletedPayload{Title: ticket.Title},
	})
	return nil
}

// MarkMessageRead flips a message's read flag. Idempotent: marking an
// already-read message succeeds with no state change.
func (s *TicketService) MarkMessageRead(ctx context.Context, ticketID, messageID, actorID string, actorRole domain.Role) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if !policy.CanPerform(actorRole, policy.ActionViewOwn, ticket.CreatorID, actorID) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err := s.messages.MarkRead(ctx, messageID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("message", map[string]any{"message_id": messageID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// MarkThreadRead marks the counterpart's messages in the ticket as read,
// called when a participant opens the thread.
func (s *TicketService) MarkThreadRead(ctx context.Context, ticketID, actorID string, actorRole domain.Role) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if !policy.CanPerform(actorRole, policy.ActionViewOwn, ticket.CreatorID, actorID) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	// staff read the user's messages, users read staff messages
	fromAdmin := !actorRole.IsStaff()
	if err := s.messages.MarkThreadRead(ctx, ticket.ID, fromAdmin); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func assigneeOrEmpty(ticket *domain.Ticket) string {
	if ticket.AssigneeID != nil {
		return *ticket.AssigneeID
	}
	return ""
}

func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
