package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

func activeCategory() *domain.Category {
	return &domain.Category{ID: "cat-1", Name: "Billing", Description: "Payment and invoice issues here", IsActive: true}
}

// threadStore backs the message repository mock with an in-memory thread.
type threadStore struct {
	messages []domain.Message
}

func (ts *threadStore) repo() *mockMessageRepository {
	return &mockMessageRepository{
		CreateFunc: func(ctx context.Context, msg *domain.Message) error {
			msg.ID = fmt.Sprintf("msg-%d", len(ts.messages)+1)
			ts.messages = append(ts.messages, *msg)
			return nil
		},
		ListByTicketFunc: func(ctx context.Context, ticketID string) ([]domain.Message, error) {
			return append([]domain.Message{}, ts.messages...), nil
		},
	}
}

func newTestService(tickets *mockTicketRepository, messages *mockMessageRepository, categories *mockCategoryRepository, users *mockUserRepository, dispatcher *mockDispatcher) *TicketService {
	if tickets == nil {
		tickets = &mockTicketRepository{}
	}
	if messages == nil {
		messages = &mockMessageRepository{}
	}
	if categories == nil {
		categories = &mockCategoryRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Category, error) {
				return activeCategory(), nil
			},
		}
	}
	if users == nil {
		users = &mockUserRepository{}
	}
	if dispatcher == nil {
		dispatcher = &mockDispatcher{}
	}
	return NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		MessageRepo:  messages,
		CategoryRepo: categories,
		UserRepo:     users,
		Dispatcher:   dispatcher,
	})
}

func TestCreateTicket_Defaults(t *testing.T) {
	var saved *domain.Ticket
	tickets := &mockTicketRepository{
		CreateFunc: func(ctx context.Context, ticket *domain.Ticket) error {
			ticket.ID = "tic-1"
			saved = ticket
			return nil
		},
	}
	svc := newTestService(tickets, nil, nil, nil, nil)

	ticket, err := svc.CreateTicket(context.Background(), "user-1", domain.RoleUser, TicketCreateInput{
		Title:       "Cannot log in",
		Description: "Password reset link expired twice",
		CategoryID:  "cat-1",
	})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "user-1", ticket.CreatorID)
}

func TestCreateTicket_EventCarriesActorRole(t *testing.T) {
	tickets := &mockTicketRepository{
		CreateFunc: func(ctx context.Context, ticket *domain.Ticket) error {
			ticket.ID = "tic-1"
			return nil
		},
	}
	dispatcher := &mockDispatcher{}
	svc := newTestService(tickets, nil, nil, nil, dispatcher)

	_, err := svc.CreateTicket(context.Background(), "staff-1", domain.RoleSupport, TicketCreateInput{
		Title:       "Printer offline",
		Description: "Third floor printer is unreachable",
		CategoryID:  "cat-1",
	})

	require.NoError(t, err)
	require.Len(t, dispatcher.Events, 1)
	assert.Equal(t, events.EventTicketCreated, dispatcher.Events[0].Type)
	assert.Equal(t, "staff-1", dispatcher.Events[0].Actor.UserID)
	assert.Equal(t, domain.RoleSupport, dispatcher.Events[0].Actor.Role)
}

func TestCreateTicket_ExplicitPriority(t *testing.T) {
	tickets := &mockTicketRepository{
		CreateFunc: func(ctx context.Context, ticket *domain.Ticket) error {
			ticket.ID = "tic-1"
			return nil
		},
	}
	svc := newTestService(tickets, nil, nil, nil, nil)

	ticket, err := svc.CreateTicket(context.Background(), "user-1", domain.RoleUser, TicketCreateInput{
		Title:       "Cannot log in",
		Description: "Password reset link expired twice",
		CategoryID:  "cat-1",
		Priority:    domain.TicketPriorityHigh,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestCreateTicket_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input TicketCreateInput
	}{
		{"short title", TicketCreateInput{Title: "abc", Description: "long enough description", CategoryID: "cat-1"}},
		{"short description", TicketCreateInput{Title: "Valid title", Description: "short", CategoryID: "cat-1"}},
		{"unknown priority", TicketCreateInput{Title: "Valid title", Description: "long enough description", CategoryID: "cat-1", Priority: "critical"}},
	}

	svc := newTestService(nil, nil, nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTicket(context.Background(), "user-1", domain.RoleUser, tt.input)
			require.Error(t, err)
			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
		})
	}
}

func TestCreateTicket_InactiveCategory(t *testing.T) {
	categories := &mockCategoryRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Category, error) {
			category := activeCategory()
			category.IsActive = false
			return category, nil
		},
	}
	svc := newTestService(nil, nil, categories, nil, nil)

	_, err := svc.CreateTicket(context.Background(), "user-1", domain.RoleUser, TicketCreateInput{
		Title:       "Cannot log in",
		Description: "Password reset link expired twice",
		CategoryID:  "cat-1",
	})

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestReply_CreatorReopensClosedTicket(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1", Status: domain.TicketStatusClosed}
	var updatedStatus domain.TicketStatus
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
		UpdateFunc: func(ctx context.Context, tk *domain.Ticket) error {
			updatedStatus = tk.Status
			return nil
		},
	}
	store := &threadStore{}
	dispatcher := &mockDispatcher{}
	svc := newTestService(tickets, store.repo(), nil, nil, dispatcher)

	thread, err := svc.Reply(context.Background(), "tic-1", "user-1", domain.RoleUser, "Still broken", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updatedStatus)
	require.Len(t, thread, 1)
	assert.Equal(t, "Still broken", thread[0].Body)
	assert.False(t, thread[0].IsAdmin)

	var sawAutomatic bool
	for _, event := range dispatcher.Events {
		if event.Type == events.EventTicketStatusChanged {
			payload := event.Payload.(events.TicketStatusChangedPayload)
			assert.True(t, payload.Automatic)
			sawAutomatic = true
		}
	}
	assert.True(t, sawAutomatic, "expected automatic status change event")
}

func TestReply_StaffDoesNotReopen(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1", Status: domain.TicketStatusClosed}
	updated := false
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
		UpdateFunc: func(ctx context.Context, tk *domain.Ticket) error {
			updated = true
			return nil
		},
	}
	store := &threadStore{}
	svc := newTestService(tickets, store.repo(), nil, nil, nil)

	thread, err := svc.Reply(context.Background(), "tic-1", "staff-1", domain.RoleSupport, "Checking this now", nil)

	require.NoError(t, err)
	assert.False(t, updated, "staff reply must not change status")
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	require.Len(t, thread, 1)
	assert.True(t, thread[0].IsAdmin)
}

func TestReply_ReturnsFullThread(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1", Status: domain.TicketStatusOpen}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
	}
	store := &threadStore{}
	svc := newTestService(tickets, store.repo(), nil, nil, nil)

	_, err := svc.Reply(context.Background(), "tic-1", "user-1", domain.RoleUser, "First message", nil)
	require.NoError(t, err)
	thread, err := svc.Reply(context.Background(), "tic-1", "user-1", domain.RoleUser, "Second message", nil)
	require.NoError(t, err)

	require.Len(t, thread, 2)
	assert.Equal(t, "First message", thread[0].Body)
	assert.Equal(t, "Second message", thread[1].Body)
}

func TestReply_ValidationErrors(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)

	_, err := svc.Reply(context.Background(), "tic-1", "user-1", domain.RoleUser, "   ", nil)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	attachments := []string{"a", "b", "c", "d", "e", "f"}
	_, err = svc.Reply(context.Background(), "tic-1", "user-1", domain.RoleUser, "valid body", attachments)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestReply_NonOwnerGetsNotFound(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1", Status: domain.TicketStatusOpen}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
	}
	svc := newTestService(tickets, nil, nil, nil, nil)

	_, err := svc.Reply(context.Background(), "tic-1", "user-2", domain.RoleUser, "Hello there", nil)

	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestGetDetails_OwnerDisguise(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1", Status: domain.TicketStatusOpen}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) {
			if id == "tic-1" {
				return ticket, nil
			}
			return nil, pgx.ErrNoRows
		},
	}
	svc := newTestService(tickets, nil, nil, nil, nil)

	// non-owner gets the same outcome as a missing ticket
	_, errForeign := svc.GetDetails(context.Background(), "tic-1", &Requester{ID: "user-2", Role: domain.RoleUser})
	_, errMissing := svc.GetDetails(context.Background(), "tic-404", &Requester{ID: "user-2", Role: domain.RoleUser})

	require.Error(t, errForeign)
	require.Error(t, errMissing)
	assert.Equal(t, apperrors.ToDomainError(errMissing).Code, apperrors.ToDomainError(errForeign).Code)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(errForeign).Code)

	// owner sees the ticket
	details, err := svc.GetDetails(context.Background(), "tic-1", &Requester{ID: "user-1", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "tic-1", details.Ticket.ID)

	// nil requester takes the staff path
	details, err = svc.GetDetails(context.Background(), "tic-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "tic-1", details.Ticket.ID)
}

func TestAssign_Success(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1", Status: domain.TicketStatusPending}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
	}
	users := &mockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Role: domain.RoleSupport}, nil
		},
	}
	svc := newTestService(tickets, nil, nil, users, nil)

	result, err := svc.Assign(context.Background(), "tic-1", "staff-2", "staff-1", domain.RoleAdmin)

	require.NoError(t, err)
	require.NotNil(t, result.AssigneeID)
	assert.Equal(t, "staff-2", *result.AssigneeID)
	assert.Equal(t, domain.TicketStatusPending, result.Status, "assignment must not change status")
}

func TestAssign_RequiresStaffActor(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)

	_, err := svc.Assign(context.Background(), "tic-1", "staff-2", "user-1", domain.RoleUser)

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestAssign_RejectsNonStaffAssignee(t *testing.T) {
	users := &mockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Role: domain.RoleUser}, nil
		},
	}
	svc := newTestService(nil, nil, nil, users, nil)

	_, err := svc.Assign(context.Background(), "tic-1", "user-2", "staff-1", domain.RoleAdmin)

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestChangeStatus(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1", Status: domain.TicketStatusClosed}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
	}
	svc := newTestService(tickets, nil, nil, nil, nil)

	t.Run("staff may move any status to any other", func(t *testing.T) {
		result, err := svc.ChangeStatus(context.Background(), "tic-1", domain.TicketStatusInProgress, "staff-1", domain.RoleSupport)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, result.Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := svc.ChangeStatus(context.Background(), "tic-1", "archived", "staff-1", domain.RoleSupport)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	t.Run("non-staff forbidden", func(t *testing.T) {
		_, err := svc.ChangeStatus(context.Background(), "tic-1", domain.TicketStatusClosed, "user-1", domain.RoleUser)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})
}

func TestMarkMessageRead(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1"}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
	}
	calls := 0
	messages := &mockMessageRepository{
		MarkReadFunc: func(ctx context.Context, messageID string) error {
			calls++
			return nil
		},
	}
	svc := newTestService(tickets, messages, nil, nil, nil)

	require.NoError(t, svc.MarkMessageRead(context.Background(), "tic-1", "msg-1", "user-1", domain.RoleUser))
	require.NoError(t, svc.MarkMessageRead(context.Background(), "tic-1", "msg-1", "user-1", domain.RoleUser))
	assert.Equal(t, 2, calls)
}

func TestMarkMessageRead_NotFound(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1"}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
	}
	messages := &mockMessageRepository{
		MarkReadFunc: func(ctx context.Context, messageID string) error {
			return pgx.ErrNoRows
		},
	}
	svc := newTestService(tickets, messages, nil, nil, nil)

	err := svc.MarkMessageRead(context.Background(), "tic-1", "msg-404", "user-1", domain.RoleUser)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestMarkMessageRead_NonOwnerGetsNotFound(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1"}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
	}
	svc := newTestService(tickets, nil, nil, nil, nil)

	err := svc.MarkMessageRead(context.Background(), "tic-1", "msg-1", "user-2", domain.RoleUser)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestDelete(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", Title: "Cannot log in", CreatorID: "user-1"}
	deleted := false
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
		DeleteFunc: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	dispatcher := &mockDispatcher{}
	svc := newTestService(tickets, nil, nil, nil, dispatcher)

	t.Run("non-staff forbidden", func(t *testing.T) {
		err := svc.Delete(context.Background(), "tic-1", "user-1", domain.RoleUser)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
		assert.False(t, deleted)
	})

	t.Run("staff deletes", func(t *testing.T) {
		require.NoError(t, svc.Delete(context.Background(), "tic-1", "staff-1", domain.RoleAdmin))
		assert.True(t, deleted)
		require.NotEmpty(t, dispatcher.Events)
		assert.Equal(t, events.EventTicketDeleted, dispatcher.Events[len(dispatcher.Events)-1].Type)
	})
}

func TestMarkThreadRead_Sides(t *testing.T) {
	ticket := &domain.Ticket{ID: "tic-1", CreatorID: "user-1"}
	tickets := &mockTicketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Ticket, error) { return ticket, nil },
	}
	var gotFromAdmin *bool
	messages := &mockMessageRepository{
		MarkThreadReadFunc: func(ctx context.Context, ticketID string, fromAdmin bool) error {
			gotFromAdmin = &fromAdmin
			return nil
		},
	}
	svc := newTestService(tickets, messages, nil, nil, nil)

	require.NoError(t, svc.MarkThreadRead(context.Background(), "tic-1", "user-1", domain.RoleUser))
	require.NotNil(t, gotFromAdmin)
	assert.True(t, *gotFromAdmin, "a user reads staff messages")

	require.NoError(t, svc.MarkThreadRead(context.Background(), "tic-1", "staff-1", domain.RoleSupport))
	assert.False(t, *gotFromAdmin, "staff read user messages")
}

func TestBodyPreview(t *testing.T) {
	tests := []struct {
		name string
		body string
		max  int
		want string
	}{
		{"short body untouched", "all good", 120, "all good"},
		{"ascii truncated with ellipsis", strings.Repeat("a", 10), 8, "aaaaa..."},
		{"multi-byte runes kept whole", strings.Repeat("é", 10), 8, "ééééé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bodyPreview(tt.body, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
