package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type mockTicketRepository struct {
	CreateFunc         func(ctx context.Context, ticket *domain.Ticket) error
	UpdateFunc         func(ctx context.Context, ticket *domain.Ticket) error
	GetByIDFunc        func(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilterFunc func(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *mockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ticket)
	}
	return nil
}

func (m *mockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, ticket)
	}
	return nil
}

func (m *mockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTicketRepository) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if m.ListWithFilterFunc != nil {
		return m.ListWithFilterFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockTicketRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

type mockMessageRepository struct {
	CreateFunc         func(ctx context.Context, msg *domain.Message) error
	ListByTicketFunc   func(ctx context.Context, ticketID string) ([]domain.Message, error)
	MarkReadFunc       func(ctx context.Context, messageID string) error
	MarkThreadReadFunc func(ctx context.Context, ticketID string, fromAdmin bool) error
	CountUnreadFunc    func(ctx context.Context, ticketID string, fromAdmin bool) (int, error)
}

func (m *mockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	if m.ListByTicketFunc != nil {
		return m.ListByTicketFunc(ctx, ticketID)
	}
	return nil, nil
}

func (m *mockMessageRepository) MarkRead(ctx context.Context, messageID string) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, messageID)
	}
	return nil
}

func (m *mockMessageRepository) MarkThreadRead(ctx context.Context, ticketID string, fromAdmin bool) error {
	if m.MarkThreadReadFunc != nil {
		return m.MarkThreadReadFunc(ctx, ticketID, fromAdmin)
	}
	return nil
}

func (m *mockMessageRepository) CountUnread(ctx context.Context, ticketID string, fromAdmin bool) (int, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, ticketID, fromAdmin)
	}
	return 0, nil
}

type mockCategoryRepository struct {
	CreateFunc    func(ctx context.Context, category *domain.Category) error
	UpdateFunc    func(ctx context.Context, category *domain.Category) error
	GetByIDFunc   func(ctx context.Context, id string) (*domain.Category, error)
	GetByNameFunc func(ctx context.Context, name string) (*domain.Category, error)
	ListFunc      func(ctx context.Context, includeInactive bool) ([]domain.Category, error)
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, category)
	}
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, category)
	}
	return nil
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockCategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	if m.GetByNameFunc != nil {
		return m.GetByNameFunc(ctx, name)
	}
	return nil, nil
}

func (m *mockCategoryRepository) List(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, includeInactive)
	}
	return nil, nil
}

type mockUserRepository struct {
	CreateFunc     func(ctx context.Context, user *domain.User) error
	GetByIDFunc    func(ctx context.Context, id string) (*domain.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

type mockDispatcher struct {
	PublishFunc func(ctx context.Context, event events.Event) error
	Events      []events.Event
}

func (m *mockDispatcher) Publish(ctx context.Context, event events.Event) error {
	m.Events = append(m.Events, event)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	return nil
}

func (m *mockDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}
