package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// CategoryService manages ticket categories. Removal is always a soft
// delete so tickets never lose their category reference.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CategoryUpdateInput carries partial category updates.
type CategoryUpdateInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// Create adds a category; staff only. Names collide case-sensitively.
func (s *CategoryService) Create(ctx context.Context, actorID string, actorRole domain.Role, name, description string) (*domain.Category, error) {
	if !policy.CanPerform(actorRole, policy.ActionManageCategories, "", actorID) {
		return nil, apperrors.NewForbidden("staff role required")
	}
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if err := validateCategoryFields(name, description); err != nil {
		return nil, err
	}

	if existing, err := s.categories.GetByName(ctx, name); err == nil && existing != nil {
		return nil, apperrors.NewConflict("category name already exists", map[string]any{"name": name})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	category := &domain.Category{
		Name:        name,
		Description: description,
		IsActive:    true,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// List returns categories ordered by name. Inactive rows are included
// only when requested.
func (s *CategoryService) List(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// Get resolves a category by id, falling back to name lookup. The id
// column is a uuid, so anything that does not parse as one goes straight
// to the name lookup instead of tripping a type error in the database.
func (s *CategoryService) Get(ctx context.Context, identifier string) (*domain.Category, error) {
	if _, err := uuid.Parse(identifier); err == nil {
		category, err := s.categories.GetByID(ctx, identifier)
		if err == nil {
			return category, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}
	category, err := s.categories.GetByName(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"identifier": identifier})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// Update applies a partial update; staff only.
func (s *CategoryService) Update(ctx context.Context, actorID string, actorRole domain.Role, identifier string, input CategoryUpdateInput) (*domain.Category, error) {
	if !policy.CanPerform(actorRole, policy.ActionManageCategories, "", actorID) {
		return nil, apperrors.NewForbidden("staff role required")
	}
	category, err := s.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != category.Name {
			if existing, err := s.categories.GetByName(ctx, name); err == nil && existing != nil {
				return nil, apperrors.NewConflict("category name already exists", map[string]any{"name": name})
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.MapError(err)
			}
		}
		category.Name = name
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}
	if err := validateCategoryFields(category.Name, category.Description); err != nil {
		return nil, err
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"identifier": identifier})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// SoftDelete deactivates a category; staff only. Tickets referencing it
// are untouched.
func (s *CategoryService) SoftDelete(ctx context.Context, actorID string, actorRole domain.Role, identifier string) error {
	if !policy.CanPerform(actorRole, policy.ActionManageCategories, "", actorID) {
		return apperrors.NewForbidden("staff role required")
	}
	category, err := s.Get(ctx, identifier)
	if err != nil {
		return err
	}
	if !category.IsActive {
		return nil
	}
	category.IsActive = false
	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("category", map[string]any{"identifier": identifier})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func validateCategoryFields(name, description string) error {
	if n := utf8.RuneCountInString(name); n < 3 || n > 100 {
		return apperrors.NewValidationError("name must be 3-100 characters", map[string]any{"field": "name"})
	}
	if n := utf8.RuneCountInString(description); n < 10 || n > 500 {
		return apperrors.NewValidationError("description must be 10-500 characters", map[string]any{"field": "description"})
	}
	return nil
}
