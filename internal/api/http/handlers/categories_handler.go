package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// CategoriesHandler serves the public category list and the staff
// management surface. Writes invalidate the cached list responses.
type CategoriesHandler struct {
	service *service.CategoryService
	cache   *cache.ResponseCache
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categoryService *service.CategoryService, responseCache *cache.ResponseCache) *CategoriesHandler {
	return &CategoriesHandler{service: categoryService, cache: responseCache}
}

// ListActive GET /categories.
func (h *CategoriesHandler) ListActive(c *fiber.Ctx) error {
	categories, err := h.service.List(c.UserContext(), false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponses(categories)})
}

// List GET /admin/categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	includeInactive := c.QueryBool("include_inactive", false)
	categories, err := h.service.List(c.UserContext(), includeInactive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponses(categories)})
}

// Create POST /admin/categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	category, err := h.service.Create(c.UserContext(), principal.User.ID, principal.Role, req.Name, req.Description)
	if err != nil {
		return err
	}
	h.invalidateCaches(c)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// Update PATCH /admin/categories/:id.
func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	category, err := h.service.Update(c.UserContext(), principal.User.ID, principal.Role, c.Params("id"), service.CategoryUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	h.invalidateCaches(c)
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// Delete DELETE /admin/categories/:id. Deactivates, never removes.
func (h *CategoriesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.SoftDelete(c.UserContext(), principal.User.ID, principal.Role, c.Params("id")); err != nil {
		return err
	}
	h.invalidateCaches(c)
	return c.SendStatus(http.StatusNoContent)
}

func (h *CategoriesHandler) invalidateCaches(c *fiber.Ctx) {
	h.cache.Invalidate(c.UserContext(), "/categories*")
	h.cache.Invalidate(c.UserContext(), "/admin/categories*")
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		IsActive:    category.IsActive,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

func categoryResponses(categories []domain.Category) []dto.CategoryResponse {
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return items
}
