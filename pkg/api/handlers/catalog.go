package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/inversionreal/storefront/pkg/api/errors"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/labstack/echo/v4"
)

// CatalogHandler serves memberships and courses
type CatalogHandler struct {
	store     *store.Store
	validator *validator.Validate
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(st *store.Store) *CatalogHandler {
	return &CatalogHandler{
		store:     st,
		validator: validator.New(),
	}
}

// ListMemberships godoc
// @Summary List memberships
// @Description Active memberships for the public catalog. Admins get every membership.
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]interface{} "memberships and total"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /memberships [get]
// @Router /admin/memberships [get]
func (h *CatalogHandler) ListMemberships(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	activeOnly := c.Get("admin_id") == nil
	memberships, err := h.store.ListMemberships(ctx, activeOnly)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"memberships": memberships,
		"total":       len(memberships),
	})
}

// GetMembership godoc
// @Summary Get membership
// @Tags Catalog
// @Produce json
// @Param id path int true "Membership ID"
// @Success 200 {object} store.Membership
// @Failure 400 {object} models.ErrorResponse "Invalid id"
// @Failure 404 {object} models.ErrorResponse "Membership not found"
// @Router /memberships/{id} [get]
func (h *CatalogHandler) GetMembership(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return apierrors.BadRequestError(c, "invalid_id", "Membership id must be a positive integer")
	}

	m, err := h.store.GetMembership(c.Request().Context(), id)
	if err != nil {
		return apierrors.StoreError(c, err, "membership")
	}
	return c.JSON(http.StatusOK, m)
}

// CreateMembership godoc
// @Summary Create membership
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.MembershipRequest true "Membership data"
// @Success 201 {object} store.Membership
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /admin/memberships [post]
func (h *CatalogHandler) CreateMembership(c echo.Context) error {
	var req models.MembershipRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	m, err := h.store.CreateMembership(c.Request().Context(), req.ToInput())
	if err != nil {
		return apierrors.StoreError(c, err, "membership")
	}
	return c.JSON(http.StatusCreated, m)
}

// UpdateMembership godoc
// @Summary Update membership
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Membership ID"
// @Param request body models.MembershipRequest true "Membership data"
// @Success 200 {object} store.Membership
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Membership not found"
// @Router /admin/memberships/{id} [put]
func (h *CatalogHandler) UpdateMembership(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return apierrors.BadRequestError(c, "invalid_id", "Membership id must be a positive integer")
	}

	var req models.MembershipRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	m, err := h.store.UpdateMembership(c.Request().Context(), id, req.ToInput())
	if err != nil {
		return apierrors.StoreError(c, err, "membership")
	}
	return c.JSON(http.StatusOK, m)
}

// DeleteMembership godoc
// @Summary Delete membership
// @Description Memberships with subscriptions cannot be deleted, deactivate them instead
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "Membership ID"
// @Success 204 "Deleted"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Membership not found"
// @Failure 409 {object} models.ErrorResponse "Membership in use"
// @Router /admin/memberships/{id} [delete]
func (h *CatalogHandler) DeleteMembership(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return apierrors.BadRequestError(c, "invalid_id", "Membership id must be a positive integer")
	}

	if err := h.store.DeleteMembership(c.Request().Context(), id); err != nil {
		return apierrors.StoreError(c, err, "membership")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCourses godoc
// @Summary List courses
// @Description Active courses for the public catalog. Admins get every course.
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]interface{} "courses and total"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /courses [get]
// @Router /admin/courses [get]
func (h *CatalogHandler) ListCourses(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	activeOnly := c.Get("admin_id") == nil
	courses, err := h.store.ListCourses(ctx, activeOnly)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"courses": courses,
		"total":   len(courses),
	})
}

// GetCourse godoc
// @Summary Get course
// @Tags Catalog
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} store.Course
// @Failure 400 {object} models.ErrorResponse "Invalid id"
// @Failure 404 {object} models.ErrorResponse "Course not found"
// @Router /courses/{id} [get]
func (h *CatalogHandler) GetCourse(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return apierrors.BadRequestError(c, "invalid_id", "Course id must be a positive integer")
	}

	course, err := h.store.GetCourse(c.Request().Context(), id)
	if err != nil {
		return apierrors.StoreError(c, err, "course")
	}
	return c.JSON(http.StatusOK, course)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CourseRequest true "Course data"
// @Success 201 {object} store.Course
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /admin/courses [post]
func (h *CatalogHandler) CreateCourse(c echo.Context) error {
	var req models.CourseRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	course, err := h.store.CreateCourse(c.Request().Context(), req.ToInput())
	if err != nil {
		return apierrors.StoreError(c, err, "course")
	}
	return c.JSON(http.StatusCreated, course)
}

// UpdateCourse godoc
// @Summary Update course
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body models.CourseRequest true "Course data"
// @Success 200 {object} store.Course
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Course not found"
// @Router /admin/courses/{id} [put]
func (h *CatalogHandler) UpdateCourse(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return apierrors.BadRequestError(c, "invalid_id", "Course id must be a positive integer")
	}

	var req models.CourseRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	course, err := h.store.UpdateCourse(c.Request().Context(), id, req.ToInput())
	if err != nil {
		return apierrors.StoreError(c, err, "course")
	}
	return c.JSON(http.StatusOK, course)
}

// DeleteCourse godoc
// @Summary Delete course
// @Description Courses with orders are deactivated instead of deleted
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 204 "Deleted or deactivated"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Course not found"
// @Router /admin/courses/{id} [delete]
func (h *CatalogHandler) DeleteCourse(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return apierrors.BadRequestError(c, "invalid_id", "Course id must be a positive integer")
	}

	if err := h.store.DeleteCourse(c.Request().Context(), id); err != nil {
		return apierrors.StoreError(c, err, "course")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCourseOrders godoc
// @Summary List course orders
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} map[string]interface{} "orders and total"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Course not found"
// @Router /admin/courses/{id}/orders [get]
func (h *CatalogHandler) ListCourseOrders(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return apierrors.BadRequestError(c, "invalid_id", "Course id must be a positive integer")
	}

	ctx := c.Request().Context()
	if _, err := h.store.GetCourse(ctx, id); err != nil {
		return apierrors.StoreError(c, err, "course")
	}

	orders, err := h.store.ListOrdersByCourse(ctx, id)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  len(orders),
	})
}
