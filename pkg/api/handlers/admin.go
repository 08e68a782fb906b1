package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apierrors "github.com/inversionreal/storefront/pkg/api/errors"
	"github.com/inversionreal/storefront/pkg/export"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/labstack/echo/v4"
)

// ContractArchive reads archived contract PDFs
type ContractArchive interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// AdminHandler serves subscription and contract records to admins
type AdminHandler struct {
	store   *store.Store
	archive ContractArchive
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(st *store.Store) *AdminHandler {
	return &AdminHandler{store: st}
}

// SetArchive enables reading contracts back from object storage
func (h *AdminHandler) SetArchive(a ContractArchive) {
	h.archive = a
}

// ListSubscriptions godoc
// @Summary List all subscriptions
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "subscriptions and total"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /admin/subscriptions [get]
func (h *AdminHandler) ListSubscriptions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	subs, err := h.store.ListSubscriptions(ctx)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": subs,
		"total":         len(subs),
	})
}

// ExportSubscriptions godoc
// @Summary Export subscriptions
// @Description Download every subscription as xlsx, or csv with format=csv
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "xlsx (default) or csv"
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse "Invalid format"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /admin/subscriptions/export [get]
func (h *AdminHandler) ExportSubscriptions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	subs, err := h.store.ListSubscriptions(ctx)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	memberships, err := h.store.ListMemberships(ctx, false)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	names := make(map[int]string, len(memberships))
	for _, m := range memberships {
		names[m.ID] = m.Name
	}

	var (
		data        []byte
		contentType string
		ext         string
	)
	switch c.QueryParam("format") {
	case "", "xlsx":
		data, err = export.SubscriptionsXLSX(subs, names)
		contentType, ext = export.ContentTypeXLSX, "xlsx"
	case "csv":
		data, err = export.SubscriptionsCSV(subs, names)
		contentType, ext = export.ContentTypeCSV, "csv"
	default:
		return apierrors.BadRequestError(c, "invalid_format", "Format must be xlsx or csv")
	}
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	filename := fmt.Sprintf("suscripciones-%s.%s", time.Now().UTC().Format("2006-01-02"), ext)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, data)
}

// ContractPDF godoc
// @Summary Download contract
// @Tags Admin
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Contract ID"
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse "Invalid id"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Contract not found"
// @Router /admin/contracts/{id}/pdf [get]
func (h *AdminHandler) ContractPDF(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return apierrors.BadRequestError(c, "invalid_id", "Contract id must be a positive integer")
	}

	ctx := c.Request().Context()
	contract, err := h.store.GetContract(ctx, id)
	if err != nil {
		return apierrors.StoreError(c, err, "contract")
	}

	pdf := contract.PDFContent
	if len(pdf) == 0 && contract.StorageKey != nil && h.archive != nil {
		pdf, err = h.archive.Get(ctx, *contract.StorageKey)
		if err != nil {
			return apierrors.InternalError(c, err)
		}
	}
	if len(pdf) == 0 {
		return apierrors.NotFoundError(c, "contract")
	}

	filename := fmt.Sprintf("contrato-%d.pdf", contract.ID)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", filename))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
