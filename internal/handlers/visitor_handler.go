package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"visitordesk/internal/api/middleware"
	"visitordesk/internal/api/validator"
	"visitordesk/internal/models"
)

// Visitors is the write side of the visitor table.
type Visitors interface {
	Register(ctx context.Context, v *models.Visitor) error
	CheckIn(ctx context.Context, id string) (*models.Visitor, error)
	CheckOut(ctx context.Context, id string) (*models.Visitor, error)
	SetBlacklisted(ctx context.Context, id string, blacklisted bool) (*models.Visitor, error)
}

type VisitorHandler struct {
	visitors Visitors
}

func NewVisitorHandler(visitors Visitors) *VisitorHandler {
	return &VisitorHandler{visitors: visitors}
}

// Create registers a walk-in, or a pre-registered guest when a guest code is
// given. Hosts may only register their own visitors.
// @Router /api/v1/visitors [post]
func (h *VisitorHandler) Create(c echo.Context) error {
	var req validator.VisitorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	st := middleware.GetState(c)
	if st.Profile != nil && models.ParseRole(string(st.Profile.Role)) == models.RoleHost {
		req.HostID = st.Profile.ID
	}

	v := &models.Visitor{
		Name:        req.Name,
		Company:     req.Company,
		HostID:      req.HostID,
		FloorNumber: req.FloorNumber,
		GuestCode:   req.GuestCode,
	}
	if err := h.visitors.Register(c.Request().Context(), v); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v)
}

// CheckIn marks a visitor as arrived.
// @Router /api/v1/visitors/{id}/check-in [post]
func (h *VisitorHandler) CheckIn(c echo.Context) error {
	v, err := h.visitors.CheckIn(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// CheckOut marks a visitor as gone.
// @Router /api/v1/visitors/{id}/check-out [post]
func (h *VisitorHandler) CheckOut(c echo.Context) error {
	v, err := h.visitors.CheckOut(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// Blacklist sets or clears the blacklist flag.
// @Router /api/v1/visitors/{id}/blacklist [put]
func (h *VisitorHandler) Blacklist(c echo.Context) error {
	var req validator.BlacklistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	v, err := h.visitors.SetBlacklisted(c.Request().Context(), c.Param("id"), *req.Blacklisted)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}
