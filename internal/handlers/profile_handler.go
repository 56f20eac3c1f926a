package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"visitordesk/internal/api/validator"
	"visitordesk/internal/models"
)

type Profiles interface {
	Update(ctx context.Context, id string, profile *models.Profile) error
}

type ProfileHandler struct {
	profiles Profiles
}

func NewProfileHandler(profiles Profiles) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Update changes a user's name, role or floor assignment.
// @Router /api/v1/profiles/{id} [put]
func (h *ProfileHandler) Update(c echo.Context) error {
	var req validator.ProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	p := &models.Profile{FullName: req.FullName, Role: models.Role(req.Role)}
	if req.AssignedFloors != nil {
		p.Floors = models.FloorList(req.AssignedFloors)
	}
	if err := h.profiles.Update(c.Request().Context(), c.Param("id"), p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
