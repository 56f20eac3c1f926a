package controllers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"visitordesk/internal/api/middleware"
	"visitordesk/internal/services"
)

// Scope adds viewer-dependent filters to a listing.
type Scope func(c echo.Context, filters map[string]interface{})

// BaseController provides generic read operations for any model
type BaseController[T any] struct {
	service services.BaseService[T]
	scopes  []Scope
}

// NewBaseController creates a new base controller
func NewBaseController[T any](service services.BaseService[T], scopes ...Scope) *BaseController[T] {
	return &BaseController[T]{
		service: service,
		scopes:  scopes,
	}
}

// Get handles retrieval of a single entity. When the viewer is scoped the row
// is looked up through the same filters as List, so rows outside the scope
// read as missing.
func (c *BaseController[T]) Get(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing id parameter")
	}

	filters := c.applyFilters(ctx, make(map[string]interface{}))
	if len(filters) == 0 {
		entity, err := c.service.Get(ctx.Request().Context(), id)
		if errors.Is(err, services.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "entity not found")
		}
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, entity)
	}

	filters["id"] = id
	entities, _, err := c.service.List(ctx.Request().Context(), services.ListQuery{
		Page: 1, Limit: 1, Filters: filters,
	})
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "entity not found")
	}
	return ctx.JSON(http.StatusOK, entities[0])
}

// applyFilters narrows a listing to the viewer's tenant when the model has one.
func (c *BaseController[T]) applyFilters(ctx echo.Context, filters map[string]interface{}) map[string]interface{} {
	st := middleware.GetState(ctx)
	if st.Profile != nil && st.Profile.TenantID != nil {
		var entity T
		if _, found := reflect.TypeOf(entity).FieldByName("TenantID"); found {
			filters["tenant_id"] = *st.Profile.TenantID
		}
	}
	for _, scope := range c.scopes {
		scope(ctx, filters)
	}
	return filters
}

// List handles retrieval of multiple entities with pagination and filtering
func (c *BaseController[T]) List(ctx echo.Context) error {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filters := make(map[string]interface{})
	for key, values := range ctx.QueryParams() {
		switch key {
		case "page", "limit", "sort", "order", "access_token":
			continue
		}
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}
	filters = c.applyFilters(ctx, filters)

	entities, total, err := c.service.List(ctx.Request().Context(), services.ListQuery{
		Page:    page,
		Limit:   limit,
		Filters: filters,
		Sort:    ctx.QueryParam("sort"),
		Desc:    strings.EqualFold(ctx.QueryParam("order"), "desc"),
	})
	if errors.Is(err, services.ErrInvalidQuery) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"data":  entities,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// RegisterRoutes registers read routes for the controller
func (c *BaseController[T]) RegisterRoutes(g *echo.Group, path string, m ...echo.MiddlewareFunc) {
	g.GET(path, c.List, m...)
	g.GET(path+"/:id", c.Get, m...)
}
