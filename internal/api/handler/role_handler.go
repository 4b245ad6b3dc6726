package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storehub/admin-identity/internal/core/domain"
)

// RoleHandler exposes the fixed role catalogue. Routes behind it are
// Administrator-only; the guard is applied at the router.
type RoleHandler struct{}

func NewRoleHandler() *RoleHandler {
	return &RoleHandler{}
}

type roleResponse struct {
	Name string `json:"name"`
}

// List returns the full role catalogue.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   roleResponse
// @Failure      403  {object}  errorResponse
// @Router       /roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	all := domain.ListRoles()
	out := make([]roleResponse, 0, len(all))
	for _, r := range all {
		out = append(out, roleResponse{Name: string(r)})
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a single role by exact name.
//
// @Summary      Get a role by name
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Role name"
// @Success      200   {object}  roleResponse
// @Failure      404   {object}  errorResponse
// @Router       /roles/{name} [get]
func (h *RoleHandler) Get(c echo.Context) error {
	role, ok := domain.FindRole(c.Param("name"))
	if !ok {
		return domain.ErrRoleNotFound
	}
	return c.JSON(http.StatusOK, roleResponse{Name: string(role)})
}
