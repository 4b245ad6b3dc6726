package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storehub/admin-identity/internal/api/middleware"
	"github.com/storehub/admin-identity/internal/core/domain"
	"github.com/storehub/admin-identity/internal/core/ports"
)

// AccountHandler serves the logged-in account's profile operations.
type AccountHandler struct {
	accounts ports.AccountService
}

func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type changeEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Profile returns the caller's own account.
//
// @Summary      Get the logged-in account
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Account
// @Failure      401  {object}  errorResponse
// @Router       /profile [get]
func (h *AccountHandler) Profile(c echo.Context) error {
	account, ok := middleware.Account(c)
	if !ok {
		return domain.ErrUnauthenticated
	}

	fresh, err := h.accounts.Profile(c.Request().Context(), account.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fresh)
}

// ChangePassword replaces the caller's password and queues a confirmation.
//
// @Summary      Change password
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "New password"
// @Success      200   {object}  domain.Account
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /profile/password [put]
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	account, ok := middleware.Account(c)
	if !ok {
		return domain.ErrUnauthenticated
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	updated, err := h.accounts.ChangePassword(c.Request().Context(), account.ID, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// ChangeEmail opens an OTP-gated email change; the new address takes effect
// once the code sent to it is verified.
//
// @Summary      Request an email change
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changeEmailRequest  true  "New email"
// @Success      202   {object}  domain.Account
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /profile/email [put]
func (h *AccountHandler) ChangeEmail(c echo.Context) error {
	account, ok := middleware.Account(c)
	if !ok {
		return domain.ErrUnauthenticated
	}

	var req changeEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	updated, err := h.accounts.ChangeEmail(c.Request().Context(), account.ID, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, updated)
}
