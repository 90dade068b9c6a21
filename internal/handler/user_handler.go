package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"accountsvc/internal/service"
)

// UserHandler serves the authenticated user's profile.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UpdateAccountRequest patches the profile text fields.
type UpdateAccountRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// GetCurrentUser godoc
// @Summary Current user details
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/current-user [get]
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetCurrentUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "Current user details")
}

// UpdateAccount godoc
// @Summary Update full name and email
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateAccountRequest true "Profile fields"
// @Success 200 {object} APIResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/update-account [patch]
func (h *UserHandler) UpdateAccount(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req UpdateAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.svc.UpdateProfile(c.Request().Context(), claims.UserID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar godoc
// @Summary Replace the avatar image
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} APIResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /users/avatar [patch]
func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	file, err := formFile(c, "avatar")
	if err != nil {
		return err
	}
	user, err := h.svc.UpdateAvatar(c.Request().Context(), claims.UserID, file)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "Avatar updated successfully")
}

// UpdateCoverImage godoc
// @Summary Replace the cover image
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param coverImage formData file true "Cover image"
// @Success 200 {object} APIResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /users/cover-image [patch]
func (h *UserHandler) UpdateCoverImage(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	file, err := formFile(c, "coverImage")
	if err != nil {
		return err
	}
	user, err := h.svc.UpdateCoverImage(c.Request().Context(), claims.UserID, file)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "Cover image updated successfully")
}
