package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/services"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// UpdateProfile godoc
// @Summary Update your profile
// @Description Change your own name, email and bio. Omitted fields are left unchanged.
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body services.UpdateUserInput true "Profile"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Router /profile [put]
func (s *Server) UpdateProfile(c echo.Context) error {
	var req services.UpdateUserInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	user, err := s.Services.Users.UpdateProfile(c.Request().Context(), currentUser(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "Profile updated", user)
}

// ChangePassword godoc
// @Summary Change your password
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body changePasswordRequest true "Passwords"
// @Success 200 {object} simpleResponse
// @Failure 400 {object} simpleResponse
// @Router /profile/password [post]
func (s *Server) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	if req.NewPassword != req.ConfirmPassword {
		return fail(c, http.StatusBadRequest, "New passwords do not match")
	}
	if err := s.Services.Users.ChangePassword(c.Request().Context(), currentUser(c).ID, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Password changed"})
}
