package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/services"
)

// Register godoc
// @Summary Register a new account
// @Description Create a user account with the configured default role. Fails with 403 while registration is disabled.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body services.RegisterInput true "Registration data"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Failure 403 {object} simpleResponse
// @Router /register [post]
func (s *Server) Register(c echo.Context) error {
	var req services.RegisterInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	user, err := s.Services.Users.Register(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	slog.Info("user registered", "username", user.Username)
	return okMessage(c, "Registration successful. You can now log in.", user)
}

// UserLogout godoc
// @Summary User logout
// @Description Clear the BLOG_SESSION cookie
// @Tags Authentication
// @Success 303 "Redirect to /login?logout=true"
// @Router /logout [post]
func (s *Server) UserLogout(c echo.Context) error {
	s.clearSessionCookie(c, UserPipeline)
	return c.Redirect(http.StatusSeeOther, UserPipeline.LoginPath+"?logout=true")
}

// AdminLogout godoc
// @Summary Admin logout
// @Description Clear the ADMIN_SESSION cookie and record LOGOUT in the audit trail
// @Tags Admin
// @Success 303 "Redirect to /admin/login?logout=true"
// @Router /admin/logout [post]
func (s *Server) AdminLogout(c echo.Context) error {
	if user, err := s.sessionUser(c, AdminPipeline); err == nil && user.IsAdmin() {
		_, err := s.Services.Audit.LogLogout(c.Request().Context(), user, getClientIP(c))
		if err != nil {
			slog.Warn("audit write failed", "action_type", models.ActionLogout, "error", err)
		}
	}
	s.clearSessionCookie(c, AdminPipeline)
	return c.Redirect(http.StatusSeeOther, AdminPipeline.LoginPath+"?logout=true")
}

type homeResponse struct {
	User     *models.User  `json:"user"`
	SiteName string        `json:"site_name"`
	Featured []models.Post `json:"featured"`
}

// Home godoc
// @Summary Home page data
// @Description Current user profile with the featured posts
// @Tags Authentication
// @Produce json
// @Success 200 {object} dataResponse
// @Failure 401 {object} simpleResponse
// @Router /home [get]
func (s *Server) Home(c echo.Context) error {
	ctx := c.Request().Context()
	featured, err := s.Services.Posts.Featured(ctx, 5)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, homeResponse{
		User:     currentUser(c),
		SiteName: s.Services.Settings.SiteName(ctx),
		Featured: featured,
	})
}
