package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/services"
)

// AdminDashboard godoc
// @Summary Get admin dashboard statistics
// @Description User, post, comment and audit statistics for the admin dashboard
// @Tags Admin
// @Produce json
// @Success 200 {object} dataResponse{data=models.DashboardStats}
// @Failure 401 {object} simpleResponse
// @Failure 403 {object} simpleResponse
// @Router /admin/dashboard [get]
func (s *Server) AdminDashboard(c echo.Context) error {
	stats, err := s.Services.Dashboard.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, stats)
}

// AdminUsers godoc
// @Summary List users
// @Tags Admin
// @Produce json
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(20)
// @Param search query string false "Search by username, email or name"
// @Param role query string false "Filter by role (USER, ADMIN)"
// @Success 200 {object} dataResponse
// @Router /admin/users [get]
func (s *Server) AdminUsers(c echo.Context) error {
	page, size := pageParams(c)
	result, err := s.Services.Users.List(c.Request().Context(), services.UserFilter{
		Search: c.QueryParam("search"),
		Role:   c.QueryParam("role"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, result)
}

type userDetails struct {
	User     *models.User      `json:"user"`
	AuditLog []models.AdminLog `json:"audit_log"`
}

// AdminUserDetails godoc
// @Summary Get a user with the audit entries that target them
// @Tags Admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dataResponse
// @Failure 404 {object} simpleResponse
// @Router /admin/users/{id} [get]
func (s *Server) AdminUserDetails(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user, err := s.Services.Users.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	entries, err := s.Services.Audit.EntriesByTarget(ctx, models.TargetUser, id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, userDetails{User: user, AuditLog: entries})
}

// AdminCreateUser godoc
// @Summary Create a user
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body services.CreateUserInput true "User"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Router /admin/users [post]
func (s *Server) AdminCreateUser(c echo.Context) error {
	var req services.CreateUserInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	user, err := s.Services.Users.CreateUser(c.Request().Context(), req, currentUser(c), getClientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "User created", user)
}

// AdminUpdateUser godoc
// @Summary Update a user's profile fields
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body services.UpdateUserInput true "Changes"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Failure 404 {object} simpleResponse
// @Router /admin/users/{id} [put]
func (s *Server) AdminUpdateUser(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req services.UpdateUserInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	user, err := s.Services.Users.UpdateUser(c.Request().Context(), id, req, currentUser(c), getClientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "User updated", user)
}

// AdminToggleUser godoc
// @Summary Enable or disable a user
// @Tags Admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dataResponse
// @Failure 403 {object} simpleResponse
// @Router /admin/users/{id}/toggle [post]
func (s *Server) AdminToggleUser(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	user, err := s.Services.Users.ToggleEnabled(c.Request().Context(), id, currentUser(c), getClientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	message := "User disabled"
	if user.Enabled {
		message = "User enabled"
	}
	return okMessage(c, message, user)
}

type roleRequest struct {
	Role string `json:"role" form:"role" example:"ADMIN"`
}

// AdminChangeRole godoc
// @Summary Change a user's role
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body roleRequest true "New role"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Failure 403 {object} simpleResponse
// @Router /admin/users/{id}/role [post]
func (s *Server) AdminChangeRole(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	user, err := s.Services.Users.ChangeRole(c.Request().Context(), id, req.Role, currentUser(c), getClientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "Role updated", user)
}

type resetPasswordRequest struct {
	Password string `json:"password" form:"password" example:"N3w-Secret!"`
}

// AdminResetPassword godoc
// @Summary Set a new password for a user
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body resetPasswordRequest true "New password"
// @Success 200 {object} simpleResponse
// @Failure 400 {object} simpleResponse
// @Router /admin/users/{id}/reset-password [post]
func (s *Server) AdminResetPassword(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	if err := s.Services.Users.ResetPassword(c.Request().Context(), id, req.Password, currentUser(c), getClientIP(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Password reset"})
}

// AdminDeleteUser godoc
// @Summary Delete a user with their posts and comments
// @Tags Admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} simpleResponse
// @Failure 403 {object} simpleResponse
// @Failure 404 {object} simpleResponse
// @Router /admin/users/{id} [delete]
func (s *Server) AdminDeleteUser(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.Services.Users.DeleteUser(c.Request().Context(), id, currentUser(c), getClientIP(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "User deleted"})
}

// AdminPosts godoc
// @Summary List all posts
// @Tags Admin
// @Produce json
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(20)
// @Param search query string false "Search title and content"
// @Param category query string false "Filter by category"
// @Param published query bool false "Filter by published flag"
// @Success 200 {object} dataResponse
// @Router /admin/posts [get]
func (s *Server) AdminPosts(c echo.Context) error {
	page, size := pageParams(c)
	filter := services.PostFilter{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
		Page:     page,
		Size:     size,
	}
	if raw := c.QueryParam("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "published must be true or false")
		}
		filter.Published = &published
	}
	result, err := s.Services.Posts.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, result)
}

// AdminUpdatePost godoc
// @Summary Edit any post
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body services.PostInput true "Post"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Router /admin/posts/{id} [put]
func (s *Server) AdminUpdatePost(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req services.PostInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	post, err := s.Services.Posts.AdminUpdate(c.Request().Context(), id, req, currentUser(c), getClientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "Post updated", post)
}

// AdminTogglePublish godoc
// @Summary Publish or unpublish a post
// @Tags Admin
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} dataResponse
// @Router /admin/posts/{id}/publish [post]
func (s *Server) AdminTogglePublish(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	post, err := s.Services.Posts.TogglePublished(c.Request().Context(), id, currentUser(c), getClientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, post)
}

// AdminToggleFeature godoc
// @Summary Feature or unfeature a post
// @Tags Admin
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} dataResponse
// @Router /admin/posts/{id}/feature [post]
func (s *Server) AdminToggleFeature(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	post, err := s.Services.Posts.ToggleFeatured(c.Request().Context(), id, currentUser(c), getClientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, post)
}

// AdminDeletePost godoc
// @Summary Delete any post
// @Tags Admin
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} simpleResponse
// @Failure 404 {object} simpleResponse
// @Router /admin/posts/{id} [delete]
func (s *Server) AdminDeletePost(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.Services.Posts.AdminDelete(c.Request().Context(), id, currentUser(c), getClientIP(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Post deleted"})
}

// AdminComments godoc
// @Summary List all comments
// @Tags Admin
// @Produce json
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dataResponse
// @Router /admin/comments [get]
func (s *Server) AdminComments(c echo.Context) error {
	page, size := pageParams(c)
	result, err := s.Services.Comments.ListAll(c.Request().Context(), page, size)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, result)
}

// AdminDeleteComment godoc
// @Summary Delete any comment
// @Tags Admin
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} simpleResponse
// @Failure 404 {object} simpleResponse
// @Router /admin/comments/{id} [delete]
func (s *Server) AdminDeleteComment(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.Services.Comments.AdminDelete(c.Request().Context(), id, currentUser(c), getClientIP(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Comment deleted"})
}

// AdminSettings godoc
// @Summary Current system settings
// @Description Effective value of every setting, defaults included
// @Tags Admin
// @Produce json
// @Success 200 {object} dataResponse
// @Router /admin/settings [get]
func (s *Server) AdminSettings(c echo.Context) error {
	values, err := s.Services.Settings.AsMap(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, values)
}

// AdminUpdateSettings godoc
// @Summary Update system settings
// @Description Accepts a JSON object or form of setting keys to values. Every changed key is written to the audit trail.
// @Tags Admin
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body map[string]string true "Settings"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Router /admin/settings [post]
func (s *Server) AdminUpdateSettings(c echo.Context) error {
	values, err := settingsPayload(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	changes, err := services.UpdateSettings(c.Request().Context(), s.Services.Settings, s.Services.Audit, currentUser(c), values, getClientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, fmt.Sprintf("%d setting(s) updated", len(changes)), changes)
}

// settingsPayload reads the settings form as JSON or url-encoded fields.
// JSON booleans and numbers are accepted as well as strings; null, arrays
// and objects are not.
func settingsPayload(c echo.Context) (map[string]string, error) {
	values := map[string]string{}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		raw := map[string]any{}
		if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
			return nil, err
		}
		for key, v := range raw {
			switch v := v.(type) {
			case string:
				values[key] = v
			case bool:
				values[key] = strconv.FormatBool(v)
			case float64:
				values[key] = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				return nil, fmt.Errorf("setting %s: unsupported value %v", key, v)
			}
		}
		return values, nil
	}
	form, err := c.FormParams()
	if err != nil {
		return nil, err
	}
	for key := range form {
		values[key] = form.Get(key)
	}
	return values, nil
}

// AdminLogs godoc
// @Summary Page through the audit trail
// @Tags Admin
// @Produce json
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(20)
// @Param action_type query string false "Only entries of this action type"
// @Success 200 {object} dataResponse
// @Router /admin/logs [get]
func (s *Server) AdminLogs(c echo.Context) error {
	ctx := c.Request().Context()
	if action := c.QueryParam("action_type"); action != "" {
		entries, err := s.Services.Audit.EntriesByActionType(ctx, models.AdminActionType(strings.ToUpper(action)))
		if err != nil {
			return respondError(c, err)
		}
		return ok(c, entries)
	}
	page, size := pageParams(c)
	result, err := s.Services.Audit.EntriesPage(ctx, page, size)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, result)
}

// AdminRecentLogs godoc
// @Summary Newest audit entries
// @Tags Admin
// @Produce json
// @Param limit query int false "Number of entries" default(50)
// @Success 200 {object} dataResponse
// @Router /admin/logs/recent [get]
func (s *Server) AdminRecentLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := s.Services.Audit.RecentEntries(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, entries)
}

// AdminLogsByActor godoc
// @Summary Audit entries written by one admin
// @Tags Admin
// @Produce json
// @Param id path int true "Admin user ID"
// @Success 200 {object} dataResponse
// @Router /admin/logs/actor/{id} [get]
func (s *Server) AdminLogsByActor(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := s.Services.Audit.EntriesByActor(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, entries)
}

// AdminLogsByTarget godoc
// @Summary Audit entries about one target
// @Tags Admin
// @Produce json
// @Param type path string true "Target type (USER, POST, COMMENT, SETTINGS, SYSTEM)"
// @Param id path int true "Target ID"
// @Success 200 {object} dataResponse
// @Router /admin/logs/target/{type}/{id} [get]
func (s *Server) AdminLogsByTarget(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	targetType := strings.ToUpper(c.Param("type"))
	entries, err := s.Services.Audit.EntriesByTarget(c.Request().Context(), targetType, id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, entries)
}

// AdminLogsInRange godoc
// @Summary Audit entries in a time range
// @Tags Admin
// @Produce json
// @Param from query string true "Start, RFC 3339"
// @Param to query string true "End, RFC 3339"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Router /admin/logs/range [get]
func (s *Server) AdminLogsInRange(c echo.Context) error {
	from, err := time.Parse(time.RFC3339, c.QueryParam("from"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "from must be an RFC 3339 timestamp")
	}
	to, err := time.Parse(time.RFC3339, c.QueryParam("to"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "to must be an RFC 3339 timestamp")
	}
	entries, err := s.Services.Audit.EntriesBetween(c.Request().Context(), from, to)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, entries)
}

// AdminLoginAttempts godoc
// @Summary Recent admin panel login attempts
// @Tags Admin
// @Produce json
// @Param limit query int false "Number of attempts" default(20)
// @Success 200 {object} dataResponse
// @Router /admin/login-attempts [get]
func (s *Server) AdminLoginAttempts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	attempts, err := s.Services.Ledger.RecentAdminAttempts(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, attempts)
}
