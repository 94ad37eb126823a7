package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/services"
	"github.com/blogprojesi/backend/internal/telemetry"
	"github.com/blogprojesi/backend/internal/utils"
)

// LoginPipeline configures one login form. Both pipelines share the same
// LoginLimiter and differ only in these values.
type LoginPipeline struct {
	Name         string
	AdminLogin   bool
	LoginPath    string
	LogoutPath   string
	SuccessPath  string
	CookieName   string
	CookiePath   string
	Scope        string
	RequireAdmin bool
	AuditLogin   bool
}

var AdminPipeline = LoginPipeline{
	Name:         "admin",
	AdminLogin:   true,
	LoginPath:    "/admin/login",
	LogoutPath:   "/admin/logout",
	SuccessPath:  "/admin/dashboard",
	CookieName:   "ADMIN_SESSION",
	CookiePath:   "/admin",
	Scope:        utils.ScopeAdmin,
	RequireAdmin: true,
	AuditLogin:   true,
}

var UserPipeline = LoginPipeline{
	Name:        "user",
	LoginPath:   "/login",
	LogoutPath:  "/logout",
	SuccessPath: "/home",
	CookieName:  "BLOG_SESSION",
	CookiePath:  "/",
	Scope:       utils.ScopeUser,
}

type loginRequest struct {
	Username string `json:"username" form:"username" example:"bob"`
	Password string `json:"password" form:"password" example:"Secret123!"`
}

// Login outcomes, also used as the login_attempts_total result label.
const (
	loginSuccess = "success"
	loginFailure = "failure"
	loginBlocked = "blocked"
	loginDenied  = "denied"
)

// handleLogin processes one submission of p's login form. Exactly one
// attempt is recorded per submission, whatever the outcome.
func (s *Server) handleLogin(p LoginPipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := c.Bind(&req); err != nil {
			slog.Debug("login payload not bound", "pipeline", p.Name, "error", err)
		}
		username := strings.TrimSpace(req.Username)
		ip := getClientIP(c)
		ctx := c.Request().Context()

		if s.lockedOut(ctx, username, ip) {
			s.recordAttempt(ctx, p, username, ip, false)
			slog.Warn("login rejected, locked out", "pipeline", p.Name, "username", username, "ip", ip)
			return s.loginRedirect(c, p, loginBlocked, p.LoginPath+"?blocked=true")
		}

		user, err := s.Services.Users.Authenticate(ctx, username, req.Password)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidCredentials) && !errors.Is(err, services.ErrAccountDisabled) {
				slog.Error("credential check failed", "pipeline", p.Name, "username", username, "error", err)
			}
			s.recordAttempt(ctx, p, username, ip, false)
			if s.lockedOut(ctx, username, ip) {
				slog.Warn("login failed, now locked out", "pipeline", p.Name, "username", username, "ip", ip)
				return s.loginRedirect(c, p, loginBlocked, p.LoginPath+"?blocked=true")
			}
			q := url.Values{}
			q.Set("error", "true")
			// remaining is left out when it cannot be computed
			if remaining, err := s.Limiter.RemainingAttempts(ctx, username); err != nil {
				slog.Error("remaining attempts lookup failed", "username", username, "error", err)
			} else {
				q.Set("remaining", strconv.Itoa(remaining))
			}
			return s.loginRedirect(c, p, loginFailure, p.LoginPath+"?"+q.Encode())
		}

		s.recordAttempt(ctx, p, username, ip, true)
		if p.RequireAdmin && !user.IsAdmin() {
			slog.Warn("admin login by non-admin account", "username", username, "ip", ip)
			return s.loginRedirect(c, p, loginDenied, p.LoginPath+"?error=access_denied")
		}

		token, err := utils.GenerateJWT(user.ID, user.Username, user.Role, p.Scope, s.Cfg.JWTSecret, s.Cfg.JWTExpiry)
		if err != nil {
			return respondError(c, err)
		}
		c.SetCookie(s.sessionCookie(p, token, time.Now().Add(s.Cfg.JWTExpiry)))

		if err := s.Services.Users.MarkLogin(ctx, user.ID); err != nil {
			slog.Warn("last login not stamped", "username", username, "error", err)
		}
		if p.AuditLogin && user.IsAdmin() {
			_, err := s.Services.Audit.LogLogin(ctx, user, ip)
			if err != nil {
				slog.Warn("audit write failed", "action_type", models.ActionLogin, "error", err)
			}
		}
		slog.Info("login succeeded", "pipeline", p.Name, "username", username, "ip", ip)
		return s.loginRedirect(c, p, loginSuccess, p.SuccessPath)
	}
}

// lockedOut reports whether the username or the address is blocked. A guard
// failure is logged and treated as not blocked.
func (s *Server) lockedOut(ctx context.Context, username, ip string) bool {
	blocked, err := s.Limiter.IsBlocked(ctx, username)
	if err != nil {
		slog.Error("lockout check failed", "username", username, "error", err)
	}
	if blocked {
		return true
	}
	blocked, err = s.Limiter.IsIPBlocked(ctx, ip)
	if err != nil {
		slog.Error("ip lockout check failed", "ip", ip, "error", err)
	}
	return blocked
}

func (s *Server) recordAttempt(ctx context.Context, p LoginPipeline, username, ip string, success bool) {
	if err := s.Limiter.RecordAttempt(ctx, username, ip, success, p.AdminLogin); err != nil {
		slog.Error("login attempt not recorded", "pipeline", p.Name, "username", username, "error", err)
	}
}

func (s *Server) loginRedirect(c echo.Context, p LoginPipeline, result, target string) error {
	telemetry.LoginAttemptsTotal.WithLabelValues(p.Name, result).Inc()
	return c.Redirect(http.StatusSeeOther, target)
}

func (s *Server) sessionCookie(p LoginPipeline, token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     p.CookieName,
		Value:    token,
		Path:     p.CookiePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) clearSessionCookie(c echo.Context, p LoginPipeline) {
	cookie := s.sessionCookie(p, "", time.Unix(0, 0))
	cookie.MaxAge = -1
	c.SetCookie(cookie)
}

// UserLogin godoc
// @Summary User login
// @Description Verify credentials and start a BLOG_SESSION. Always answers with a 303 redirect.
// @Tags Authentication
// @Accept x-www-form-urlencoded,json
// @Param request body loginRequest true "Login credentials"
// @Success 303 "Redirect to /home, or back to /login with blocked=true or error=true&remaining=N"
// @Router /login [post]
func (s *Server) UserLogin(c echo.Context) error {
	return s.handleLogin(UserPipeline)(c)
}

// AdminLogin godoc
// @Summary Admin login
// @Description Verify credentials, require the ADMIN role and start an ADMIN_SESSION. Always answers with a 303 redirect.
// @Tags Admin
// @Accept x-www-form-urlencoded,json
// @Param request body loginRequest true "Login credentials"
// @Success 303 "Redirect to /admin/dashboard, or back to /admin/login with blocked=true, error=true&remaining=N or error=access_denied"
// @Router /admin/login [post]
func (s *Server) AdminLogin(c echo.Context) error {
	return s.handleLogin(AdminPipeline)(c)
}
