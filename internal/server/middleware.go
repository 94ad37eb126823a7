package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/telemetry"
	"github.com/blogprojesi/backend/internal/utils"
)

var errNoSession = errors.New("no session")

// sessionUser resolves the user behind p's session cookie. The token must
// carry p's scope and the account must still exist and be enabled.
func (s *Server) sessionUser(c echo.Context, p LoginPipeline) (*models.User, error) {
	cookie, err := c.Cookie(p.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, errNoSession
	}
	claims, err := utils.ValidateJWT(cookie.Value, s.Cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if claims.Scope != p.Scope {
		return nil, errors.New("session scope mismatch")
	}
	user, err := s.Services.Users.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, errors.New("account disabled")
	}
	return user, nil
}

// SessionMiddleware requires a valid session of pipeline p and stores the
// user in the context under "user".
func (s *Server) SessionMiddleware(p LoginPipeline) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := s.sessionUser(c, p)
			if err != nil {
				return fail(c, http.StatusUnauthorized, "Authentication required")
			}
			c.Set("user", user)
			return next(c)
		}
	}
}

// MetricsMiddleware records request counts and latency per route template.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// maintenanceExempt lists the path prefixes served during maintenance.
var maintenanceExempt = []string{"/admin", "/health", "/metrics", "/swagger", "/login", "/logout"}

// MaintenanceMiddleware answers 503 with the maintenance message while
// maintenance mode is on, except for the admin panel, health checks and login.
func (s *Server) MaintenanceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range maintenanceExempt {
				if path == prefix || strings.HasPrefix(path, prefix+"/") {
					return next(c)
				}
			}
			ctx := c.Request().Context()
			if !s.Services.Settings.IsMaintenanceMode(ctx) {
				return next(c)
			}
			return fail(c, http.StatusServiceUnavailable, s.Services.Settings.MaintenanceMessage(ctx))
		}
	}
}
