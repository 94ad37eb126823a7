package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/services"
)

// AdminMiddleware checks that the session user is an enabled ADMIN. It runs
// after SessionMiddleware(AdminPipeline).
func (s *Server) AdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !services.AdminUser(currentUser(c)) {
				return fail(c, http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}

// currentUser returns the user stored by SessionMiddleware, or nil.
func currentUser(c echo.Context) *models.User {
	user, _ := c.Get("user").(*models.User)
	return user
}

// getClientIP returns the first X-Forwarded-For entry, falling back to the
// connection's remote address.
func getClientIP(c echo.Context) string {
	if xff := c.Request().Header.Get(echo.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return remoteHost(c.Request().RemoteAddr)
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
