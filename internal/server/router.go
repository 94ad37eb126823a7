package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/config"
	"github.com/blogprojesi/backend/internal/services"
)

// Pinger is an optional dependency pinged by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	DB       *gorm.DB
	Cfg      config.AppConfig
	Services *services.Services
	Limiter  services.LoginLimiter
	// Cache is the settings cache, nil when disabled.
	Cache Pinger
}

// New registers the middleware stack and every route on e.
func New(e *echo.Echo, db *gorm.DB, cfg config.AppConfig, svc *services.Services) *Server {
	perSecond := cfg.RateLimitPerSecond
	if perSecond <= 0 {
		perSecond = 20
	}
	s := &Server{
		DB:       db,
		Cfg:      cfg,
		Services: svc,
		Limiter:  svc.Guard,
	}

	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(MetricsMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"*"},
		AllowCredentials: false,
	}))
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     perSecond * 2,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return getClientIP(c), nil
		},
	}))
	e.Use(s.MaintenanceMiddleware())

	// Public
	e.GET("/health", s.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Auth
	e.POST("/register", s.Register)
	e.POST("/login", s.UserLogin)
	e.POST("/logout", s.UserLogout)

	// Posts (public)
	e.GET("/posts", s.ListPosts)
	e.GET("/posts/:id", s.GetPost)
	e.GET("/posts/:id/comments", s.ListPostComments)
	e.GET("/posts/:id/rating", s.PostRating)

	// User session. Attached per route so unknown paths still answer 404.
	userAuth := s.SessionMiddleware(UserPipeline)
	e.GET("/home", s.Home, userAuth)
	e.POST("/posts", s.CreatePost, userAuth)
	e.PUT("/posts/:id", s.UpdatePost, userAuth)
	e.DELETE("/posts/:id", s.DeletePost, userAuth)
	e.POST("/posts/:id/comments", s.AddComment, userAuth)
	e.PUT("/comments/:id", s.UpdateComment, userAuth)
	e.DELETE("/comments/:id", s.DeleteComment, userAuth)
	e.POST("/posts/:id/rating", s.RatePost, userAuth)
	e.DELETE("/posts/:id/rating", s.RemoveRating, userAuth)
	e.POST("/posts/:id/bookmark", s.ToggleBookmark, userAuth)
	e.GET("/bookmarks", s.Bookmarks, userAuth)
	e.PUT("/profile", s.UpdateProfile, userAuth)
	e.POST("/profile/password", s.ChangePassword, userAuth)

	// Admin login/logout
	e.POST("/admin/login", s.AdminLogin)
	e.POST("/admin/logout", s.AdminLogout)

	// Admin session
	adminGroup := e.Group("/admin")
	adminGroup.Use(s.SessionMiddleware(AdminPipeline))
	adminGroup.Use(s.AdminMiddleware())

	adminGroup.GET("/dashboard", s.AdminDashboard)

	adminGroup.GET("/users", s.AdminUsers)
	adminGroup.GET("/users/:id", s.AdminUserDetails)
	adminGroup.POST("/users", s.AdminCreateUser)
	adminGroup.PUT("/users/:id", s.AdminUpdateUser)
	adminGroup.POST("/users/:id/toggle", s.AdminToggleUser)
	adminGroup.POST("/users/:id/role", s.AdminChangeRole)
	adminGroup.POST("/users/:id/reset-password", s.AdminResetPassword)
	adminGroup.DELETE("/users/:id", s.AdminDeleteUser)

	adminGroup.GET("/posts", s.AdminPosts)
	adminGroup.PUT("/posts/:id", s.AdminUpdatePost)
	adminGroup.POST("/posts/:id/publish", s.AdminTogglePublish)
	adminGroup.POST("/posts/:id/feature", s.AdminToggleFeature)
	adminGroup.DELETE("/posts/:id", s.AdminDeletePost)

	adminGroup.GET("/comments", s.AdminComments)
	adminGroup.DELETE("/comments/:id", s.AdminDeleteComment)

	adminGroup.GET("/settings", s.AdminSettings)
	adminGroup.POST("/settings", s.AdminUpdateSettings)

	adminGroup.GET("/logs", s.AdminLogs)
	adminGroup.GET("/logs/recent", s.AdminRecentLogs)
	adminGroup.GET("/logs/actor/:id", s.AdminLogsByActor)
	adminGroup.GET("/logs/target/:type/:id", s.AdminLogsByTarget)
	adminGroup.GET("/logs/range", s.AdminLogsInRange)
	adminGroup.GET("/login-attempts", s.AdminLoginAttempts)

	return s
}

// errorHandler renders echo errors (bad params, unknown routes, rate
// limiting) in the same envelope as handler errors.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = respondError(c, err)
		return
	}
	message := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok {
		message = m
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = fail(c, he.Code, message)
}
