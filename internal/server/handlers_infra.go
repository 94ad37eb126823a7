package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/db"
)

// Health godoc
// @Summary Health check
// @Description Check the health status of the API and its dependencies
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Router /health [get]
func (s *Server) Health(c echo.Context) error {
	status := map[string]any{
		"success": true,
		"status":  "ok",
		"checks":  map[string]any{},
	}
	checks := status["checks"].(map[string]any)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Main DB through the GORM pool
	if sqlDB, err := s.DB.DB(); err == nil {
		if err := sqlDB.PingContext(ctx); err != nil {
			checks["database"] = map[string]any{"ok": false, "error": err.Error()}
			status["status"] = "degraded"
		} else {
			checks["database"] = map[string]any{"ok": true}
		}
	} else {
		checks["database"] = map[string]any{"ok": false, "error": "db handle unavailable"}
		status["status"] = "degraded"
	}

	// Direct pgx ping outside the GORM pool (best-effort)
	if s.Cfg.DatabaseURL != "" && !db.IsSQLite(s.Cfg.DatabaseURL) {
		if pool, err := pgxpool.New(ctx, s.Cfg.DatabaseURL); err == nil {
			if err := pool.Ping(ctx); err != nil {
				checks["postgres"] = map[string]any{"ok": false, "error": err.Error()}
				status["status"] = "degraded"
			} else {
				checks["postgres"] = map[string]any{"ok": true}
			}
			pool.Close()
		} else {
			checks["postgres"] = map[string]any{"ok": false}
		}
	}

	// Settings cache (best-effort)
	if s.Cache != nil {
		if err := s.Cache.Ping(ctx); err != nil {
			checks["settings_cache"] = map[string]any{"ok": false, "error": err.Error()}
			status["status"] = "degraded"
		} else {
			checks["settings_cache"] = map[string]any{"ok": true}
		}
	}
	return c.JSON(http.StatusOK, status)
}
