package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/blogprojesi/backend/internal/telemetry"
)

// IPThresholdMultiplier scales the per-user failure threshold for a single
// IP, leaving room for users behind a shared address.
const IPThresholdMultiplier = 3

// LoginLimiter is what the login pipelines need from the guard.
type LoginLimiter interface {
	RecordAttempt(ctx context.Context, username, ip string, success, isAdminLogin bool) error
	IsBlocked(ctx context.Context, username string) (bool, error)
	IsIPBlocked(ctx context.Context, ip string) (bool, error)
	RemainingAttempts(ctx context.Context, username string) (int, error)
}

// LoginGuard decides lockouts from a fixed trailing window over the ledger.
// Every check recounts from now, so a lockout decays as failures age out.
type LoginGuard struct {
	ledger    *AttemptLedger
	settings  *SettingsService
	retention time.Duration
	now       func() time.Time
}

var _ LoginLimiter = (*LoginGuard)(nil)

// NewLoginGuard wires the guard to its ledger and settings. retention is the
// age after which CleanupOldAttempts purges rows; <= 0 means seven days.
func NewLoginGuard(ledger *AttemptLedger, settings *SettingsService, retention time.Duration) *LoginGuard {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &LoginGuard{
		ledger:    ledger,
		settings:  settings,
		retention: retention,
		now:       time.Now,
	}
}

// RecordAttempt appends the attempt; a success also resets the user's failures.
func (g *LoginGuard) RecordAttempt(ctx context.Context, username, ip string, success, isAdminLogin bool) error {
	if _, err := g.ledger.Record(ctx, username, ip, success, isAdminLogin); err != nil {
		return err
	}
	if success {
		if _, err := g.ledger.ClearFailures(ctx, username); err != nil {
			return err
		}
	}
	return nil
}

func (g *LoginGuard) windowStart(ctx context.Context) time.Time {
	minutes := int64(g.settings.LockoutDurationMinutes(ctx))
	return g.now().Add(-time.Duration(minutes) * time.Minute)
}

// MaxAttempts is the per-user failure threshold currently in force.
func (g *LoginGuard) MaxAttempts(ctx context.Context) int {
	return g.settings.MaxLoginAttempts(ctx)
}

func (g *LoginGuard) IsBlocked(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	count, err := g.ledger.CountRecentFailures(ctx, username, g.windowStart(ctx))
	if err != nil {
		return false, err
	}
	return count >= int64(g.MaxAttempts(ctx)), nil
}

func (g *LoginGuard) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	if ip == "" {
		return false, nil
	}
	count, err := g.ledger.CountRecentFailuresByIP(ctx, ip, g.windowStart(ctx))
	if err != nil {
		return false, err
	}
	return count >= int64(g.MaxAttempts(ctx))*IPThresholdMultiplier, nil
}

func (g *LoginGuard) RemainingAttempts(ctx context.Context, username string) (int, error) {
	maxAttempts := g.MaxAttempts(ctx)
	count, err := g.ledger.CountRecentFailures(ctx, username, g.windowStart(ctx))
	if err != nil {
		return 0, err
	}
	remaining := int64(maxAttempts) - count
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining), nil
}

// CleanupOldAttempts purges attempts older than the retention period. It is
// run by the scheduler; failures are logged and never returned.
func (g *LoginGuard) CleanupOldAttempts(ctx context.Context) {
	cutoff := g.now().Add(-g.retention)
	deleted, err := g.ledger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("login attempt cleanup failed", "cutoff", cutoff, "error", err)
		return
	}
	telemetry.LoginAttemptsPurgedTotal.Add(float64(deleted))
	slog.Info("login attempts purged", "deleted", deleted, "cutoff", cutoff)
}
