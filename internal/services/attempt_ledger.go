package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/models"
)

// AttemptLedger is the append-only store of login attempts.
type AttemptLedger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAttemptLedger(db *gorm.DB) *AttemptLedger {
	return &AttemptLedger{db: db, now: time.Now}
}

// Record appends one attempt stamped with the current time. Username is the
// only required field.
func (l *AttemptLedger) Record(ctx context.Context, username, ip string, success, isAdminLogin bool) (*models.LoginAttempt, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username is required")
	}
	attempt := models.LoginAttempt{
		Username:     username,
		AttemptTime:  l.now().UTC(),
		Success:      success,
		IsAdminLogin: isAdminLogin,
	}
	if ip != "" {
		attempt.IPAddress = &ip
	}
	if err := l.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		return nil, fmt.Errorf("record login attempt: %w", err)
	}
	return &attempt, nil
}

// CountRecentFailures counts failed attempts for username at or after since.
func (l *AttemptLedger) CountRecentFailures(ctx context.Context, username string, since time.Time) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.LoginAttempt{}).
		Where("username = ? AND success = ? AND attempt_time >= ?", username, false, since.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count failures for %s: %w", username, err)
	}
	return n, nil
}

// CountRecentFailuresByIP counts failed attempts from ip at or after since.
func (l *AttemptLedger) CountRecentFailuresByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.LoginAttempt{}).
		Where("ip_address = ? AND success = ? AND attempt_time >= ?", ip, false, since.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count failures for ip %s: %w", ip, err)
	}
	return n, nil
}

// ClearFailures deletes the failed attempts of username. Successful rows stay.
func (l *AttemptLedger) ClearFailures(ctx context.Context, username string) (int64, error) {
	res := l.db.WithContext(ctx).
		Where("username = ? AND success = ?", username, false).
		Delete(&models.LoginAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear failures for %s: %w", username, res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeOlderThan deletes every attempt strictly before cutoff in one statement.
func (l *AttemptLedger) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := l.db.WithContext(ctx).
		Where("attempt_time < ?", cutoff.UTC()).
		Delete(&models.LoginAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge login attempts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RecentAdminAttempts returns the latest admin-panel login attempts, newest first.
func (l *AttemptLedger) RecentAdminAttempts(ctx context.Context, limit int) ([]models.LoginAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	var attempts []models.LoginAttempt
	err := l.db.WithContext(ctx).
		Where("is_admin_login = ?", true).
		Order("attempt_time DESC, id DESC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("list admin login attempts: %w", err)
	}
	return attempts, nil
}
