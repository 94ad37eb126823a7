package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/models"
)

// Services bundles every service the HTTP layer and the jobs depend on.
type Services struct {
	Settings  *SettingsService
	Ledger    *AttemptLedger
	Guard     *LoginGuard
	Audit     *AuditLogService
	Users     *UserService
	Posts     *PostService
	Comments  *CommentService
	Ratings   *RatingService
	Bookmarks *BookmarkService
	Dashboard *DashboardService
	Scheduler *Scheduler
}

// BootstrapAdmin is the admin created on first start when none exists.
type BootstrapAdmin struct {
	Username string
	Email    string
	Password string
}

// Bootstrap seeds the default settings and, when the system has no admin,
// the configured bootstrap admin.
func Bootstrap(ctx context.Context, s *Services, admin BootstrapAdmin) error {
	if err := s.Settings.InitializeDefaults(ctx); err != nil {
		return err
	}
	if _, err := s.Users.EnsureAdmin(ctx, admin.Username, admin.Email, admin.Password); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}

// Task names registered by RegisterTasks.
const (
	TaskLoginAttemptCleanup = "login-attempt-cleanup"
	TaskAuditExport         = "audit-export"
)

// RegisterTasks adds the daily jobs: the login attempt purge at cleanupHour
// and, when exporter is non-nil, the audit export thirty minutes later.
func RegisterTasks(s *Services, cleanupHour int, exporter *AuditExporter) error {
	err := s.Scheduler.Add(DailyTask{
		Name: TaskLoginAttemptCleanup,
		Hour: cleanupHour,
		Run: func(ctx context.Context) error {
			s.Guard.CleanupOldAttempts(ctx)
			return nil
		},
	})
	if err != nil || exporter == nil {
		return err
	}
	return s.Scheduler.Add(DailyTask{
		Name:   TaskAuditExport,
		Hour:   cleanupHour,
		Minute: 30,
		Run:    exporter.ExportPreviousDay,
	})
}

// Deps are the external collaborators of the service graph. Cache and
// Hasher are optional.
type Deps struct {
	DB               *gorm.DB
	Cache            SettingsCache
	Hasher           PasswordHasher
	Location         *time.Location
	AttemptRetention time.Duration
}

// NewServices wires the service graph over one database handle.
func NewServices(deps Deps) *Services {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}

	settings := NewSettingsService(deps.DB, deps.Cache)
	ledger := NewAttemptLedger(deps.DB)
	audit := NewAuditLogService(deps.DB, loc)
	posts := NewPostService(deps.DB, audit)
	return &Services{
		Settings:  settings,
		Ledger:    ledger,
		Guard:     NewLoginGuard(ledger, settings, deps.AttemptRetention),
		Audit:     audit,
		Users:     NewUserService(deps.DB, hasher, settings, audit),
		Posts:     posts,
		Comments:  NewCommentService(deps.DB, settings, audit),
		Ratings:   NewRatingService(deps.DB, posts),
		Bookmarks: NewBookmarkService(deps.DB, posts),
		Dashboard: NewDashboardService(deps.DB, posts, audit, ledger, loc),
		Scheduler: NewScheduler(loc),
	}
}

// AdminUser reports whether u may use the admin panel.
func AdminUser(u *models.User) bool {
	return u != nil && u.Enabled && u.IsAdmin()
}
