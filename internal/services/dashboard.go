package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/utils"
)

const (
	dashboardRecentUsers      = 5
	dashboardRecentLogins     = 10
	dashboardActionDays       = 7
	dashboardRegistrationDays = 30
)

// DashboardService aggregates the admin dashboard numbers.
type DashboardService struct {
	db     *gorm.DB
	posts  *PostService
	audit  *AuditLogService
	ledger *AttemptLedger
	loc    *time.Location
	now    func() time.Time
}

func NewDashboardService(db *gorm.DB, posts *PostService, audit *AuditLogService, ledger *AttemptLedger, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{db: db, posts: posts, audit: audit, ledger: ledger, loc: loc, now: time.Now}
}

func (d *DashboardService) count(ctx context.Context, model any, query string, args ...any) (int64, error) {
	var n int64
	q := d.db.WithContext(ctx).Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (d *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	now := d.now()
	today := utils.StartOfDay(now, d.loc).UTC()
	month := utils.StartOfMonth(now, d.loc).UTC()

	stats := &models.DashboardStats{}
	counters := []struct {
		dst   *int64
		model any
		query string
		args  []any
	}{
		{&stats.TotalUsers, &models.User{}, "", nil},
		{&stats.TotalAdmins, &models.User{}, "role = ?", []any{models.RoleAdmin}},
		{&stats.ActiveUsers, &models.User{}, "enabled = ?", []any{true}},
		{&stats.NewUsersToday, &models.User{}, "created_at >= ?", []any{today}},
		{&stats.NewUsersThisMonth, &models.User{}, "created_at >= ?", []any{month}},
		{&stats.TotalPosts, &models.Post{}, "", nil},
		{&stats.PublishedPosts, &models.Post{}, "is_published = ?", []any{true}},
		{&stats.FeaturedPosts, &models.Post{}, "is_featured = ?", []any{true}},
		{&stats.TotalComments, &models.Comment{}, "", nil},
	}
	for _, c := range counters {
		n, err := d.count(ctx, c.model, c.query, c.args...)
		if err != nil {
			return nil, fmt.Errorf("dashboard counts: %w", err)
		}
		*c.dst = n
	}

	var err error
	if stats.CategoryStats, err = d.posts.CountByCategory(ctx); err != nil {
		return nil, err
	}
	if stats.TodayAdminLogins, err = d.audit.TodayLoginCount(ctx); err != nil {
		return nil, err
	}
	since := utils.StartOfDay(now, d.loc).AddDate(0, 0, -(dashboardActionDays - 1))
	if stats.ActionsByDay, err = d.audit.CountActionsByDay(ctx, since); err != nil {
		return nil, err
	}
	if stats.RegistrationChart, err = d.RegistrationsByDay(ctx, dashboardRegistrationDays); err != nil {
		return nil, err
	}
	if stats.RecentAdminLogins, err = d.ledger.RecentAdminAttempts(ctx, dashboardRecentLogins); err != nil {
		return nil, err
	}
	if err := d.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(dashboardRecentUsers).Find(&stats.RecentUsers).Error; err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	return stats, nil
}

// RegistrationsByDay buckets user sign-ups over the last days local days,
// newest first. Days without sign-ups are omitted.
func (d *DashboardService) RegistrationsByDay(ctx context.Context, days int) ([]models.DailyCount, error) {
	if days <= 0 {
		days = dashboardRegistrationDays
	}
	since := utils.StartOfDay(d.now(), d.loc).AddDate(0, 0, -(days - 1))
	var stamps []time.Time
	err := d.db.WithContext(ctx).Model(&models.User{}).
		Where("created_at >= ?", since.UTC()).
		Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("registrations by day: %w", err)
	}
	return bucketByDay(stamps, d.loc), nil
}
