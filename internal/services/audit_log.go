package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/telemetry"
	"github.com/blogprojesi/backend/internal/utils"
)

const DefaultRecentAuditEntries = 50

// AuditEntry is the input of AuditLogService.Record. Empty optional strings
// are stored as NULL.
type AuditEntry struct {
	ActorID       uint
	ActorUsername string
	ActionType    models.AdminActionType
	Description   string
	TargetType    string
	TargetID      *uint
	Details       string
	IPAddress     string
}

type AuditPage = Page[models.AdminLog]

// AuditLogService writes and reads the admin audit trail. It has no update
// or delete operations; the model hooks reject both as well.
type AuditLogService struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// NewAuditLogService creates the service. loc defines "today" for
// TodayLoginCount; nil means UTC.
func NewAuditLogService(db *gorm.DB, loc *time.Location) *AuditLogService {
	if loc == nil {
		loc = time.UTC
	}
	return &AuditLogService{db: db, loc: loc, now: time.Now}
}

func (a *AuditLogService) Record(ctx context.Context, e AuditEntry) (*models.AdminLog, error) {
	if !e.ActionType.Valid() {
		return nil, invalid("unknown action type %q", e.ActionType)
	}
	description := e.Description
	if description == "" {
		description = string(e.ActionType)
	}

	entry := models.AdminLog{
		AdminID:       e.ActorID,
		AdminUsername: e.ActorUsername,
		ActionType:    e.ActionType,
		Action:        description,
		TargetType:    optional(e.TargetType),
		TargetID:      e.TargetID,
		Details:       optional(e.Details),
		IPAddress:     optional(e.IPAddress),
		CreatedAt:     a.now().UTC(),
	}
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		telemetry.AuditWriteFailuresTotal.Inc()
		return nil, fmt.Errorf("write audit entry %s: %w", e.ActionType, err)
	}
	telemetry.AuditEntriesTotal.WithLabelValues(string(e.ActionType)).Inc()
	slog.Info("admin action logged", "action_type", e.ActionType, "action", description, "admin", e.ActorUsername)
	return &entry, nil
}

func actorEntry(admin *models.User, action models.AdminActionType, description, ip string) AuditEntry {
	return AuditEntry{
		ActorID:       admin.ID,
		ActorUsername: admin.Username,
		ActionType:    action,
		Description:   description,
		IPAddress:     ip,
	}
}

func (a *AuditLogService) LogLogin(ctx context.Context, admin *models.User, ip string) (*models.AdminLog, error) {
	e := actorEntry(admin, models.ActionLogin, "Admin logged in", ip)
	e.TargetType, e.TargetID = models.TargetUser, uintPtr(admin.ID)
	return a.Record(ctx, e)
}

func (a *AuditLogService) LogLogout(ctx context.Context, admin *models.User, ip string) (*models.AdminLog, error) {
	e := actorEntry(admin, models.ActionLogout, "Admin logged out", ip)
	e.TargetType, e.TargetID = models.TargetUser, uintPtr(admin.ID)
	return a.Record(ctx, e)
}

// LogUserAction records a user-lifecycle action against target.
func (a *AuditLogService) LogUserAction(ctx context.Context, admin *models.User, action models.AdminActionType, target *models.User, description, ip string) (*models.AdminLog, error) {
	e := actorEntry(admin, action, description, ip)
	e.TargetType, e.TargetID = models.TargetUser, uintPtr(target.ID)
	e.Details = "Target user: " + target.Username
	return a.Record(ctx, e)
}

func (a *AuditLogService) LogPostAction(ctx context.Context, admin *models.User, action models.AdminActionType, postID uint, description, ip string) (*models.AdminLog, error) {
	e := actorEntry(admin, action, description, ip)
	e.TargetType, e.TargetID = models.TargetPost, uintPtr(postID)
	return a.Record(ctx, e)
}

func (a *AuditLogService) LogCommentDelete(ctx context.Context, admin *models.User, commentID, postID uint, ip string) (*models.AdminLog, error) {
	e := actorEntry(admin, models.ActionCommentDelete, "Comment deleted", ip)
	e.TargetType, e.TargetID = models.TargetComment, uintPtr(commentID)
	e.Details = "Post ID: " + strconv.FormatUint(uint64(postID), 10)
	return a.Record(ctx, e)
}

func (a *AuditLogService) LogSettingsUpdate(ctx context.Context, admin *models.User, key, oldValue, newValue, ip string) (*models.AdminLog, error) {
	e := actorEntry(admin, models.ActionSettingsUpdate, "System setting updated", ip)
	e.TargetType = models.TargetSettings
	e.Details = fmt.Sprintf("Setting: %s, Old: %s, New: %s", key, oldValue, newValue)
	return a.Record(ctx, e)
}

func (a *AuditLogService) LogMaintenanceMode(ctx context.Context, admin *models.User, enabled bool, ip string) (*models.AdminLog, error) {
	e := actorEntry(admin, models.ActionMaintenanceModeOff, "Maintenance mode disabled", ip)
	if enabled {
		e.ActionType, e.Description = models.ActionMaintenanceModeOn, "Maintenance mode enabled"
	}
	e.TargetType = models.TargetSystem
	return a.Record(ctx, e)
}

func (a *AuditLogService) LogSystemAction(ctx context.Context, admin *models.User, description, ip string) (*models.AdminLog, error) {
	e := actorEntry(admin, models.ActionSystem, description, ip)
	e.TargetType = models.TargetSystem
	return a.Record(ctx, e)
}

func (a *AuditLogService) ordered(ctx context.Context) *gorm.DB {
	return a.db.WithContext(ctx).Model(&models.AdminLog{}).Order("created_at DESC, id DESC")
}

// RecentEntries returns the newest entries; limit <= 0 means 50.
func (a *AuditLogService) RecentEntries(ctx context.Context, limit int) ([]models.AdminLog, error) {
	if limit <= 0 {
		limit = DefaultRecentAuditEntries
	}
	entries := []models.AdminLog{}
	if err := a.ordered(ctx).Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("recent audit entries: %w", err)
	}
	return entries, nil
}

// EntriesPage pages through the trail newest first. page is zero based.
func (a *AuditLogService) EntriesPage(ctx context.Context, page, size int) (*AuditPage, error) {
	page, size = normalizePage(page, size)
	var total int64
	if err := a.db.WithContext(ctx).Model(&models.AdminLog{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}
	items := []models.AdminLog{}
	if err := a.ordered(ctx).Offset(page * size).Limit(size).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("page audit entries: %w", err)
	}
	return newPage(items, page, size, total), nil
}

func (a *AuditLogService) EntriesByActor(ctx context.Context, actorID uint) ([]models.AdminLog, error) {
	entries := []models.AdminLog{}
	if err := a.ordered(ctx).Where("admin_id = ?", actorID).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("audit entries by actor %d: %w", actorID, err)
	}
	return entries, nil
}

func (a *AuditLogService) EntriesByTarget(ctx context.Context, targetType string, targetID uint) ([]models.AdminLog, error) {
	entries := []models.AdminLog{}
	err := a.ordered(ctx).Where("target_type = ? AND target_id = ?", targetType, targetID).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("audit entries by target %s/%d: %w", targetType, targetID, err)
	}
	return entries, nil
}

func (a *AuditLogService) EntriesByActionType(ctx context.Context, action models.AdminActionType) ([]models.AdminLog, error) {
	entries := []models.AdminLog{}
	if err := a.ordered(ctx).Where("action_type = ?", action).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("audit entries by action %s: %w", action, err)
	}
	return entries, nil
}

// EntriesBetween returns entries with from <= created_at <= to.
func (a *AuditLogService) EntriesBetween(ctx context.Context, from, to time.Time) ([]models.AdminLog, error) {
	if to.Before(from) {
		return nil, invalid("end of range is before its start")
	}
	entries := []models.AdminLog{}
	err := a.ordered(ctx).Where("created_at >= ? AND created_at <= ?", from.UTC(), to.UTC()).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("audit entries between: %w", err)
	}
	return entries, nil
}

// TodayLoginCount counts LOGIN entries since local midnight.
func (a *AuditLogService) TodayLoginCount(ctx context.Context) (int64, error) {
	midnight := utils.StartOfDay(a.now(), a.loc)
	var n int64
	err := a.db.WithContext(ctx).Model(&models.AdminLog{}).
		Where("action_type = ? AND created_at >= ?", models.ActionLogin, midnight.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count today's logins: %w", err)
	}
	return n, nil
}

// CountActionsByDay buckets entries since the given time by local calendar
// day, newest day first. Bucketing happens here so the query stays portable
// across sqlite and Postgres.
func (a *AuditLogService) CountActionsByDay(ctx context.Context, since time.Time) ([]models.DailyCount, error) {
	var stamps []time.Time
	err := a.db.WithContext(ctx).Model(&models.AdminLog{}).
		Where("created_at >= ?", since.UTC()).
		Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("audit actions by day: %w", err)
	}
	return bucketByDay(stamps, a.loc), nil
}

func bucketByDay(stamps []time.Time, loc *time.Location) []models.DailyCount {
	counts := map[string]int64{}
	for _, ts := range stamps {
		counts[ts.In(loc).Format(time.DateOnly)]++
	}
	out := make([]models.DailyCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, models.DailyCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

// warnAuditFailure logs a failed audit write. The triggering action stands.
func warnAuditFailure(action models.AdminActionType, err error) {
	if err != nil {
		slog.Warn("audit write failed", "action_type", action, "error", err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func uintPtr(v uint) *uint {
	return &v
}
