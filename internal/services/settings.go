package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blogprojesi/backend/internal/models"
)

const (
	DefaultMaxLoginAttempts       = 5
	DefaultLockoutDurationMinutes = 30
	SystemActor                   = "SYSTEM"

	// Upper bounds for the lockout settings. They keep the IP threshold and
	// the lockout window far from integer and time.Duration overflow.
	MaxLoginAttemptsCeiling       = 1000
	LockoutDurationMinutesCeiling = 525600
)

type settingDefault struct {
	key         string
	value       string
	settingType string
	description string
}

// defaultSettings is the catalogue written by InitializeDefaults. The type
// column of a key created later through Set is taken from here as well.
var defaultSettings = []settingDefault{
	{models.SettingSiteName, "Blog Projesi", models.SettingTypeString, "Site name"},
	{models.SettingSiteDescription, "Harika bir blog platformu", models.SettingTypeString, "Site description"},
	{models.SettingMaintenanceMode, "false", models.SettingTypeBoolean, "Maintenance mode"},
	{models.SettingMaintenanceMessage, "Site is under maintenance. Please check back soon.", models.SettingTypeString, "Maintenance message"},
	{models.SettingDefaultUserRole, models.RoleUser, models.SettingTypeString, "Role given to newly registered users"},
	{models.SettingRegistrationEnabled, "true", models.SettingTypeBoolean, "Allow new registrations"},
	{models.SettingCommentsEnabled, "true", models.SettingTypeBoolean, "Allow comments"},
	{models.SettingMaxLoginAttempts, strconv.Itoa(DefaultMaxLoginAttempts), models.SettingTypeInteger, "Failed logins before lockout"},
	{models.SettingLockoutDurationMinutes, strconv.Itoa(DefaultLockoutDurationMinutes), models.SettingTypeInteger, "Lockout window in minutes"},
}

// SettingsCache is an optional read-through cache in front of the settings
// table. Writes store the committed value with Set; reads fill a missing key
// with Fill, which never replaces a value that is already cached, so a fill
// from a read that raced a write cannot resurrect the old value.
type SettingsCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Fill(ctx context.Context, key, value string) error
	Invalidate(ctx context.Context, key string) error
}

// SettingsService is the key/value store behind the admin settings screen.
// Typed getters never fail: absence, NULL and parse errors all yield the
// caller's default.
type SettingsService struct {
	db    *gorm.DB
	cache SettingsCache
}

// NewSettingsService builds the store. cache may be nil, in which case every
// read consults the database.
func NewSettingsService(db *gorm.DB, cache SettingsCache) *SettingsService {
	return &SettingsService{db: db, cache: cache}
}

func (s *SettingsService) lookup(ctx context.Context, key string) (string, bool) {
	if s.cache != nil {
		v, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("settings cache read failed", "key", key, "error", err)
		} else if ok {
			return v, true
		}
	}

	var setting models.SystemSetting
	err := s.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("settings read failed, using default", "key", key, "error", err)
		}
		return "", false
	}
	if setting.SettingValue == nil {
		return "", false
	}

	if s.cache != nil {
		if err := s.cache.Fill(ctx, key, *setting.SettingValue); err != nil {
			slog.Warn("settings cache fill failed", "key", key, "error", err)
		}
	}
	return *setting.SettingValue, true
}

func (s *SettingsService) GetString(ctx context.Context, key, def string) string {
	if v, ok := s.lookup(ctx, key); ok {
		return v
	}
	return def
}

// GetBool accepts "true"/"false" in any case.
func (s *SettingsService) GetBool(ctx context.Context, key string, def bool) bool {
	v, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}

func (s *SettingsService) GetInt(ctx context.Context, key string, def int) int {
	v, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Set upserts key. An existing row keeps its created_at and type; value,
// updated_by and updated_at are replaced. Concurrent writers race with
// last-write-wins. A new row takes its type from the well-known catalogue,
// STRING otherwise.
func (s *SettingsService) Set(ctx context.Context, key, value, updatedBy string) (*models.SystemSetting, error) {
	settingType := models.SettingTypeString
	if d, ok := lookupDefault(key); ok {
		settingType = d.settingType
	}
	return s.upsert(ctx, key, value, settingType, updatedBy)
}

func (s *SettingsService) SetBool(ctx context.Context, key string, value bool, updatedBy string) (*models.SystemSetting, error) {
	return s.upsert(ctx, key, strconv.FormatBool(value), models.SettingTypeBoolean, updatedBy)
}

func (s *SettingsService) SetInt(ctx context.Context, key string, value int, updatedBy string) (*models.SystemSetting, error) {
	return s.upsert(ctx, key, strconv.Itoa(value), models.SettingTypeInteger, updatedBy)
}

func (s *SettingsService) upsert(ctx context.Context, key, value, settingType, updatedBy string) (*models.SystemSetting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, invalid("setting key is required")
	}

	row := models.SystemSetting{
		SettingKey:   key,
		SettingValue: &value,
		SettingType:  settingType,
		UpdatedBy:    updatedBy,
	}
	if d, ok := lookupDefault(key); ok {
		desc := d.description
		row.Description = &desc
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("save setting %s: %w", key, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value); err != nil {
			slog.Warn("settings cache write failed", "key", key, "error", err)
			if err := s.cache.Invalidate(ctx, key); err != nil {
				slog.Warn("settings cache invalidate failed", "key", key, "error", err)
			}
		}
	}

	var saved models.SystemSetting
	if err := s.db.WithContext(ctx).Where("setting_key = ?", key).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload setting %s: %w", key, err)
	}
	return &saved, nil
}

// InitializeDefaults inserts every well-known key that does not exist yet.
// Existing rows are never touched, so it is safe on every startup and
// against a value written concurrently.
func (s *SettingsService) InitializeDefaults(ctx context.Context) error {
	for _, d := range defaultSettings {
		value := d.value
		desc := d.description
		row := models.SystemSetting{
			SettingKey:   d.key,
			SettingValue: &value,
			SettingType:  d.settingType,
			Description:  &desc,
			UpdatedBy:    SystemActor,
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("initialize setting %s: %w", d.key, err)
		}
	}
	slog.Info("default settings ensured", "keys", len(defaultSettings))
	return nil
}

// All returns every stored row ordered by key.
func (s *SettingsService) All(ctx context.Context) ([]models.SystemSetting, error) {
	var settings []models.SystemSetting
	if err := s.db.WithContext(ctx).Order("setting_key").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// AsMap returns the effective value of every well-known key plus any other
// stored key. Missing well-known keys report their default.
func (s *SettingsService) AsMap(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(defaultSettings))
	for _, d := range defaultSettings {
		out[d.key] = d.value
	}
	settings, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range settings {
		if st.SettingValue != nil {
			out[st.SettingKey] = *st.SettingValue
		}
	}
	return out, nil
}

// MaxLoginAttempts is the stored threshold. A value below 1 yields the
// default and one above MaxLoginAttemptsCeiling is capped.
func (s *SettingsService) MaxLoginAttempts(ctx context.Context) int {
	return boundedInt(s.GetInt(ctx, models.SettingMaxLoginAttempts, DefaultMaxLoginAttempts),
		DefaultMaxLoginAttempts, MaxLoginAttemptsCeiling)
}

// LockoutDurationMinutes is bounded the same way as MaxLoginAttempts.
func (s *SettingsService) LockoutDurationMinutes(ctx context.Context) int {
	return boundedInt(s.GetInt(ctx, models.SettingLockoutDurationMinutes, DefaultLockoutDurationMinutes),
		DefaultLockoutDurationMinutes, LockoutDurationMinutesCeiling)
}

func boundedInt(n, def, ceiling int) int {
	if n < 1 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}

// integerCeiling is the largest value accepted for an integer setting.
func integerCeiling(key string) (int, bool) {
	switch key {
	case models.SettingMaxLoginAttempts:
		return MaxLoginAttemptsCeiling, true
	case models.SettingLockoutDurationMinutes:
		return LockoutDurationMinutesCeiling, true
	}
	return 0, false
}

func (s *SettingsService) SiteName(ctx context.Context) string {
	return s.GetString(ctx, models.SettingSiteName, "Blog Projesi")
}

func (s *SettingsService) IsMaintenanceMode(ctx context.Context) bool {
	return s.GetBool(ctx, models.SettingMaintenanceMode, false)
}

func (s *SettingsService) MaintenanceMessage(ctx context.Context) string {
	d, _ := lookupDefault(models.SettingMaintenanceMessage)
	return s.GetString(ctx, models.SettingMaintenanceMessage, d.value)
}

func (s *SettingsService) IsRegistrationEnabled(ctx context.Context) bool {
	return s.GetBool(ctx, models.SettingRegistrationEnabled, true)
}

func (s *SettingsService) AreCommentsEnabled(ctx context.Context) bool {
	return s.GetBool(ctx, models.SettingCommentsEnabled, true)
}

// DefaultUserRole falls back to USER when the stored role is unknown.
func (s *SettingsService) DefaultUserRole(ctx context.Context) string {
	role := strings.ToUpper(s.GetString(ctx, models.SettingDefaultUserRole, models.RoleUser))
	if !models.ValidRole(role) {
		return models.RoleUser
	}
	return role
}

func lookupDefault(key string) (settingDefault, bool) {
	for _, d := range defaultSettings {
		if d.key == key {
			return d, true
		}
	}
	return settingDefault{}, false
}
