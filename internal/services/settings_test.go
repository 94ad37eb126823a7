package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogprojesi/backend/internal/models"
)

type memoryCache struct {
	mu          sync.Mutex
	values      map[string]string
	invalidated []string
	// beforeFill runs at the start of Fill, outside the lock.
	beforeFill func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryCache) Fill(_ context.Context, key, value string) error {
	if hook := m.beforeFill; hook != nil {
		m.beforeFill = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		m.values[key] = value
	}
	return nil
}

func (m *memoryCache) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.invalidated = append(m.invalidated, key)
	return nil
}

func TestSettings_GetIntRoundTrip(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Settings

	_, err := s.Set(f.ctx, "k", "42", "alice")
	require.NoError(t, err)
	assert.Equal(t, 42, s.GetInt(f.ctx, "k", 0))

	_, err = s.Set(f.ctx, "k", "not-a-number", "alice")
	require.NoError(t, err)
	assert.Equal(t, 7, s.GetInt(f.ctx, "k", 7))
}

func TestSettings_TypedGetters(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Settings

	assert.Equal(t, "fallback", s.GetString(f.ctx, "missing", "fallback"))
	assert.True(t, s.GetBool(f.ctx, "missing", true))

	_, err := s.Set(f.ctx, "flag", "TRUE", "alice")
	require.NoError(t, err)
	assert.True(t, s.GetBool(f.ctx, "flag", false))

	_, err = s.Set(f.ctx, "flag", "maybe", "alice")
	require.NoError(t, err)
	assert.False(t, s.GetBool(f.ctx, "flag", false))
	assert.True(t, s.GetBool(f.ctx, "flag", true))
}

func TestSettings_SetUpsertsSingleRow(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Settings

	first, err := s.Set(f.ctx, models.SettingSiteName, "One", "alice")
	require.NoError(t, err)
	second, err := s.Set(f.ctx, models.SettingSiteName, "Two", "bob")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Two", second.StringValue())
	assert.Equal(t, "bob", second.UpdatedBy)
	assert.Equal(t, models.SettingTypeString, second.SettingType)

	var n int64
	require.NoError(t, f.db.Model(&models.SystemSetting{}).Where("setting_key = ?", models.SettingSiteName).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSettings_TypeFromCatalogue(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Settings

	row, err := s.Set(f.ctx, models.SettingMaxLoginAttempts, "3", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.SettingTypeInteger, row.SettingType)

	row, err = s.SetBool(f.ctx, "custom_flag", true, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.SettingTypeBoolean, row.SettingType)
	assert.Equal(t, "true", row.StringValue())

	row, err = s.SetInt(f.ctx, "custom_number", 12, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.SettingTypeInteger, row.SettingType)

	_, err = s.Set(f.ctx, "  ", "x", "alice")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSettings_DefaultsBeforeAndAfterInitialize(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Settings

	assert.Equal(t, 5, s.MaxLoginAttempts(f.ctx))
	assert.Equal(t, 30, s.LockoutDurationMinutes(f.ctx))

	_, err := s.Set(f.ctx, models.SettingLockoutDurationMinutes, "45", "alice")
	require.NoError(t, err)

	require.NoError(t, s.InitializeDefaults(f.ctx))
	require.NoError(t, s.InitializeDefaults(f.ctx))

	var row models.SystemSetting
	require.NoError(t, f.db.Where("setting_key = ?", models.SettingMaxLoginAttempts).First(&row).Error)
	assert.Equal(t, "5", row.StringValue())
	assert.Equal(t, SystemActor, row.UpdatedBy)

	assert.Equal(t, 45, s.LockoutDurationMinutes(f.ctx), "initialize must not overwrite an existing value")

	all, err := s.All(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(defaultSettings))
}

func TestSettings_ConvenienceAccessors(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Settings
	require.NoError(t, s.InitializeDefaults(f.ctx))

	assert.False(t, s.IsMaintenanceMode(f.ctx))
	assert.True(t, s.IsRegistrationEnabled(f.ctx))
	assert.True(t, s.AreCommentsEnabled(f.ctx))
	assert.Equal(t, models.RoleUser, s.DefaultUserRole(f.ctx))
	assert.NotEmpty(t, s.MaintenanceMessage(f.ctx))

	_, err := s.Set(f.ctx, models.SettingDefaultUserRole, "superuser", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, s.DefaultUserRole(f.ctx))

	values, err := s.AsMap(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "superuser", values[models.SettingDefaultUserRole])
	assert.Equal(t, "5", values[models.SettingMaxLoginAttempts])
}

func TestSettings_CacheReadThroughAndWriteThrough(t *testing.T) {
	gdb := newTestDB(t)
	cache := newMemoryCache()
	s := NewSettingsService(gdb, cache)
	ctx := context.Background()

	_, err := s.Set(ctx, models.SettingSiteName, "Cached", "alice")
	require.NoError(t, err)
	v, ok, _ := cache.Get(ctx, models.SettingSiteName)
	require.True(t, ok)
	assert.Equal(t, "Cached", v)
	assert.Equal(t, "Cached", s.SiteName(ctx))

	_, err = s.Set(ctx, models.SettingSiteName, "Fresh", "alice")
	require.NoError(t, err)
	v, _, _ = cache.Get(ctx, models.SettingSiteName)
	assert.Equal(t, "Fresh", v)
	assert.Equal(t, "Fresh", s.SiteName(ctx))
	assert.Empty(t, cache.invalidated)

	// A key written behind the cache's back is filled on first read.
	require.NoError(t, cache.Invalidate(ctx, models.SettingSiteName))
	assert.Equal(t, "Fresh", s.SiteName(ctx))
	v, ok, _ = cache.Get(ctx, models.SettingSiteName)
	require.True(t, ok)
	assert.Equal(t, "Fresh", v)
}

func TestSettings_FillRacingWriteKeepsNewValue(t *testing.T) {
	gdb := newTestDB(t)
	cache := newMemoryCache()
	s := NewSettingsService(gdb, cache)
	ctx := context.Background()

	_, err := s.SetInt(ctx, models.SettingMaxLoginAttempts, 5, "alice")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, models.SettingMaxLoginAttempts))

	// The reader has loaded 5 from the table; the write of 3 commits before
	// the reader's fill reaches the cache.
	cache.beforeFill = func() {
		_, err := s.Set(ctx, models.SettingMaxLoginAttempts, "3", "bob")
		require.NoError(t, err)
	}
	assert.Equal(t, 5, s.MaxLoginAttempts(ctx))

	assert.Equal(t, 3, s.MaxLoginAttempts(ctx))
	v, _, _ := cache.Get(ctx, models.SettingMaxLoginAttempts)
	assert.Equal(t, "3", v)
}

func TestSettings_DatabaseErrorYieldsDefault(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "system_settings"`)).WillReturnError(errors.New("connection reset"))

	s := NewSettingsService(gdb, nil)
	assert.Equal(t, DefaultMaxLoginAttempts, s.MaxLoginAttempts(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
