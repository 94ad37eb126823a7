package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogprojesi/backend/internal/models"
)

func TestUpdateSettings_AppliesAndAuditsChanges(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Settings.InitializeDefaults(f.ctx))

	changes, err := UpdateSettings(f.ctx, f.svc.Settings, f.svc.Audit, systemActor, map[string]string{
		models.SettingSiteName:         "New Name",
		models.SettingMaxLoginAttempts: "5",
		models.SettingMaintenanceMode:  "on",
		models.SettingDefaultUserRole:  "admin",
	}, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, []SettingChange{
		{Key: models.SettingDefaultUserRole, OldValue: models.RoleUser, NewValue: models.RoleAdmin},
		{Key: models.SettingMaintenanceMode, OldValue: "false", NewValue: "true"},
		{Key: models.SettingSiteName, OldValue: "Blog Projesi", NewValue: "New Name"},
	}, changes)

	assert.Equal(t, int64(3), f.auditCount(t, models.ActionSettingsUpdate))
	assert.Equal(t, int64(1), f.auditCount(t, models.ActionMaintenanceModeOn))
	assert.True(t, f.svc.Settings.IsMaintenanceMode(f.ctx))
	assert.Equal(t, "New Name", f.svc.Settings.SiteName(f.ctx))

	var row models.SystemSetting
	require.NoError(t, f.db.Where("setting_key = ?", models.SettingSiteName).First(&row).Error)
	assert.Equal(t, systemActor.Username, row.UpdatedBy)

	_, err = UpdateSettings(f.ctx, f.svc.Settings, f.svc.Audit, systemActor, map[string]string{
		models.SettingMaintenanceMode: "off",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.auditCount(t, models.ActionMaintenanceModeOff))
}

func TestUpdateSettings_RejectsWholeBatch(t *testing.T) {
	f := newFixture(t)

	cases := map[string]map[string]string{
		"unknown key":   {models.SettingSiteName: "Fine", "favourite_colour": "blue"},
		"bad integer":   {models.SettingSiteName: "Fine", models.SettingMaxLoginAttempts: "zero"},
		"zero integer":  {models.SettingLockoutDurationMinutes: "0"},
		"huge attempts": {models.SettingMaxLoginAttempts: "4000000000000000000"},
		"huge window":   {models.SettingLockoutDurationMinutes: "200000000"},
		"bad boolean":   {models.SettingCommentsEnabled: "sometimes"},
		"bad role":      {models.SettingDefaultUserRole: "owner"},
		"empty name":    {models.SettingSiteName: "  "},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := UpdateSettings(f.ctx, f.svc.Settings, f.svc.Audit, systemActor, values, "")
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.Equal(t, "Blog Projesi", f.svc.Settings.SiteName(f.ctx))
	assert.Zero(t, f.auditCount(t, models.ActionSettingsUpdate))
}

func TestUpdateSettings_AcceptsLockoutCeilings(t *testing.T) {
	f := newFixture(t)

	_, err := UpdateSettings(f.ctx, f.svc.Settings, f.svc.Audit, systemActor, map[string]string{
		models.SettingMaxLoginAttempts:       "1000",
		models.SettingLockoutDurationMinutes: "525600",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, MaxLoginAttemptsCeiling, f.svc.Settings.MaxLoginAttempts(f.ctx))
	assert.Equal(t, LockoutDurationMinutesCeiling, f.svc.Settings.LockoutDurationMinutes(f.ctx))

	_, err = UpdateSettings(f.ctx, f.svc.Settings, f.svc.Audit, systemActor, map[string]string{
		models.SettingMaxLoginAttempts: "1001",
	}, "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, MaxLoginAttemptsCeiling, f.svc.Settings.MaxLoginAttempts(f.ctx))
}
