package models

import "time"

// Well-known setting keys. The admin settings form posts these names.
const (
	SettingSiteName               = "site_name"
	SettingSiteDescription        = "site_description"
	SettingMaintenanceMode        = "maintenance_mode"
	SettingMaintenanceMessage     = "maintenance_message"
	SettingDefaultUserRole        = "default_user_role"
	SettingRegistrationEnabled    = "registration_enabled"
	SettingCommentsEnabled        = "comments_enabled"
	SettingMaxLoginAttempts       = "max_login_attempts"
	SettingLockoutDurationMinutes = "lockout_duration_minutes"
)

const (
	SettingTypeString  = "STRING"
	SettingTypeBoolean = "BOOLEAN"
	SettingTypeInteger = "INTEGER"
)

type SystemSetting struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SettingKey   string    `gorm:"size:100;not null;uniqueIndex" json:"setting_key"`
	SettingValue *string   `gorm:"type:text" json:"setting_value"`
	SettingType  string    `gorm:"size:20;not null" json:"setting_type"`
	Description  *string   `gorm:"size:500" json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UpdatedBy    string    `gorm:"size:50" json:"updated_by"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// StringValue returns the stored value or "" for NULL.
func (s *SystemSetting) StringValue() string {
	if s.SettingValue == nil {
		return ""
	}
	return *s.SettingValue
}
