package services

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/blogprojesi/backend/internal/models"
)

// SettingChange is one value changed by UpdateSettings.
type SettingChange struct {
	Key      string `json:"key"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// UpdateSettings applies a batch from the admin settings form. Only
// well-known keys are accepted and the whole batch is validated before the
// first write. Every changed key is audited as SETTINGS_UPDATE and a flip of
// maintenance_mode additionally as MAINTENANCE_MODE_ON/OFF.
func UpdateSettings(ctx context.Context, settings *SettingsService, audit *AuditLogService, admin *models.User, values map[string]string, ip string) ([]SettingChange, error) {
	normalized := make(map[string]string, len(values))
	for key, raw := range values {
		d, known := lookupDefault(key)
		if !known {
			return nil, invalid("unknown setting %q", key)
		}
		value, err := normalizeSetting(d, raw)
		if err != nil {
			return nil, err
		}
		normalized[key] = value
	}

	current, err := settings.AsMap(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(normalized))
	for key := range normalized {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	changes := []SettingChange{}
	for _, key := range keys {
		newValue, oldValue := normalized[key], current[key]
		if newValue == oldValue {
			continue
		}
		if _, err := settings.Set(ctx, key, newValue, admin.Username); err != nil {
			return changes, err
		}
		changes = append(changes, SettingChange{Key: key, OldValue: oldValue, NewValue: newValue})

		_, err := audit.LogSettingsUpdate(ctx, admin, key, oldValue, newValue, ip)
		warnAuditFailure(models.ActionSettingsUpdate, err)
		if key == models.SettingMaintenanceMode {
			enabled := newValue == "true"
			action := models.ActionMaintenanceModeOff
			if enabled {
				action = models.ActionMaintenanceModeOn
			}
			_, err := audit.LogMaintenanceMode(ctx, admin, enabled, ip)
			warnAuditFailure(action, err)
		}
	}
	return changes, nil
}

func normalizeSetting(d settingDefault, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch d.settingType {
	case models.SettingTypeBoolean:
		switch strings.ToLower(raw) {
		case "true", "on", "1":
			return "true", nil
		case "false", "off", "0", "":
			return "false", nil
		}
		return "", invalid("%s must be true or false", d.key)
	case models.SettingTypeInteger:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return "", invalid("%s must be a whole number of at least 1", d.key)
		}
		if ceiling, ok := integerCeiling(d.key); ok && n > ceiling {
			return "", invalid("%s must be at most %d", d.key, ceiling)
		}
		return strconv.Itoa(n), nil
	}
	if d.key == models.SettingDefaultUserRole {
		role := strings.ToUpper(raw)
		if !models.ValidRole(role) {
			return "", invalid("unknown role %q", raw)
		}
		return role, nil
	}
	if d.key == models.SettingSiteName && raw == "" {
		return "", invalid("site name cannot be empty")
	}
	return raw, nil
}
