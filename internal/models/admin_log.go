package models

import (
	"time"

	"gorm.io/gorm"
)

type AdminActionType string

const (
	ActionLogin              AdminActionType = "LOGIN"
	ActionLogout             AdminActionType = "LOGOUT"
	ActionUserCreate         AdminActionType = "USER_CREATE"
	ActionUserUpdate         AdminActionType = "USER_UPDATE"
	ActionUserDelete         AdminActionType = "USER_DELETE"
	ActionUserEnable         AdminActionType = "USER_ENABLE"
	ActionUserDisable        AdminActionType = "USER_DISABLE"
	ActionUserRoleChange     AdminActionType = "USER_ROLE_CHANGE"
	ActionPostCreate         AdminActionType = "POST_CREATE"
	ActionPostUpdate         AdminActionType = "POST_UPDATE"
	ActionPostDelete         AdminActionType = "POST_DELETE"
	ActionPostPublish        AdminActionType = "POST_PUBLISH"
	ActionPostUnpublish      AdminActionType = "POST_UNPUBLISH"
	ActionPostFeature        AdminActionType = "POST_FEATURE"
	ActionCommentDelete      AdminActionType = "COMMENT_DELETE"
	ActionSettingsUpdate     AdminActionType = "SETTINGS_UPDATE"
	ActionMaintenanceModeOn  AdminActionType = "MAINTENANCE_MODE_ON"
	ActionMaintenanceModeOff AdminActionType = "MAINTENANCE_MODE_OFF"
	ActionSystem             AdminActionType = "SYSTEM_ACTION"
)

// AdminActionTypes lists the closed action vocabulary in declaration order.
var AdminActionTypes = []AdminActionType{
	ActionLogin, ActionLogout,
	ActionUserCreate, ActionUserUpdate, ActionUserDelete, ActionUserEnable, ActionUserDisable, ActionUserRoleChange,
	ActionPostCreate, ActionPostUpdate, ActionPostDelete, ActionPostPublish, ActionPostUnpublish, ActionPostFeature,
	ActionCommentDelete,
	ActionSettingsUpdate, ActionMaintenanceModeOn, ActionMaintenanceModeOff,
	ActionSystem,
}

func (t AdminActionType) Valid() bool {
	for _, known := range AdminActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Audit target types.
const (
	TargetUser     = "USER"
	TargetPost     = "POST"
	TargetComment  = "COMMENT"
	TargetSettings = "SETTINGS"
	TargetSystem   = "SYSTEM"
)

// AdminLog is one entry of the administrative audit trail. Rows are written
// once and never changed; AdminID has no foreign key so deleting a user keeps
// their history.
type AdminLog struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	AdminID       uint            `gorm:"not null;index" json:"admin_id"`
	AdminUsername string          `gorm:"size:50;not null" json:"admin_username"`
	ActionType    AdminActionType `gorm:"size:30;not null;index" json:"action_type"`
	Action        string          `gorm:"size:500;not null" json:"action"`
	TargetType    *string         `gorm:"size:20;index:idx_admin_logs_target" json:"target_type"`
	TargetID      *uint           `gorm:"index:idx_admin_logs_target" json:"target_id"`
	Details       *string         `gorm:"type:text" json:"details"`
	IPAddress     *string         `gorm:"column:ip_address;size:64" json:"ip_address"`
	CreatedAt     time.Time       `gorm:"not null;index" json:"created_at"`
}

func (AdminLog) TableName() string {
	return "admin_logs"
}

func (l *AdminLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}

func (l *AdminLog) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRecord
}
