package models

import (
	"time"

	"gorm.io/gorm"
)

// LoginAttempt is one submitted login form, successful or not.
type LoginAttempt struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:100;not null;index" json:"username"`
	IPAddress    *string   `gorm:"column:ip_address;size:64;index" json:"ip_address"`
	AttemptTime  time.Time `gorm:"not null;index" json:"attempt_time"`
	Success      bool      `gorm:"not null" json:"success"`
	IsAdminLogin bool      `gorm:"not null" json:"is_admin_login"`
}

func (LoginAttempt) TableName() string {
	return "login_attempts"
}

// BeforeUpdate keeps attempts append-only. Deletes stay allowed for the
// failure reset and the retention sweep.
func (a *LoginAttempt) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}
