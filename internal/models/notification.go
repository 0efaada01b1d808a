package models

import "time"

// Notification is a per-user message, created by the recall fan-out.
type Notification struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	UserID  string `gorm:"size:64;not null;index"`
	Title   string `gorm:"size:128"`
	Message string `gorm:"type:text"`
	Type    string `gorm:"size:16;default:info"`
	BatchID string `gorm:"size:64;index"`
	Read    bool   `gorm:"default:false;index"`

	CreatedAt time.Time
}

// UserRole maps a user to their supply-chain role. The recall fan-out
// notifies every row in this table.
type UserRole struct {
	UserID string `gorm:"primaryKey;size:64"`
	Role   string `gorm:"size:32;not null"`

	CreatedAt time.Time
}
