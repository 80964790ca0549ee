package models

import (
	"time"
)

// AuditLog is a best-effort operational trail. Writes are fire-and-forget and
// never fail the operation they describe.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"size:60;not null;index" json:"type"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Meta      JSONMap   `gorm:"type:jsonb" json:"meta"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
