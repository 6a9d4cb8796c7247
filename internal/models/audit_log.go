package models

import "time"

type AuditLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	UserID         uint
	User           User
	OrganizationID uint `gorm:"index"`

	Entity   string `gorm:"size:50;not null"` // "breach", "risk_breach", "risk_root_cause" и т.п.
	EntityID uint
	Action   string `gorm:"size:50;not null"` // "create", "status_change", "invariant_repair" и т.п.

	// Снимки до/после в JSON
	Before string `gorm:"type:text"`
	After  string `gorm:"type:text"`

	Details string `gorm:"type:text"`
}
