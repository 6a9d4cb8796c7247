package models

import "time"

// Неизменяемый срез состояния риска на момент фиксации периода.
// Связанные сущности денормализованы в JSON, чтобы история не
// «плыла» при последующих правках живых записей.
type RiskHistory struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	RiskID         uint `gorm:"uniqueIndex:idx_history_risk_period"`
	OrganizationID uint `gorm:"index"`

	Year       int    `gorm:"uniqueIndex:idx_history_risk_period"`
	Quarter    int    `gorm:"uniqueIndex:idx_history_risk_period"`
	ChangeType string `gorm:"size:32;uniqueIndex:idx_history_risk_period"` // period_commit

	// Плоская копия ключевых полей риска
	Code               string `gorm:"size:32"`
	Title              string `gorm:"size:255"`
	Category           string `gorm:"size:64"`
	Status             RiskStatus `gorm:"type:varchar(20)"`
	InherentLikelihood int
	InherentImpact     int
	ResidualLikelihood int
	ResidualImpact     int
	InherentRating     int
	ResidualRating     int

	// Полный JSON-срез привязанных причин/последствий/контролей
	Snapshot string `gorm:"type:jsonb"`
}

// Одна запись на (организация, период): period зафиксирован ровно
// один раз, повторный commit отбивается уникальным индексом.
type PeriodCommit struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	OrganizationID uint `gorm:"uniqueIndex:idx_commit_org_period"`
	Year           int  `gorm:"uniqueIndex:idx_commit_org_period"`
	Quarter        int  `gorm:"uniqueIndex:idx_commit_org_period"`

	RiskCount       int
	OpenBreachCount int
	RepairedLinks   int // сколько primary-инвариантов пришлось чинить

	CommittedByID uint
	Notes         string `gorm:"type:text"`
}
