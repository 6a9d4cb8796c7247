package models

import "gorm.io/gorm"

// Связь "риск → первопричина". Инвариант: у риска ровно одна
// запись с IsPrimary = true, пока привязана хотя бы одна причина.
type RiskRootCause struct {
	gorm.Model

	RiskID  uint `gorm:"uniqueIndex:idx_risk_cause"`
	CauseID uint `gorm:"uniqueIndex:idx_risk_cause"`

	IsPrimary       bool
	ContributionPct float64 // вклад причины, 0..100
	Notes           string  `gorm:"type:text"`

	Risk  Risk
	Cause Cause
}

// Связь "риск → последствие". Тот же инвариант единственного primary.
type RiskImpact struct {
	gorm.Model

	RiskID   uint `gorm:"uniqueIndex:idx_risk_impact"`
	ImpactID uint `gorm:"uniqueIndex:idx_risk_impact"`

	IsPrimary   bool
	SeverityPct float64
	Notes       string `gorm:"type:text"`

	Risk   Risk
	Impact Impact
}

// Связь "риск → контроль"
type RiskControl struct {
	gorm.Model

	RiskID    uint `gorm:"uniqueIndex:idx_risk_control"`
	ControlID uint `gorm:"uniqueIndex:idx_risk_control"`

	Effectiveness int    // 1..5
	Status        string `gorm:"size:32"` // planned / implemented / ineffective

	Risk    Risk
	Control Control
}
