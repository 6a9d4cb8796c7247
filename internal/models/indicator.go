package models

import (
	"time"

	"gorm.io/gorm"
)

type IndicatorType string
type IndicatorStatus string
type Direction string
type Cadence string

const (
	IndicatorKRI IndicatorType = "kri" // индикатор риска
	IndicatorKCI IndicatorType = "kci" // индикатор контроля

	IndicatorActive     IndicatorStatus = "active"
	IndicatorDeprecated IndicatorStatus = "deprecated"

	HigherIsBetter Direction = "higher_is_better"
	LowerIsBetter  Direction = "lower_is_better"

	CadenceDaily     Cadence = "daily"
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
)

// Каталог KRI/KCI организации
type IndicatorDefinition struct {
	gorm.Model
	OrganizationID uint `gorm:"uniqueIndex:idx_indicator_org_code"`

	Code      string          `gorm:"size:32;uniqueIndex:idx_indicator_org_code"`
	Name      string          `gorm:"size:255;not null"`
	Type      IndicatorType   `gorm:"type:varchar(10);not null"`
	Unit      string          `gorm:"size:32"` // %, шт, часы, руб
	Cadence   Cadence         `gorm:"type:varchar(20);not null"`
	Direction Direction       `gorm:"type:varchar(20);not null"`
	Status    IndicatorStatus `gorm:"type:varchar(20);not null"`

	// Пороговые значения по умолчанию. NULL = порог не задан.
	DefaultWarning  *float64
	DefaultCritical *float64
	Target          *float64
}

type BreachLevel string

const (
	LevelUndetermined BreachLevel = "undetermined"
	LevelNormal       BreachLevel = "normal"
	LevelWarning      BreachLevel = "warning"
	LevelCritical     BreachLevel = "critical"
)

// Привязка индикатора к конкретному риску. Переопределения порогов
// имеют приоритет над значениями каталога.
type IndicatorAssignment struct {
	gorm.Model

	RiskID      uint `gorm:"uniqueIndex:idx_risk_indicator"`
	IndicatorID uint `gorm:"uniqueIndex:idx_risk_indicator"`

	WarningOverride  *float64
	CriticalOverride *float64

	CurrentValue   *float64
	LastMeasuredAt *time.Time
	BreachStatus   BreachLevel `gorm:"type:varchar(20);not null;default:'normal'"`

	Risk      Risk                `gorm:"constraint:OnDelete:CASCADE"`
	Indicator IndicatorDefinition `gorm:"constraint:OnDelete:CASCADE"`
}
