package models

import (
	"time"

	"gorm.io/gorm"
)

type BreachWorkflowStatus string
type BreachPriority string

const (
	BreachActive        BreachWorkflowStatus = "active"
	BreachInvestigating BreachWorkflowStatus = "investigating"
	BreachMitigating    BreachWorkflowStatus = "mitigating"
	BreachResolved      BreachWorkflowStatus = "resolved"
	BreachFalsePositive BreachWorkflowStatus = "false_positive"

	PriorityLow      BreachPriority = "low"
	PriorityMedium   BreachPriority = "medium"
	PriorityHigh     BreachPriority = "high"
	PriorityCritical BreachPriority = "critical"
)

// Terminal — терминальный ли статус (дальнейшие переходы запрещены).
func (s BreachWorkflowStatus) Terminal() bool {
	return s == BreachResolved || s == BreachFalsePositive
}

// Запись о нарушении порога индикатора. Создаётся движком при
// классификации замера; пользователи меняют только workflow-поля
// через операции жизненного цикла. Никогда не удаляется.
type Breach struct {
	gorm.Model
	OrganizationID uint `gorm:"index"`

	AssignmentID uint `gorm:"index"`
	IndicatorID  uint
	RiskID       uint

	Level          BreachLevel `gorm:"type:varchar(20);not null"`
	MeasuredValue  float64
	ThresholdValue float64
	ThresholdKind  string `gorm:"size:16"` // warning / critical
	Unit           string `gorm:"size:32"`

	// NULL когда порог равен нулю (процент не определён)
	BreachPct        *float64
	ConsecutiveCount int `gorm:"not null;default:1"`

	Status   BreachWorkflowStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Priority BreachPriority       `gorm:"type:varchar(20);not null"`
	// true после явной установки приоритета пользователем;
	// автоподбор после этого не трогает поле
	PriorityPinned bool

	ActionOwnerID     uint
	DetectedAt        time.Time
	ResolvedAt        *time.Time
	DurationHours     *float64 // фиксируется при переходе в resolved
	ResolutionNotes   string   `gorm:"type:text"`
	RootCauseNotes    string   `gorm:"type:text"`
	PreventiveActions string   `gorm:"type:text"`

	Assignment IndicatorAssignment
	Indicator  IndicatorDefinition
	Risk       Risk
}
