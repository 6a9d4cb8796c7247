package models

import (
	"time"

	"gorm.io/gorm"
)

type LimitDirection string
type LimitKind string
type ExceptionStatus string

const (
	LimitAbove   LimitDirection = "above"   // нарушение при value >= границы
	LimitBelow   LimitDirection = "below"   // нарушение при value <= границы
	LimitBetween LimitDirection = "between" // нарушение при выходе из коридора

	LimitNone LimitKind = "none"
	LimitSoft LimitKind = "soft"
	LimitHard LimitKind = "hard"

	ExceptionNone     ExceptionStatus = ""
	ExceptionPending  ExceptionStatus = "pending_approval"
	ExceptionApproved ExceptionStatus = "approved"
	ExceptionRejected ExceptionStatus = "rejected"
	ExceptionExpired  ExceptionStatus = "expired"
)

// Толеранс риск-аппетита организации: мягкая и жёсткая границы
// для метрики. Для направления between нижняя граница лежит в
// SoftLimit/HardLimit, верхняя — в SoftUpper/HardUpper.
type ToleranceLimit struct {
	gorm.Model
	OrganizationID uint `gorm:"index"`

	Metric    string         `gorm:"size:128;not null"` // например: operational_loss_pct
	Name      string         `gorm:"size:255;not null"`
	Direction LimitDirection `gorm:"type:varchar(10);not null"`
	Unit      string         `gorm:"size:32"`

	SoftLimit *float64
	HardLimit *float64
	SoftUpper *float64 // только для between
	HardUpper *float64 // только для between

	// Роли для уведомлений, через запятую: "risk_manager,board"
	SoftNotifyRoles string `gorm:"size:255"`
	HardNotifyRoles string `gorm:"size:255"`

	BoardEscalation bool // жёсткое нарушение требует эскалации на правление
	RegulatorNotify bool
	GraceDays       int // срок на исправление до обязательного исключения
}

// Нарушение толеранса / жёсткого лимита аппетита. Параллельно Breach,
// но на уровне организации, с workflow исключения.
type RiskBreach struct {
	gorm.Model
	OrganizationID uint `gorm:"index"`

	LimitID uint `gorm:"index"`
	RiskID  *uint

	Kind          LimitKind `gorm:"type:varchar(10);not null"`
	MeasuredValue float64
	LimitValue    float64
	Unit          string `gorm:"size:32"`

	Status     BreachWorkflowStatus `gorm:"type:varchar(20);not null;default:'active'"`
	DetectedAt time.Time
	ResolvedAt *time.Time

	// Однонаправленная защёлка: однажды взведённые флаги не сбрасываются
	BoardNotificationRequired     bool
	RegulatorNotificationRequired bool
	NotifiedRoles                 string `gorm:"size:255"`

	// Workflow исключения для жёстких нарушений
	ExceptionStatus       ExceptionStatus `gorm:"type:varchar(20);not null;default:''"`
	BusinessJustification string          `gorm:"type:text"`
	CompensatingControls  string          `gorm:"type:text"`
	ValidUntil            *time.Time
	RequestedByID         uint
	DecidedByID           uint
	DecisionReason        string `gorm:"type:text"`
	DecidedAt             *time.Time

	Limit ToleranceLimit `gorm:"foreignKey:LimitID"`
}
