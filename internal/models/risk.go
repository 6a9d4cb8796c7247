package models

import "gorm.io/gorm"

type RiskStatus string

const (
	RiskOpen      RiskStatus = "open"
	RiskMitigated RiskStatus = "mitigated"
	RiskAccepted  RiskStatus = "accepted"
	RiskClosed    RiskStatus = "closed"
)

type Risk struct {
	gorm.Model
	OrganizationID uint
	Organization   Organization

	Code        string     `gorm:"size:32"` // Например: R-001, OP-12
	Title       string     `gorm:"size:255;not null"`
	Category    string     `gorm:"size:64"` // операционный, кредитный, ИБ и т.п.
	Status      RiskStatus `gorm:"type:varchar(20);not null"`
	Description string     `gorm:"type:text"`

	// Оценки 1..5
	InherentLikelihood int
	InherentImpact     int
	ResidualLikelihood int
	ResidualImpact     int

	OwnerID uint // User.ID владельца риска
}

func (r *Risk) InherentRating() int { return r.InherentLikelihood * r.InherentImpact }
func (r *Risk) ResidualRating() int { return r.ResidualLikelihood * r.ResidualImpact }
