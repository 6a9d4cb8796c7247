package models

import "gorm.io/gorm"

// Каталог первопричин рисков
type Cause struct {
	gorm.Model
	OrganizationID uint `gorm:"uniqueIndex:idx_cause_org_code"`

	Code        string `gorm:"size:32;uniqueIndex:idx_cause_org_code"`
	Name        string `gorm:"size:255;not null"`
	Category    string `gorm:"size:64"` // процесс, персонал, системы, внешние
	Description string `gorm:"type:text"`
}

// Каталог последствий / областей воздействия
type Impact struct {
	gorm.Model
	OrganizationID uint `gorm:"uniqueIndex:idx_impact_org_code"`

	Code        string `gorm:"size:32;uniqueIndex:idx_impact_org_code"`
	Name        string `gorm:"size:255;not null"`
	Area        string `gorm:"size:64"` // финансы, репутация, регуляторика
	Description string `gorm:"type:text"`
}

// Каталог контролей
type Control struct {
	gorm.Model
	OrganizationID uint `gorm:"uniqueIndex:idx_control_org_code"`

	Code        string `gorm:"size:32;uniqueIndex:idx_control_org_code"`
	Name        string `gorm:"size:255;not null"`
	Kind        string `gorm:"size:64"` // превентивный / детективный / корректирующий
	Description string `gorm:"type:text"`
}
