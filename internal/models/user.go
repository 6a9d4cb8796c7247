package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleRiskManager UserRole = "risk_manager"
	RoleBoard       UserRole = "board" // право утверждать исключения по аппетиту
	RoleViewer      UserRole = "viewer"
)

type User struct {
	gorm.Model
	OrganizationID uint
	Organization   Organization

	Username     string   `gorm:"uniqueIndex;size:50;not null"`
	PasswordHash string   `gorm:"not null"`
	Role         UserRole `gorm:"type:varchar(20);not null"`
}
