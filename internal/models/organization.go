package models

import "gorm.io/gorm"

type Organization struct {
	gorm.Model
	Name   string `gorm:"size:255;not null"`
	Sector string `gorm:"size:100"` // банк, госсектор, промышленность и т.п.

	// Текущий отчётный период организации. Сдвигается вперёд
	// при каждом commitPeriod.
	ActiveYear    int `gorm:"not null"`
	ActiveQuarter int `gorm:"not null"` // 1..4
}

// NextPeriod — следующий квартал после (year, quarter).
func NextPeriod(year, quarter int) (int, int) {
	if quarter >= 4 {
		return year + 1, 1
	}
	return year, quarter + 1
}
