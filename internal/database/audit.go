package database

import (
	"encoding/json"

	"risk-register/internal/models"

	"gorm.io/gorm"
)

// RecordChange — запись структурированного события в журнал аудита:
// кто, над чем, что было и что стало. Пишется в той же транзакции,
// что и само изменение; ошибка аудита не валит бизнес-операцию.
func RecordChange(tx *gorm.DB, userID, orgID uint, entity string, entityID uint, action string, before, after interface{}, details string) {
	if tx == nil {
		return
	}

	record := models.AuditLog{
		UserID:         userID,
		OrganizationID: orgID,
		Entity:         entity,
		EntityID:       entityID,
		Action:         action,
		Before:         marshalState(before),
		After:          marshalState(after),
		Details:        details,
	}
	_ = tx.Create(&record).Error
}

func marshalState(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
