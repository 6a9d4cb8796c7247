package handlers

import (
	"errors"
	"net/http"
	"time"

	"risk-register/internal/database"
	"risk-register/internal/engine"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type measurementRequest struct {
	AssignmentID uint       `json:"assignment_id" binding:"required"`
	Value        *float64   `json:"value" binding:"required"`
	ObservedAt   *time.Time `json:"observed_at"`
}

// RecordMeasurement — приём замера: resolve → classify → lifecycle
// одной транзакцией. Ненастроенные пороги — не ошибка обработки:
// замер сохраняется как undetermined, проблема конфигурации
// возвращается в ответе.
func RecordMeasurement(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req measurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	observedAt := time.Now()
	if req.ObservedAt != nil {
		observedAt = *req.ObservedAt
	}

	var res *engine.MeasurementResult
	var configErr error
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = engine.RecordMeasurement(tx, user, req.AssignmentID, *req.Value, observedAt)
		if errors.Is(err, engine.ErrNoThreshold) {
			// не откатываем: замер нужно сохранить
			configErr = err
			return nil
		}
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{"level": res.Level}
	if res.BreachID != 0 {
		resp["breach_id"] = res.BreachID
	}
	if configErr != nil {
		resp["configuration_error"] = configErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}
