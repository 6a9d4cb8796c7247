package handlers

import (
	"net/http"
	"time"

	"risk-register/internal/database"
	"risk-register/internal/engine"
	"risk-register/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListBreaches — активные нарушения организации: сначала по
// приоритету, затем по возрасту.
func ListBreaches(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	q := database.DB.
		Preload("Indicator").
		Preload("Risk").
		Where("organization_id = ?", user.OrganizationID)

	if c.Query("all") == "" {
		q = q.Where("status NOT IN ?",
			[]models.BreachWorkflowStatus{models.BreachResolved, models.BreachFalsePositive})
	}

	var breaches []models.Breach
	q.Order(`CASE priority
			WHEN 'critical' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, detected_at asc`).
		Find(&breaches)
	c.JSON(http.StatusOK, breaches)
}

type breachTrend struct {
	IndicatorID   uint    `json:"indicator_id"`
	IndicatorName string  `json:"indicator_name"`
	Total         int64   `json:"total"`
	Open          int64   `json:"open"`
	CriticalCount int64   `json:"critical_count"`
	AvgDuration   float64 `json:"avg_duration_hours"`
}

// BreachTrends — агрегаты нарушений по индикаторам.
func BreachTrends(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	trends := []breachTrend{}
	err := database.DB.Model(&models.Breach{}).
		Select(`breaches.indicator_id,
			indicator_definitions.name as indicator_name,
			count(*) as total,
			count(*) filter (where breaches.status not in ('resolved','false_positive')) as open,
			count(*) filter (where breaches.level = 'critical') as critical_count,
			coalesce(avg(breaches.duration_hours), 0) as avg_duration`).
		Joins("JOIN indicator_definitions ON indicator_definitions.id = breaches.indicator_id").
		Where("breaches.organization_id = ?", user.OrganizationID).
		Group("breaches.indicator_id, indicator_definitions.name").
		Order("total desc").
		Scan(&trends).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate trends"})
		return
	}
	c.JSON(http.StatusOK, trends)
}

// воркфлоу-переходы; ошибка состояния возвращает текущий статус,
// чтобы клиент мог синхронизироваться

func AcknowledgeBreach(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var b *models.Breach
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = engine.AcknowledgeBreach(tx, user, id)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func StartBreachMitigation(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var b *models.Breach
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = engine.StartMitigation(tx, user, id)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type resolveRequest struct {
	Notes string `json:"notes" binding:"required"`
}

func ResolveBreach(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resolution notes are required"})
		return
	}

	var b *models.Breach
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = engine.ResolveBreach(tx, user, id, req.Notes, time.Now())
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type falsePositiveRequest struct {
	Notes string `json:"notes"`
}

func MarkBreachFalsePositive(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req falsePositiveRequest
	_ = c.ShouldBindJSON(&req)

	var b *models.Breach
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = engine.MarkFalsePositive(tx, user, id, req.Notes)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type breachUpdateRequest struct {
	Priority          *string `json:"priority"`
	ActionOwnerID     *uint   `json:"action_owner_id"`
	RootCauseNotes    *string `json:"root_cause_notes"`
	PreventiveActions *string `json:"preventive_actions"`
}

func UpdateBreach(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req breachUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	d := engine.BreachDetails{
		ActionOwnerID:     req.ActionOwnerID,
		RootCauseNotes:    req.RootCauseNotes,
		PreventiveActions: req.PreventiveActions,
	}
	if req.Priority != nil {
		p := models.BreachPriority(*req.Priority)
		switch p {
		case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
			d.Priority = &p
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return
		}
	}

	var b *models.Breach
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = engine.UpdateBreachDetails(tx, user, id, d)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
