package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"risk-register/internal/database"
	"risk-register/internal/engine"
	"risk-register/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ====== ТОЛЕРАНСЫ РИСК-АППЕТИТА ======

func ListLimits(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var limits []models.ToleranceLimit
	database.DB.Where("organization_id = ?", user.OrganizationID).
		Order("metric asc").
		Find(&limits)
	c.JSON(http.StatusOK, limits)
}

type limitRequest struct {
	Metric          string   `json:"metric" binding:"required"`
	Name            string   `json:"name" binding:"required"`
	Direction       string   `json:"direction" binding:"required"`
	Unit            string   `json:"unit"`
	SoftLimit       *float64 `json:"soft_limit"`
	HardLimit       *float64 `json:"hard_limit"`
	SoftUpper       *float64 `json:"soft_upper"`
	HardUpper       *float64 `json:"hard_upper"`
	SoftNotifyRoles string   `json:"soft_notify_roles"`
	HardNotifyRoles string   `json:"hard_notify_roles"`
	BoardEscalation bool     `json:"board_escalation"`
	RegulatorNotify bool     `json:"regulator_notify"`
	GraceDays       int      `json:"grace_days"`
}

func CreateLimit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req limitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	dir := models.LimitDirection(req.Direction)
	switch dir {
	case models.LimitAbove, models.LimitBelow, models.LimitBetween:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid direction"})
		return
	}
	if req.SoftLimit == nil && req.HardLimit == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one of soft_limit or hard_limit is required"})
		return
	}
	if dir == models.LimitBetween && req.SoftUpper == nil && req.HardUpper == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "between direction requires an upper bound"})
		return
	}

	l := models.ToleranceLimit{
		OrganizationID:  user.OrganizationID,
		Metric:          strings.TrimSpace(req.Metric),
		Name:            strings.TrimSpace(req.Name),
		Direction:       dir,
		Unit:            strings.TrimSpace(req.Unit),
		SoftLimit:       req.SoftLimit,
		HardLimit:       req.HardLimit,
		SoftUpper:       req.SoftUpper,
		HardUpper:       req.HardUpper,
		SoftNotifyRoles: req.SoftNotifyRoles,
		HardNotifyRoles: req.HardNotifyRoles,
		BoardEscalation: req.BoardEscalation,
		RegulatorNotify: req.RegulatorNotify,
		GraceDays:       req.GraceDays,
	}
	if err := database.DB.Create(&l).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save limit"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "tolerance_limit", l.ID, "create", nil, &l, "")
	c.JSON(http.StatusCreated, l)
}

type evaluateRequest struct {
	Value  *float64 `json:"value" binding:"required"`
	RiskID *uint    `json:"risk_id"`
}

// EvaluateLimit — оценка значения метрики против толеранса,
// открытие/обновление нарушения аппетита.
func EvaluateLimit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var res *engine.LimitResult
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = engine.EvaluateLimit(tx, user, id, *req.Value, req.RiskID, time.Now())
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListLimitBreaches — нарушения аппетита организации.
func ListLimitBreaches(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	q := database.DB.
		Preload("Limit").
		Where("organization_id = ?", user.OrganizationID)
	if c.Query("all") == "" {
		q = q.Where("status NOT IN ?",
			[]models.BreachWorkflowStatus{models.BreachResolved, models.BreachFalsePositive})
	}

	var breaches []models.RiskBreach
	q.Order("detected_at asc").Find(&breaches)
	c.JSON(http.StatusOK, breaches)
}

// ====== ИСКЛЮЧЕНИЯ ПО ЖЁСТКИМ ЛИМИТАМ ======

type exceptionRequest struct {
	Justification        string    `json:"justification" binding:"required"`
	CompensatingControls string    `json:"compensating_controls"`
	ValidUntil           time.Time `json:"valid_until" binding:"required"`
}

func RequestException(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req exceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var b *models.RiskBreach
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = engine.RequestException(tx, user, id, req.Justification, req.CompensatingControls, req.ValidUntil, time.Now())
		return err
	})
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) || b != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

func ApproveException(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var b *models.RiskBreach
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = engine.ApproveException(tx, user, id, time.Now())
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func RejectException(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rejection reason is required"})
		return
	}

	var b *models.RiskBreach
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = engine.RejectException(tx, user, id, req.Reason, time.Now())
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
