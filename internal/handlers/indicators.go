package handlers

import (
	"net/http"
	"strings"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"github.com/gin-gonic/gin"
)

// ====== КАТАЛОГ KRI/KCI ======

func ListIndicators(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var defs []models.IndicatorDefinition
	database.DB.Where("organization_id = ?", user.OrganizationID).
		Order("code asc").
		Find(&defs)
	c.JSON(http.StatusOK, defs)
}

type indicatorRequest struct {
	Code            string   `json:"code"`
	Name            string   `json:"name" binding:"required"`
	Type            string   `json:"type" binding:"required"`
	Unit            string   `json:"unit"`
	Cadence         string   `json:"cadence" binding:"required"`
	Direction       string   `json:"direction" binding:"required"`
	DefaultWarning  *float64 `json:"default_warning"`
	DefaultCritical *float64 `json:"default_critical"`
	Target          *float64 `json:"target"`
}

func (r *indicatorRequest) validate() string {
	if len(strings.TrimSpace(r.Name)) < 3 {
		return "name must be at least 3 characters"
	}
	switch models.IndicatorType(r.Type) {
	case models.IndicatorKRI, models.IndicatorKCI:
	default:
		return "type must be kri or kci"
	}
	switch models.Direction(r.Direction) {
	case models.HigherIsBetter, models.LowerIsBetter:
	default:
		return "invalid direction"
	}
	switch models.Cadence(r.Cadence) {
	case models.CadenceDaily, models.CadenceWeekly, models.CadenceMonthly, models.CadenceQuarterly:
	default:
		return "invalid cadence"
	}
	return ""
}

func CreateIndicator(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req indicatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	def := models.IndicatorDefinition{
		OrganizationID:  user.OrganizationID,
		Code:            strings.TrimSpace(req.Code),
		Name:            strings.TrimSpace(req.Name),
		Type:            models.IndicatorType(req.Type),
		Unit:            strings.TrimSpace(req.Unit),
		Cadence:         models.Cadence(req.Cadence),
		Direction:       models.Direction(req.Direction),
		Status:          models.IndicatorActive,
		DefaultWarning:  req.DefaultWarning,
		DefaultCritical: req.DefaultCritical,
		Target:          req.Target,
	}
	if err := database.DB.Create(&def).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to save indicator"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "indicator_definition", def.ID, "create", nil, &def, "")
	c.JSON(http.StatusCreated, def)
}

type indicatorUpdateRequest struct {
	Name            *string  `json:"name"`
	Unit            *string  `json:"unit"`
	Cadence         *string  `json:"cadence"`
	Status          *string  `json:"status"`
	DefaultWarning  *float64 `json:"default_warning"`
	DefaultCritical *float64 `json:"default_critical"`
	Target          *float64 `json:"target"`
}

// UpdateIndicator — правка каталога. Изменение порогов не трогает
// исторические записи о нарушениях: они хранят порог на момент
// срабатывания.
func UpdateIndicator(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req indicatorUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var def models.IndicatorDefinition
	if err := database.DB.
		Where("id = ? AND organization_id = ?", id, user.OrganizationID).
		First(&def).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "indicator not found"})
		return
	}

	before := def
	if req.Name != nil {
		def.Name = strings.TrimSpace(*req.Name)
	}
	if req.Unit != nil {
		def.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Cadence != nil {
		def.Cadence = models.Cadence(*req.Cadence)
	}
	if req.Status != nil {
		switch models.IndicatorStatus(*req.Status) {
		case models.IndicatorActive, models.IndicatorDeprecated:
			def.Status = models.IndicatorStatus(*req.Status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}
	if req.DefaultWarning != nil {
		def.DefaultWarning = req.DefaultWarning
	}
	if req.DefaultCritical != nil {
		def.DefaultCritical = req.DefaultCritical
	}
	if req.Target != nil {
		def.Target = req.Target
	}

	if err := database.DB.Save(&def).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update indicator"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "indicator_definition", def.ID, "update", &before, &def, "")
	c.JSON(http.StatusOK, def)
}

// ====== ПРИВЯЗКА ИНДИКАТОРА К РИСКУ ======

type assignmentRequest struct {
	IndicatorID      uint     `json:"indicator_id" binding:"required"`
	WarningOverride  *float64 `json:"warning_override"`
	CriticalOverride *float64 `json:"critical_override"`
}

func AssignIndicator(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var risk models.Risk
	if err := database.DB.
		Where("id = ? AND organization_id = ?", riskID, user.OrganizationID).
		First(&risk).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "risk not found"})
		return
	}

	var def models.IndicatorDefinition
	if err := database.DB.
		Where("id = ? AND organization_id = ?", req.IndicatorID, user.OrganizationID).
		First(&def).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "indicator not found"})
		return
	}
	if def.Status != models.IndicatorActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "indicator is deprecated"})
		return
	}

	// одна привязка на пару (риск, индикатор)
	var count int64
	database.DB.Model(&models.IndicatorAssignment{}).
		Where("risk_id = ? AND indicator_id = ?", riskID, req.IndicatorID).
		Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "indicator already assigned to this risk"})
		return
	}

	a := models.IndicatorAssignment{
		RiskID:           riskID,
		IndicatorID:      req.IndicatorID,
		WarningOverride:  req.WarningOverride,
		CriticalOverride: req.CriticalOverride,
		BreachStatus:     models.LevelNormal,
	}
	if err := database.DB.Create(&a).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign indicator"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "indicator_assignment", a.ID, "create", nil, &a, "")
	c.JSON(http.StatusCreated, a)
}
