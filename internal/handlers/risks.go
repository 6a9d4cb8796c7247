package handlers

import (
	"net/http"
	"strings"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"github.com/gin-gonic/gin"
)

func ListRisks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	q := database.DB.Where("organization_id = ?", user.OrganizationID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var risks []models.Risk
	q.Order("code asc, id asc").Find(&risks)
	c.JSON(http.StatusOK, risks)
}

func GetRisk(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var risk models.Risk
	if err := database.DB.
		Where("id = ? AND organization_id = ?", id, user.OrganizationID).
		First(&risk).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "risk not found"})
		return
	}

	var causes []models.RiskRootCause
	database.DB.Preload("Cause").Where("risk_id = ?", risk.ID).Order("id asc").Find(&causes)

	var impacts []models.RiskImpact
	database.DB.Preload("Impact").Where("risk_id = ?", risk.ID).Order("id asc").Find(&impacts)

	var controls []models.RiskControl
	database.DB.Preload("Control").Where("risk_id = ?", risk.ID).Order("id asc").Find(&controls)

	var assignments []models.IndicatorAssignment
	database.DB.Preload("Indicator").Where("risk_id = ?", risk.ID).Order("id asc").Find(&assignments)

	c.JSON(http.StatusOK, gin.H{
		"risk":            risk,
		"inherent_rating": risk.InherentRating(),
		"residual_rating": risk.ResidualRating(),
		"causes":          causes,
		"impacts":         impacts,
		"controls":        controls,
		"indicators":      assignments,
	})
}

type riskRequest struct {
	Code               string `json:"code"`
	Title              string `json:"title" binding:"required"`
	Category           string `json:"category"`
	Status             string `json:"status"`
	Description        string `json:"description"`
	InherentLikelihood int    `json:"inherent_likelihood"`
	InherentImpact     int    `json:"inherent_impact"`
	ResidualLikelihood int    `json:"residual_likelihood"`
	ResidualImpact     int    `json:"residual_impact"`
	OwnerID            uint   `json:"owner_id"`
}

func validRating(v int) bool { return v >= 0 && v <= 5 }

func (r *riskRequest) validate() string {
	if len(strings.TrimSpace(r.Title)) < 3 {
		return "title must be at least 3 characters"
	}
	if !validRating(r.InherentLikelihood) || !validRating(r.InherentImpact) ||
		!validRating(r.ResidualLikelihood) || !validRating(r.ResidualImpact) {
		return "ratings must be between 0 and 5"
	}
	switch models.RiskStatus(r.Status) {
	case "", models.RiskOpen, models.RiskMitigated, models.RiskAccepted, models.RiskClosed:
		return ""
	}
	return "invalid status"
}

func CreateRisk(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req riskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	status := models.RiskStatus(req.Status)
	if status == "" {
		status = models.RiskOpen
	}

	risk := models.Risk{
		OrganizationID:     user.OrganizationID,
		Code:               strings.TrimSpace(req.Code),
		Title:              strings.TrimSpace(req.Title),
		Category:           strings.TrimSpace(req.Category),
		Status:             status,
		Description:        req.Description,
		InherentLikelihood: req.InherentLikelihood,
		InherentImpact:     req.InherentImpact,
		ResidualLikelihood: req.ResidualLikelihood,
		ResidualImpact:     req.ResidualImpact,
		OwnerID:            req.OwnerID,
	}
	if err := database.DB.Create(&risk).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to save risk"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "risk", risk.ID, "create", nil, &risk, "")
	c.JSON(http.StatusCreated, risk)
}

func UpdateRisk(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req riskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var risk models.Risk
	if err := database.DB.
		Where("id = ? AND organization_id = ?", id, user.OrganizationID).
		First(&risk).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "risk not found"})
		return
	}

	before := risk
	risk.Code = strings.TrimSpace(req.Code)
	risk.Title = strings.TrimSpace(req.Title)
	risk.Category = strings.TrimSpace(req.Category)
	if req.Status != "" {
		risk.Status = models.RiskStatus(req.Status)
	}
	risk.Description = req.Description
	risk.InherentLikelihood = req.InherentLikelihood
	risk.InherentImpact = req.InherentImpact
	risk.ResidualLikelihood = req.ResidualLikelihood
	risk.ResidualImpact = req.ResidualImpact
	if req.OwnerID != 0 {
		risk.OwnerID = req.OwnerID
	}

	if err := database.DB.Save(&risk).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update risk"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "risk", risk.ID, "update", &before, &risk, "")
	c.JSON(http.StatusOK, risk)
}

// ListRiskHistory — неизменяемые срезы риска по зафиксированным периодам.
func ListRiskHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var rows []models.RiskHistory
	database.DB.
		Where("risk_id = ? AND organization_id = ?", id, user.OrganizationID).
		Order("year desc, quarter desc").
		Find(&rows)
	c.JSON(http.StatusOK, rows)
}
