package handlers

import (
	"net/http"

	"risk-register/internal/database"
	"risk-register/internal/engine"
	"risk-register/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ====== СВЯЗИ РИСКА: ПРИЧИНЫ / ПОСЛЕДСТВИЯ / КОНТРОЛИ ======
// Все мутации идут через движок, который держит инвариант
// единственного primary внутри транзакции.

type causeLinkRequest struct {
	CauseID         uint    `json:"cause_id" binding:"required"`
	IsPrimary       bool    `json:"is_primary"`
	ContributionPct float64 `json:"contribution_pct"`
	Notes           string  `json:"notes"`
}

func LinkRiskCause(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req causeLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.ContributionPct < 0 || req.ContributionPct > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contribution_pct must be between 0 and 100"})
		return
	}

	link := models.RiskRootCause{
		RiskID:          riskID,
		CauseID:         req.CauseID,
		IsPrimary:       req.IsPrimary,
		ContributionPct: req.ContributionPct,
		Notes:           req.Notes,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		return engine.LinkCause(tx, user, &link)
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

type causeLinkUpdateRequest struct {
	IsPrimary       *bool    `json:"is_primary"`
	ContributionPct *float64 `json:"contribution_pct"`
	Notes           *string  `json:"notes"`
}

func UpdateRiskCause(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	linkID, ok := paramID(c, "link_id")
	if !ok {
		return
	}

	var req causeLinkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var link *models.RiskRootCause
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		link, err = engine.UpdateCauseLink(tx, user, riskID, linkID, engine.CauseLinkUpdate{
			IsPrimary:       req.IsPrimary,
			ContributionPct: req.ContributionPct,
			Notes:           req.Notes,
		})
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func UnlinkRiskCause(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	linkID, ok := paramID(c, "link_id")
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		return engine.UnlinkCause(tx, user, riskID, linkID)
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unlinked"})
}

type impactLinkRequest struct {
	ImpactID    uint    `json:"impact_id" binding:"required"`
	IsPrimary   bool    `json:"is_primary"`
	SeverityPct float64 `json:"severity_pct"`
	Notes       string  `json:"notes"`
}

func LinkRiskImpact(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req impactLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.SeverityPct < 0 || req.SeverityPct > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity_pct must be between 0 and 100"})
		return
	}

	link := models.RiskImpact{
		RiskID:      riskID,
		ImpactID:    req.ImpactID,
		IsPrimary:   req.IsPrimary,
		SeverityPct: req.SeverityPct,
		Notes:       req.Notes,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		return engine.LinkImpact(tx, user, &link)
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

type impactLinkUpdateRequest struct {
	IsPrimary   *bool    `json:"is_primary"`
	SeverityPct *float64 `json:"severity_pct"`
	Notes       *string  `json:"notes"`
}

func UpdateRiskImpact(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	linkID, ok := paramID(c, "link_id")
	if !ok {
		return
	}

	var req impactLinkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var link *models.RiskImpact
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		link, err = engine.UpdateImpactLink(tx, user, riskID, linkID, engine.ImpactLinkUpdate{
			IsPrimary:   req.IsPrimary,
			SeverityPct: req.SeverityPct,
			Notes:       req.Notes,
		})
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func UnlinkRiskImpact(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	linkID, ok := paramID(c, "link_id")
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		return engine.UnlinkImpact(tx, user, riskID, linkID)
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unlinked"})
}

// Контроли: без primary-инварианта, обычная связь

type controlLinkRequest struct {
	ControlID     uint   `json:"control_id" binding:"required"`
	Effectiveness int    `json:"effectiveness"`
	Status        string `json:"status"`
}

func LinkRiskControl(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req controlLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Effectiveness < 0 || req.Effectiveness > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effectiveness must be between 0 and 5"})
		return
	}
	switch req.Status {
	case "", "planned", "implemented", "ineffective":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	var risk models.Risk
	if err := database.DB.
		Where("id = ? AND organization_id = ?", riskID, user.OrganizationID).
		First(&risk).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "risk not found"})
		return
	}

	link := models.RiskControl{
		RiskID:        riskID,
		ControlID:     req.ControlID,
		Effectiveness: req.Effectiveness,
		Status:        req.Status,
	}
	if err := database.DB.Create(&link).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to link control"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "risk_control", link.ID, "create", nil, &link, "")
	c.JSON(http.StatusCreated, link)
}

type controlLinkUpdateRequest struct {
	Effectiveness *int    `json:"effectiveness"`
	Status        *string `json:"status"`
}

func UpdateRiskControl(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	linkID, ok := paramID(c, "link_id")
	if !ok {
		return
	}

	var req controlLinkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Effectiveness != nil && (*req.Effectiveness < 0 || *req.Effectiveness > 5) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effectiveness must be between 0 and 5"})
		return
	}
	if req.Status != nil {
		switch *req.Status {
		case "planned", "implemented", "ineffective":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}

	var risk models.Risk
	if err := database.DB.
		Where("id = ? AND organization_id = ?", riskID, user.OrganizationID).
		First(&risk).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "risk not found"})
		return
	}

	var link models.RiskControl
	if err := database.DB.
		Where("id = ? AND risk_id = ?", linkID, riskID).
		First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}

	before := link
	if req.Effectiveness != nil {
		link.Effectiveness = *req.Effectiveness
	}
	if req.Status != nil {
		link.Status = *req.Status
	}
	if err := database.DB.Save(&link).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update link"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "risk_control", link.ID, "update", &before, &link, "")
	c.JSON(http.StatusOK, link)
}

func UnlinkRiskControl(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	riskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	linkID, ok := paramID(c, "link_id")
	if !ok {
		return
	}

	var risk models.Risk
	if err := database.DB.
		Where("id = ? AND organization_id = ?", riskID, user.OrganizationID).
		First(&risk).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "risk not found"})
		return
	}

	res := database.DB.Unscoped().
		Where("id = ? AND risk_id = ?", linkID, riskID).
		Delete(&models.RiskControl{})
	if res.Error != nil || res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "risk_control", linkID, "delete", nil, nil, "")
	c.JSON(http.StatusOK, gin.H{"status": "unlinked"})
}
