package handlers

import (
	"net/http"
	"strings"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"github.com/gin-gonic/gin"
)

// ====== КАТАЛОГИ: ПРИЧИНЫ, ПОСЛЕДСТВИЯ, КОНТРОЛИ ======

func ListCauses(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var causes []models.Cause
	database.DB.Where("organization_id = ?", user.OrganizationID).
		Order("code asc").
		Find(&causes)
	c.JSON(http.StatusOK, causes)
}

type causeRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func CreateCause(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req causeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(strings.TrimSpace(req.Name)) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be at least 3 characters"})
		return
	}

	cause := models.Cause{
		OrganizationID: user.OrganizationID,
		Code:           strings.TrimSpace(req.Code),
		Name:           strings.TrimSpace(req.Name),
		Category:       strings.TrimSpace(req.Category),
		Description:    req.Description,
	}
	if err := database.DB.Create(&cause).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to save cause"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "cause", cause.ID, "create", nil, &cause, "")
	c.JSON(http.StatusCreated, cause)
}

func ListImpacts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var impacts []models.Impact
	database.DB.Where("organization_id = ?", user.OrganizationID).
		Order("code asc").
		Find(&impacts)
	c.JSON(http.StatusOK, impacts)
}

type impactRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name" binding:"required"`
	Area        string `json:"area"`
	Description string `json:"description"`
}

func CreateImpact(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req impactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(strings.TrimSpace(req.Name)) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be at least 3 characters"})
		return
	}

	impact := models.Impact{
		OrganizationID: user.OrganizationID,
		Code:           strings.TrimSpace(req.Code),
		Name:           strings.TrimSpace(req.Name),
		Area:           strings.TrimSpace(req.Area),
		Description:    req.Description,
	}
	if err := database.DB.Create(&impact).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to save impact"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "impact", impact.ID, "create", nil, &impact, "")
	c.JSON(http.StatusCreated, impact)
}

func ListControls(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var controls []models.Control
	database.DB.Where("organization_id = ?", user.OrganizationID).
		Order("code asc").
		Find(&controls)
	c.JSON(http.StatusOK, controls)
}

type controlRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name" binding:"required"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func CreateControl(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(strings.TrimSpace(req.Name)) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be at least 3 characters"})
		return
	}

	control := models.Control{
		OrganizationID: user.OrganizationID,
		Code:           strings.TrimSpace(req.Code),
		Name:           strings.TrimSpace(req.Name),
		Kind:           strings.TrimSpace(req.Kind),
		Description:    req.Description,
	}
	if err := database.DB.Create(&control).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to save control"})
		return
	}

	database.RecordChange(database.DB, user.ID, user.OrganizationID, "control", control.ID, "create", nil, &control, "")
	c.JSON(http.StatusCreated, control)
}
