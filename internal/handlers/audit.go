package handlers

import (
	"net/http"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"github.com/gin-gonic/gin"
)

func ListAuditLogs(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	q := database.DB.
		Preload("User").
		Where("organization_id = ?", user.OrganizationID)
	if entity := c.Query("entity"); entity != "" {
		q = q.Where("entity = ?", entity)
	}

	var logs []models.AuditLog
	q.Order("created_at desc").
		Limit(200).
		Find(&logs)
	c.JSON(http.StatusOK, logs)
}
