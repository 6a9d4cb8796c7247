package handlers

import (
	"net/http"

	"risk-register/internal/database"
	"risk-register/internal/engine"
	"risk-register/internal/models"

	"github.com/gin-gonic/gin"
)

type commitRequest struct {
	Year    int    `json:"year" binding:"required"`
	Quarter int    `json:"quarter" binding:"required"`
	Notes   string `json:"notes"`
}

// CommitPeriod — фиксация периода организации. Идемпотентно:
// повторная фиксация того же квартала — конфликт, не дубликаты.
func CommitPeriod(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Quarter < 1 || req.Quarter > 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quarter must be between 1 and 4"})
		return
	}

	res, err := engine.CommitPeriod(database.DB, user, user.OrganizationID, req.Year, req.Quarter, req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListPeriodCommits — леджер зафиксированных периодов.
func ListPeriodCommits(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var commits []models.PeriodCommit
	database.DB.Where("organization_id = ?", user.OrganizationID).
		Order("year desc, quarter desc").
		Find(&commits)
	c.JSON(http.StatusOK, commits)
}
