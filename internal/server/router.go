package server

import (
	"net/http"

	"risk-register/internal/config"
	"risk-register/internal/handlers"
	"risk-register/internal/middleware"
	"risk-register/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("risk_session", store))

	r.Use(middleware.InjectPrincipal())

	// AUTH
	r.POST("/api/register", handlers.Register)
	r.POST("/api/login", handlers.Login)
	r.POST("/api/logout", handlers.Logout)

	api := r.Group("/api")
	api.Use(middleware.RequireAuth())

	// РЕЕСТР РИСКОВ
	api.GET("/risks", handlers.ListRisks)
	api.GET("/risks/:id", handlers.GetRisk)
	api.POST("/risks",
		middleware.RequireRole(models.RoleAdmin, models.RoleRiskManager),
		handlers.CreateRisk,
	)
	api.PUT("/risks/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleRiskManager),
		handlers.UpdateRisk,
	)
	api.GET("/risks/:id/history", handlers.ListRiskHistory)

	// связи риска (инвариант primary держит движок)
	rm := middleware.RequireRole(models.RoleAdmin, models.RoleRiskManager)
	api.POST("/risks/:id/causes", rm, handlers.LinkRiskCause)
	api.PUT("/risks/:id/causes/:link_id", rm, handlers.UpdateRiskCause)
	api.DELETE("/risks/:id/causes/:link_id", rm, handlers.UnlinkRiskCause)
	api.POST("/risks/:id/impacts", rm, handlers.LinkRiskImpact)
	api.PUT("/risks/:id/impacts/:link_id", rm, handlers.UpdateRiskImpact)
	api.DELETE("/risks/:id/impacts/:link_id", rm, handlers.UnlinkRiskImpact)
	api.POST("/risks/:id/controls", rm, handlers.LinkRiskControl)
	api.PUT("/risks/:id/controls/:link_id", rm, handlers.UpdateRiskControl)
	api.DELETE("/risks/:id/controls/:link_id", rm, handlers.UnlinkRiskControl)

	// КАТАЛОГИ
	admin := middleware.RequireRole(models.RoleAdmin)
	api.GET("/causes", handlers.ListCauses)
	api.POST("/causes", admin, handlers.CreateCause)
	api.GET("/impacts", handlers.ListImpacts)
	api.POST("/impacts", admin, handlers.CreateImpact)
	api.GET("/controls", handlers.ListControls)
	api.POST("/controls", admin, handlers.CreateControl)

	// КАТАЛОГ KRI/KCI И ПРИВЯЗКИ
	api.GET("/indicators", handlers.ListIndicators)
	api.POST("/indicators", admin, handlers.CreateIndicator)
	api.PUT("/indicators/:id", admin, handlers.UpdateIndicator)
	api.POST("/risks/:id/indicators", rm, handlers.AssignIndicator)

	// ЗАМЕРЫ И НАРУШЕНИЯ
	api.POST("/measurements", rm, handlers.RecordMeasurement)
	api.GET("/breaches", handlers.ListBreaches)
	api.GET("/breaches/trends", handlers.BreachTrends)
	api.POST("/breaches/:id/acknowledge", rm, handlers.AcknowledgeBreach)
	api.POST("/breaches/:id/mitigate", rm, handlers.StartBreachMitigation)
	api.POST("/breaches/:id/resolve", rm, handlers.ResolveBreach)
	api.POST("/breaches/:id/false-positive", rm, handlers.MarkBreachFalsePositive)
	api.PUT("/breaches/:id", rm, handlers.UpdateBreach)

	// ТОЛЕРАНСЫ АППЕТИТА И ИСКЛЮЧЕНИЯ
	api.GET("/limits", handlers.ListLimits)
	api.POST("/limits", admin, handlers.CreateLimit)
	api.POST("/limits/:id/evaluate", rm, handlers.EvaluateLimit)
	api.GET("/limit-breaches", handlers.ListLimitBreaches)
	api.POST("/limit-breaches/:id/exception", rm, handlers.RequestException)

	// решение по исключению — полномочия уровня правления
	board := middleware.RequireRole(models.RoleAdmin, models.RoleBoard)
	api.POST("/exceptions/:id/approve", board, handlers.ApproveException)
	api.POST("/exceptions/:id/reject", board, handlers.RejectException)

	// ФИКСАЦИЯ ПЕРИОДОВ
	api.POST("/periods/commit", admin, handlers.CommitPeriod)
	api.GET("/periods", handlers.ListPeriodCommits)

	// АУДИТ
	api.GET("/audit",
		middleware.RequireRole(models.RoleAdmin, models.RoleViewer),
		handlers.ListAuditLogs,
	)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
