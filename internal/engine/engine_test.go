package engine

import (
	"testing"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// единственное соединение, иначе каждый коннект пула получит
	// свою пустую in-memory базу
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func f(v float64) *float64 { return &v }

func seedOrg(t *testing.T, db *gorm.DB) models.Organization {
	t.Helper()
	org := models.Organization{Name: "Test Org", ActiveYear: 2025, ActiveQuarter: 3}
	require.NoError(t, db.Create(&org).Error)
	return org
}

func seedUser(t *testing.T, db *gorm.DB, orgID uint, role models.UserRole) models.User {
	t.Helper()
	u := models.User{
		OrganizationID: orgID,
		Username:       string(role) + "@test.local",
		PasswordHash:   "x",
		Role:           role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedRisk(t *testing.T, db *gorm.DB, orgID uint) models.Risk {
	t.Helper()
	r := models.Risk{
		OrganizationID:     orgID,
		Code:               "R-001",
		Title:              "Service outage",
		Status:             models.RiskOpen,
		InherentLikelihood: 4,
		InherentImpact:     4,
		ResidualLikelihood: 2,
		ResidualImpact:     3,
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func seedIndicator(t *testing.T, db *gorm.DB, orgID uint, warning, critical *float64, dir models.Direction) models.IndicatorDefinition {
	t.Helper()
	def := models.IndicatorDefinition{
		OrganizationID:  orgID,
		Code:            "KRI-01",
		Name:            "CPU utilization",
		Type:            models.IndicatorKRI,
		Unit:            "%",
		Cadence:         models.CadenceDaily,
		Direction:       dir,
		Status:          models.IndicatorActive,
		DefaultWarning:  warning,
		DefaultCritical: critical,
	}
	require.NoError(t, db.Create(&def).Error)
	return def
}

func seedAssignment(t *testing.T, db *gorm.DB, riskID, indicatorID uint, warnOverride, critOverride *float64) models.IndicatorAssignment {
	t.Helper()
	a := models.IndicatorAssignment{
		RiskID:           riskID,
		IndicatorID:      indicatorID,
		WarningOverride:  warnOverride,
		CriticalOverride: critOverride,
		BreachStatus:     models.LevelNormal,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func seedCause(t *testing.T, db *gorm.DB, orgID uint, code string) models.Cause {
	t.Helper()
	c := models.Cause{OrganizationID: orgID, Code: code, Name: "Cause " + code}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func seedImpact(t *testing.T, db *gorm.DB, orgID uint, code string) models.Impact {
	t.Helper()
	i := models.Impact{OrganizationID: orgID, Code: code, Name: "Impact " + code}
	require.NoError(t, db.Create(&i).Error)
	return i
}

func seedLimit(t *testing.T, db *gorm.DB, orgID uint, l models.ToleranceLimit) models.ToleranceLimit {
	t.Helper()
	l.OrganizationID = orgID
	if l.Metric == "" {
		l.Metric = "operational_loss_pct"
	}
	if l.Name == "" {
		l.Name = "Operational loss"
	}
	require.NoError(t, db.Create(&l).Error)
	return l
}
