package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"risk-register/internal/config"
	"risk-register/internal/database"
	"risk-register/internal/models"
	"risk-register/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	router  *gin.Engine
	cookies []*http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	org := models.Organization{Name: "Test Org", ActiveYear: 2025, ActiveQuarter: 3}
	require.NoError(t, db.Create(&org).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("Admin123!"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := models.User{
		OrganizationID: org.ID,
		Username:       "admin@test.local",
		PasswordHash:   string(hash),
		Role:           models.RoleAdmin,
	}
	require.NoError(t, db.Create(&admin).Error)

	env := &testEnv{
		router: server.NewRouter(&config.Config{SessionSecret: "test-secret"}),
	}
	env.login(t, "admin@test.local", "Admin123!")
	return env
}

func (e *testEnv) login(t *testing.T, username, password string) {
	t.Helper()
	w := httptest.NewRecorder()
	body, _ := json.Marshal(gin.H{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	e.cookies = w.Result().Cookies()
}

func (e *testEnv) do(t *testing.T, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestMeasurementToResolutionFlow(t *testing.T) {
	env := newTestEnv(t)

	// каталог → риск → привязка с переопределением warning
	w := env.do(t, http.MethodPost, "/api/indicators", gin.H{
		"code": "KRI-01", "name": "CPU utilization", "type": "kri",
		"cadence": "daily", "direction": "lower_is_better", "unit": "%",
		"default_warning": 75.0, "default_critical": 90.0,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var indicator struct {
		ID uint `json:"ID"`
	}
	decode(t, w, &indicator)

	w = env.do(t, http.MethodPost, "/api/risks", gin.H{
		"title": "Service outage", "code": "R-001",
		"inherent_likelihood": 4, "inherent_impact": 4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var risk struct {
		ID uint `json:"ID"`
	}
	decode(t, w, &risk)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/risks/%d/indicators", risk.ID), gin.H{
		"indicator_id": indicator.ID, "warning_override": 80.0,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var assignment struct {
		ID uint `json:"ID"`
	}
	decode(t, w, &assignment)

	// замер 85: действующий warning 80 (override) → warning
	w = env.do(t, http.MethodPost, "/api/measurements", gin.H{
		"assignment_id": assignment.ID, "value": 85.0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var mres struct {
		Level    string `json:"level"`
		BreachID uint   `json:"breach_id"`
	}
	decode(t, w, &mres)
	assert.Equal(t, "warning", mres.Level)
	require.NotZero(t, mres.BreachID)

	// активные нарушения
	w = env.do(t, http.MethodGet, "/api/breaches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var breaches []map[string]interface{}
	decode(t, w, &breaches)
	assert.Len(t, breaches, 1)

	// воркфлоу до закрытия
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/breaches/%d/acknowledge", mres.BreachID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/breaches/%d/resolve", mres.BreachID), gin.H{
		"notes": "patched",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// повторное закрытие — конфликт состояния
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/breaches/%d/resolve", mres.BreachID), gin.H{
		"notes": "again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBreachTrendsAggregates(t *testing.T) {
	env := newTestEnv(t)

	// без нарушений — пустой список, не null
	w := env.do(t, http.MethodGet, "/api/breaches/trends", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, "[]", w.Body.String())

	w = env.do(t, http.MethodPost, "/api/indicators", gin.H{
		"code": "KRI-02", "name": "Failed logins", "type": "kri",
		"cadence": "daily", "direction": "lower_is_better",
		"default_warning": 100.0, "default_critical": 500.0,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var indicator struct {
		ID uint `json:"ID"`
	}
	decode(t, w, &indicator)

	w = env.do(t, http.MethodPost, "/api/risks", gin.H{
		"title": "Account takeover", "code": "R-002",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var risk struct {
		ID uint `json:"ID"`
	}
	decode(t, w, &risk)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/risks/%d/indicators", risk.ID), gin.H{
		"indicator_id": indicator.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var assignment struct {
		ID uint `json:"ID"`
	}
	decode(t, w, &assignment)

	// 750 при critical 500 (lower_is_better) — критическое нарушение
	w = env.do(t, http.MethodPost, "/api/measurements", gin.H{
		"assignment_id": assignment.ID, "value": 750.0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/breaches/trends", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var trends []struct {
		IndicatorID   uint   `json:"indicator_id"`
		IndicatorName string `json:"indicator_name"`
		Total         int64  `json:"total"`
		Open          int64  `json:"open"`
		CriticalCount int64  `json:"critical_count"`
	}
	decode(t, w, &trends)
	require.Len(t, trends, 1)
	assert.Equal(t, indicator.ID, trends[0].IndicatorID)
	assert.Equal(t, "Failed logins", trends[0].IndicatorName)
	assert.EqualValues(t, 1, trends[0].Total)
	assert.EqualValues(t, 1, trends[0].Open)
	assert.EqualValues(t, 1, trends[0].CriticalCount)
}

func TestRequestExceptionMissingBreachIs404(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/limit-breaches/9999/exception", gin.H{
		"justification": "cannot remediate this quarter",
		"valid_until":   "2030-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestCommitPeriodEndpointIdempotent(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/risks", gin.H{"title": "Some risk"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/periods/commit", gin.H{"year": 2025, "quarter": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		RiskCount int `json:"risk_count"`
	}
	decode(t, w, &res)
	assert.Equal(t, 1, res.RiskCount)

	w = env.do(t, http.MethodPost, "/api/periods/commit", gin.H{"year": 2025, "quarter": 3})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnauthenticatedRejected(t *testing.T) {
	env := newTestEnv(t)
	env.cookies = nil

	w := env.do(t, http.MethodGet, "/api/breaches", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGateOnExceptionDecision(t *testing.T) {
	env := newTestEnv(t)

	// viewer не может утверждать исключения
	hash, _ := bcrypt.GenerateFromPassword([]byte("Viewer123!"), bcrypt.MinCost)
	viewer := models.User{
		OrganizationID: 1,
		Username:       "viewer@test.local",
		PasswordHash:   string(hash),
		Role:           models.RoleViewer,
	}
	require.NoError(t, database.DB.Create(&viewer).Error)

	env.login(t, "viewer@test.local", "Viewer123!")
	w := env.do(t, http.MethodPost, "/api/exceptions/1/approve", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
