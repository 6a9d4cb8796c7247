package engine

import (
	"testing"
	"time"

	"risk-register/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMeasurementOverrideScenario(t *testing.T) {
	// каталог: warning=75, critical=90; привязка переопределяет warning=80.
	// замер 85 → действующий warning 80 (override), critical 90 (default) →
	// level = warning
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, models.RoleRiskManager)
	risk := seedRisk(t, db, org.ID)
	def := seedIndicator(t, db, org.ID, f(75), f(90), models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, f(80), nil)

	res, err := RecordMeasurement(db, user, a.ID, 85, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.LevelWarning, res.Level)
	require.NotZero(t, res.BreachID)

	var b models.Breach
	require.NoError(t, db.First(&b, res.BreachID).Error)
	assert.Equal(t, models.LevelWarning, b.Level)
	assert.Equal(t, 80.0, b.ThresholdValue)
	assert.Equal(t, "warning", b.ThresholdKind)
	assert.Equal(t, 85.0, b.MeasuredValue)
	assert.Equal(t, 1, b.ConsecutiveCount)
	assert.Equal(t, models.BreachActive, b.Status)
	require.NotNil(t, b.BreachPct)
	assert.InDelta(t, 6.25, *b.BreachPct, 0.001)

	var updated models.IndicatorAssignment
	require.NoError(t, db.First(&updated, a.ID).Error)
	assert.Equal(t, models.LevelWarning, updated.BreachStatus)
	require.NotNil(t, updated.CurrentValue)
	assert.Equal(t, 85.0, *updated.CurrentValue)
}

func TestRecordMeasurementIdempotentPerAssignment(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, models.RoleRiskManager)
	risk := seedRisk(t, db, org.ID)
	def := seedIndicator(t, db, org.ID, f(80), f(90), models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, nil, nil)

	first, err := RecordMeasurement(db, user, a.ID, 85, time.Now())
	require.NoError(t, err)

	// второй замер при открытом нарушении обновляет ту же запись
	second, err := RecordMeasurement(db, user, a.ID, 95, time.Now())
	require.NoError(t, err)
	assert.Equal(t, first.BreachID, second.BreachID)
	assert.Equal(t, models.LevelCritical, second.Level)

	var count int64
	db.Model(&models.Breach{}).Where("assignment_id = ?", a.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	var b models.Breach
	require.NoError(t, db.First(&b, first.BreachID).Error)
	// эскалация warning → critical увеличивает счётчик
	assert.Equal(t, 2, b.ConsecutiveCount)
	assert.Equal(t, models.LevelCritical, b.Level)
	assert.Equal(t, "critical", b.ThresholdKind)
	assert.Equal(t, 90.0, b.ThresholdValue)
}

func TestRecordMeasurementConsecutiveResetAfterNormal(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, models.RoleRiskManager)
	risk := seedRisk(t, db, org.ID)
	def := seedIndicator(t, db, org.ID, f(80), f(90), models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, nil, nil)

	res, err := RecordMeasurement(db, user, a.ID, 85, time.Now())
	require.NoError(t, err)
	_, err = RecordMeasurement(db, user, a.ID, 86, time.Now())
	require.NoError(t, err)

	var b models.Breach
	require.NoError(t, db.First(&b, res.BreachID).Error)
	assert.Equal(t, 2, b.ConsecutiveCount)

	// возврат в норму сбрасывает базу отсчёта
	normal, err := RecordMeasurement(db, user, a.ID, 50, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.LevelNormal, normal.Level)
	assert.Zero(t, normal.BreachID)

	_, err = RecordMeasurement(db, user, a.ID, 85, time.Now())
	require.NoError(t, err)
	require.NoError(t, db.First(&b, res.BreachID).Error)
	assert.Equal(t, 1, b.ConsecutiveCount)
}

func TestRecordMeasurementUndetermined(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, models.RoleRiskManager)
	risk := seedRisk(t, db, org.ID)
	def := seedIndicator(t, db, org.ID, nil, nil, models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, nil, nil)

	res, err := RecordMeasurement(db, user, a.ID, 85, time.Now())
	require.ErrorIs(t, err, ErrNoThreshold)
	require.NotNil(t, res)
	assert.Equal(t, models.LevelUndetermined, res.Level)
	assert.Zero(t, res.BreachID)

	// замер всё равно сохранён
	var updated models.IndicatorAssignment
	require.NoError(t, db.First(&updated, a.ID).Error)
	require.NotNil(t, updated.CurrentValue)
	assert.Equal(t, 85.0, *updated.CurrentValue)
	assert.Equal(t, models.LevelUndetermined, updated.BreachStatus)
}

func TestRecordMeasurementZeroThresholdPriority(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, models.RoleRiskManager)
	risk := seedRisk(t, db, org.ID)
	// нулевой порог: любой неотрицательный замер — critical,
	// процент не определён, приоритет по level-only правилу
	def := seedIndicator(t, db, org.ID, nil, f(0), models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, nil, nil)

	res, err := RecordMeasurement(db, user, a.ID, 10, time.Now())
	require.NoError(t, err)

	var b models.Breach
	require.NoError(t, db.First(&b, res.BreachID).Error)
	assert.Nil(t, b.BreachPct)
	assert.Equal(t, models.PriorityHigh, b.Priority)
}

func TestBreachWorkflowLifecycle(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, models.RoleRiskManager)
	risk := seedRisk(t, db, org.ID)
	def := seedIndicator(t, db, org.ID, f(80), f(90), models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, nil, nil)

	detectedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	res, err := RecordMeasurement(db, user, a.ID, 85, detectedAt)
	require.NoError(t, err)

	b, err := AcknowledgeBreach(db, user, res.BreachID)
	require.NoError(t, err)
	assert.Equal(t, models.BreachInvestigating, b.Status)
	assert.Equal(t, user.ID, b.ActionOwnerID)

	// повторный acknowledge — ошибка состояния с текущим статусом
	_, err = AcknowledgeBreach(db, user, res.BreachID)
	require.ErrorIs(t, err, ErrWorkflowState)
	assert.Contains(t, err.Error(), "investigating")

	b, err = StartMitigation(db, user, res.BreachID)
	require.NoError(t, err)
	assert.Equal(t, models.BreachMitigating, b.Status)

	// закрытие через 5 часов после обнаружения
	b, err = ResolveBreach(db, user, res.BreachID, "patched the service", detectedAt.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.BreachResolved, b.Status)
	require.NotNil(t, b.DurationHours)
	assert.InDelta(t, 5.0, *b.DurationHours, 0.001)

	// терминальный статус: дальнейшие переходы запрещены
	_, err = ResolveBreach(db, user, res.BreachID, "again", time.Now())
	require.ErrorIs(t, err, ErrWorkflowState)
	_, err = MarkFalsePositive(db, user, res.BreachID, "")
	require.ErrorIs(t, err, ErrWorkflowState)
}

func TestResolveBreachRequiresNotes(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, models.RoleRiskManager)
	risk := seedRisk(t, db, org.ID)
	def := seedIndicator(t, db, org.ID, f(80), f(90), models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, nil, nil)

	res, err := RecordMeasurement(db, user, a.ID, 85, time.Now())
	require.NoError(t, err)

	_, err = ResolveBreach(db, user, res.BreachID, "", time.Now())
	require.Error(t, err)
}

func TestPinnedPriorityNotOverwritten(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, models.RoleRiskManager)
	risk := seedRisk(t, db, org.ID)
	def := seedIndicator(t, db, org.ID, f(80), f(90), models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, nil, nil)

	res, err := RecordMeasurement(db, user, a.ID, 85, time.Now())
	require.NoError(t, err)

	p := models.PriorityCritical
	_, err = UpdateBreachDetails(db, user, res.BreachID, BreachDetails{Priority: &p})
	require.NoError(t, err)

	// новый замер не перетирает закреплённый приоритет
	_, err = RecordMeasurement(db, user, a.ID, 86, time.Now())
	require.NoError(t, err)

	var b models.Breach
	require.NoError(t, db.First(&b, res.BreachID).Error)
	assert.Equal(t, models.PriorityCritical, b.Priority)
	assert.True(t, b.PriorityPinned)
}

func TestRecordMeasurementForeignOrg(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	risk := seedRisk(t, db, org.ID)
	def := seedIndicator(t, db, org.ID, f(80), f(90), models.LowerIsBetter)
	a := seedAssignment(t, db, risk.ID, def.ID, nil, nil)

	other := models.Organization{Name: "Other", ActiveYear: 2025, ActiveQuarter: 1}
	require.NoError(t, db.Create(&other).Error)
	outsider := seedUser(t, db, other.ID, models.RoleRiskManager)

	_, err := RecordMeasurement(db, outsider, a.ID, 85, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}
