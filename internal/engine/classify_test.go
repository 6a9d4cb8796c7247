package engine

import (
	"testing"

	"risk-register/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLevelLowerIsBetter(t *testing.T) {
	eff := EffectiveThresholds{Warning: f(80), Critical: f(90)}

	assert.Equal(t, models.LevelNormal, ClassifyLevel(79.9, eff, models.LowerIsBetter))
	assert.Equal(t, models.LevelWarning, ClassifyLevel(85, eff, models.LowerIsBetter))
	assert.Equal(t, models.LevelCritical, ClassifyLevel(95, eff, models.LowerIsBetter))

	// равенство порогу — нарушение
	assert.Equal(t, models.LevelWarning, ClassifyLevel(80, eff, models.LowerIsBetter))
	assert.Equal(t, models.LevelCritical, ClassifyLevel(90, eff, models.LowerIsBetter))
}

func TestClassifyLevelHigherIsBetter(t *testing.T) {
	// например, доступность сервиса: warning при ≤ 99, critical при ≤ 95
	eff := EffectiveThresholds{Warning: f(99), Critical: f(95)}

	assert.Equal(t, models.LevelNormal, ClassifyLevel(99.9, eff, models.HigherIsBetter))
	assert.Equal(t, models.LevelWarning, ClassifyLevel(97, eff, models.HigherIsBetter))
	assert.Equal(t, models.LevelCritical, ClassifyLevel(94, eff, models.HigherIsBetter))
	assert.Equal(t, models.LevelCritical, ClassifyLevel(95, eff, models.HigherIsBetter))
}

func TestClassifyLevelCriticalPrecedence(t *testing.T) {
	// оба порога пробиты — побеждает critical
	eff := EffectiveThresholds{Warning: f(80), Critical: f(90)}
	assert.Equal(t, models.LevelCritical, ClassifyLevel(120, eff, models.LowerIsBetter))
}

func TestClassifyLevelUndetermined(t *testing.T) {
	assert.Equal(t, models.LevelUndetermined,
		ClassifyLevel(50, EffectiveThresholds{}, models.LowerIsBetter))
}

func TestBreachPercent(t *testing.T) {
	pct := BreachPercent(120, 80)
	require.NotNil(t, pct)
	assert.InDelta(t, 50.0, *pct, 0.001)

	// знак сохраняется
	pct = BreachPercent(60, 80)
	require.NotNil(t, pct)
	assert.InDelta(t, -25.0, *pct, 0.001)

	// нулевой порог: процент не определён, не NaN и не мусор
	assert.Nil(t, BreachPercent(10, 0))
}

func TestAutoPriorityRuleOrder(t *testing.T) {
	// порядок правил фиксирован: первое совпавшее выигрывает
	cases := []struct {
		name  string
		level models.BreachLevel
		pct   *float64
		want  models.BreachPriority
	}{
		{"critical over 50", models.LevelCritical, f(51), models.PriorityCritical},
		{"critical over 100 still critical", models.LevelCritical, f(150), models.PriorityCritical},
		{"critical under 50", models.LevelCritical, f(10), models.PriorityHigh},
		{"critical no pct", models.LevelCritical, nil, models.PriorityHigh},
		{"warning over 100", models.LevelWarning, f(120), models.PriorityHigh},
		{"warning over 50", models.LevelWarning, f(60), models.PriorityMedium},
		{"warning small", models.LevelWarning, f(5), models.PriorityLow},
		{"warning no pct", models.LevelWarning, nil, models.PriorityLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AutoPriority(tc.level, tc.pct))
		})
	}
}

func TestClassifyLimitDirections(t *testing.T) {
	above := models.ToleranceLimit{Direction: models.LimitAbove, SoftLimit: f(100), HardLimit: f(150)}
	assert.Equal(t, models.LimitNone, ClassifyLimit(99, above))
	assert.Equal(t, models.LimitSoft, ClassifyLimit(100, above))
	assert.Equal(t, models.LimitHard, ClassifyLimit(150, above))

	below := models.ToleranceLimit{Direction: models.LimitBelow, SoftLimit: f(50), HardLimit: f(20)}
	assert.Equal(t, models.LimitNone, ClassifyLimit(51, below))
	assert.Equal(t, models.LimitSoft, ClassifyLimit(40, below))
	assert.Equal(t, models.LimitHard, ClassifyLimit(20, below))

	between := models.ToleranceLimit{
		Direction: models.LimitBetween,
		SoftLimit: f(10), SoftUpper: f(90),
		HardLimit: f(5), HardUpper: f(95),
	}
	assert.Equal(t, models.LimitNone, ClassifyLimit(50, between))
	assert.Equal(t, models.LimitSoft, ClassifyLimit(8, between))
	assert.Equal(t, models.LimitSoft, ClassifyLimit(92, between))
	assert.Equal(t, models.LimitHard, ClassifyLimit(3, between))
	assert.Equal(t, models.LimitHard, ClassifyLimit(97, between))
}
