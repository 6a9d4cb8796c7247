package engine

import (
	"testing"

	"risk-register/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveThresholdsDefaults(t *testing.T) {
	def := models.IndicatorDefinition{DefaultWarning: f(75), DefaultCritical: f(90)}
	a := models.IndicatorAssignment{}

	eff := ResolveThresholds(a, def)
	require.NotNil(t, eff.Warning)
	require.NotNil(t, eff.Critical)
	assert.Equal(t, 75.0, *eff.Warning)
	assert.Equal(t, 90.0, *eff.Critical)
}

func TestResolveThresholdsOverrideWinsPerDimension(t *testing.T) {
	def := models.IndicatorDefinition{DefaultWarning: f(75), DefaultCritical: f(90)}
	a := models.IndicatorAssignment{WarningOverride: f(80)}

	eff := ResolveThresholds(a, def)
	// переопределён только warning; critical остаётся дефолтным
	assert.Equal(t, 80.0, *eff.Warning)
	assert.Equal(t, 90.0, *eff.Critical)
}

func TestResolveThresholdsBothOverridden(t *testing.T) {
	def := models.IndicatorDefinition{DefaultWarning: f(75), DefaultCritical: f(90)}
	a := models.IndicatorAssignment{WarningOverride: f(60), CriticalOverride: f(70)}

	eff := ResolveThresholds(a, def)
	assert.Equal(t, 60.0, *eff.Warning)
	assert.Equal(t, 70.0, *eff.Critical)
}

func TestResolveThresholdsUndetermined(t *testing.T) {
	eff := ResolveThresholds(models.IndicatorAssignment{}, models.IndicatorDefinition{})
	assert.True(t, eff.Undetermined())

	// одного порога достаточно, чтобы классифицировать
	eff = ResolveThresholds(models.IndicatorAssignment{CriticalOverride: f(90)}, models.IndicatorDefinition{})
	assert.False(t, eff.Undetermined())
}
