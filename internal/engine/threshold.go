package engine

import "risk-register/internal/models"

// EffectiveThresholds — действующие пороги привязки после применения
// переопределений. Каждое измерение (warning / critical) разрешается
// независимо: переопределение по одному не трогает дефолт другого.
type EffectiveThresholds struct {
	Warning  *float64
	Critical *float64
}

// Undetermined — ни один порог не разрешился; замеры по такой
// привязке классифицировать нельзя.
func (e EffectiveThresholds) Undetermined() bool {
	return e.Warning == nil && e.Critical == nil
}

// ResolveThresholds — чистая функция: переопределение привязки,
// если задано, всегда побеждает дефолт каталога.
func ResolveThresholds(a models.IndicatorAssignment, def models.IndicatorDefinition) EffectiveThresholds {
	eff := EffectiveThresholds{
		Warning:  def.DefaultWarning,
		Critical: def.DefaultCritical,
	}
	if a.WarningOverride != nil {
		eff.Warning = a.WarningOverride
	}
	if a.CriticalOverride != nil {
		eff.Critical = a.CriticalOverride
	}
	return eff
}
