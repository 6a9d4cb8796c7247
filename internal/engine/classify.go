package engine

import (
	"math"

	"risk-register/internal/models"
)

// breached — пробито ли значение value относительно порога threshold
// с учётом направления «хорошести» индикатора. Равенство порогу
// считается нарушением.
func breached(value, threshold float64, dir models.Direction) bool {
	if dir == models.HigherIsBetter {
		// чем выше, тем лучше: плохо, когда значение упало до порога
		return value <= threshold
	}
	return value >= threshold
}

// ClassifyLevel — чистая функция классификации замера. Critical
// проверяется первым: он всегда экстремальнее warning в настроенном
// направлении, и при совпадении обоих побеждает.
func ClassifyLevel(value float64, eff EffectiveThresholds, dir models.Direction) models.BreachLevel {
	if eff.Undetermined() {
		return models.LevelUndetermined
	}
	if eff.Critical != nil && breached(value, *eff.Critical, dir) {
		return models.LevelCritical
	}
	if eff.Warning != nil && breached(value, *eff.Warning, dir) {
		return models.LevelWarning
	}
	return models.LevelNormal
}

// BreachPercent — относительное превышение порога в процентах,
// (measured − threshold) / |threshold| × 100. При нулевом пороге
// процент не определён (nil), а не NaN.
func BreachPercent(measured, threshold float64) *float64 {
	if threshold == 0 {
		return nil
	}
	pct := (measured - threshold) / math.Abs(threshold) * 100
	return &pct
}

// AutoPriority — автоподбор приоритета нарушения. Порядок правил
// фиксирован; первое совпавшее правило выигрывает. Изменение порядка —
// изменение поведения, требующее согласования.
func AutoPriority(level models.BreachLevel, pct *float64) models.BreachPriority {
	abs := 0.0
	if pct != nil {
		abs = math.Abs(*pct)
	}
	switch {
	case level == models.LevelCritical && pct != nil && abs > 50:
		return models.PriorityCritical
	case level == models.LevelCritical:
		return models.PriorityHigh
	case pct != nil && abs > 100:
		return models.PriorityHigh
	case pct != nil && abs > 50:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// ClassifyLimit — классификация значения против толеранса аппетита:
// none / soft / hard. Жёсткая граница проверяется первой.
func ClassifyLimit(value float64, l models.ToleranceLimit) models.LimitKind {
	over := func(limit, upper *float64) bool {
		switch l.Direction {
		case models.LimitAbove:
			return limit != nil && value >= *limit
		case models.LimitBelow:
			return limit != nil && value <= *limit
		case models.LimitBetween:
			// нарушение при выходе из коридора [limit, upper]
			if limit != nil && value <= *limit {
				return true
			}
			return upper != nil && value >= *upper
		}
		return false
	}

	if over(l.HardLimit, l.HardUpper) {
		return models.LimitHard
	}
	if over(l.SoftLimit, l.SoftUpper) {
		return models.LimitSoft
	}
	return models.LimitNone
}

// limitBoundFor — граница, против которой зафиксировано нарушение
// (для записи в RiskBreach.LimitValue).
func limitBoundFor(kind models.LimitKind, value float64, l models.ToleranceLimit) float64 {
	pick := func(lower, upper *float64) float64 {
		if l.Direction == models.LimitBetween && upper != nil && lower != nil {
			// ближняя нарушенная граница коридора
			if value >= *upper {
				return *upper
			}
			return *lower
		}
		if lower != nil {
			return *lower
		}
		if upper != nil {
			return *upper
		}
		return 0
	}
	if kind == models.LimitHard {
		return pick(l.HardLimit, l.HardUpper)
	}
	return pick(l.SoftLimit, l.SoftUpper)
}
