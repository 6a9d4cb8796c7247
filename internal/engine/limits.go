package engine

import (
	"errors"
	"time"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"gorm.io/gorm"
)

// LimitResult — итог оценки значения против толеранса.
type LimitResult struct {
	Kind     models.LimitKind `json:"kind"`
	BreachID uint             `json:"breach_id,omitempty"`
}

// refreshException — истёкшее исключение перестаёт действовать:
// нарушение оценивается так, как если бы исключения не было.
func refreshException(b *models.RiskBreach, now time.Time) bool {
	if b.ExceptionStatus != models.ExceptionApproved {
		return false
	}
	if b.ValidUntil != nil && b.ValidUntil.Before(now) {
		b.ExceptionStatus = models.ExceptionExpired
		return true
	}
	return false
}

// EvaluateLimit — оценка текущего значения метрики против толеранса
// организации. Открывает/обновляет RiskBreach; возврат в границы
// закрывает открытое нарушение как исправленное.
func EvaluateLimit(tx *gorm.DB, actor models.User, limitID uint, value float64, riskID *uint, now time.Time) (*LimitResult, error) {
	var l models.ToleranceLimit
	err := tx.Where("id = ? AND organization_id = ?", limitID, actor.OrganizationID).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	kind := ClassifyLimit(value, l)
	res := &LimitResult{Kind: kind}

	var open models.RiskBreach
	err = lockRow(tx).
		Where("limit_id = ? AND status NOT IN ?", l.ID,
			[]models.BreachWorkflowStatus{models.BreachResolved, models.BreachFalsePositive}).
		First(&open).Error
	hasOpen := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if kind == models.LimitNone {
		if !hasOpen {
			return res, nil
		}
		// значение вернулось в границы — нарушение исправлено
		before := open
		open.Status = models.BreachResolved
		open.ResolvedAt = &now
		if err := tx.Save(&open).Error; err != nil {
			return nil, err
		}
		database.RecordChange(tx, actor.ID, l.OrganizationID, "risk_breach", open.ID, "status_change", &before, &open, "remediated")
		return res, nil
	}

	notified := l.SoftNotifyRoles
	if kind == models.LimitHard {
		notified = l.HardNotifyRoles
	}

	if !hasOpen {
		b := models.RiskBreach{
			OrganizationID: l.OrganizationID,
			LimitID:        l.ID,
			RiskID:         riskID,
			Kind:           kind,
			MeasuredValue:  value,
			LimitValue:     limitBoundFor(kind, value, l),
			Unit:           l.Unit,
			Status:         models.BreachActive,
			DetectedAt:     now,
			NotifiedRoles:  notified,
		}
		if kind == models.LimitHard {
			b.BoardNotificationRequired = l.BoardEscalation
			b.RegulatorNotificationRequired = l.RegulatorNotify
		}
		if err := tx.Create(&b).Error; err != nil {
			return nil, err
		}
		database.RecordChange(tx, actor.ID, l.OrganizationID, "risk_breach", b.ID, "create", nil, &b, "")
		res.BreachID = b.ID
		return res, nil
	}

	before := open
	open.Kind = kind
	open.MeasuredValue = value
	open.LimitValue = limitBoundFor(kind, value, l)
	open.NotifiedRoles = notified
	if kind == models.LimitHard {
		// защёлка: флаги эскалации не сбрасываются
		open.BoardNotificationRequired = open.BoardNotificationRequired || l.BoardEscalation
		open.RegulatorNotificationRequired = open.RegulatorNotificationRequired || l.RegulatorNotify
	}
	expired := refreshException(&open, now)
	if err := tx.Save(&open).Error; err != nil {
		return nil, err
	}
	details := ""
	if expired {
		details = "exception expired"
	}
	database.RecordChange(tx, actor.ID, l.OrganizationID, "risk_breach", open.ID, "update", &before, &open, details)

	res.BreachID = open.ID
	return res, nil
}

func loadRiskBreach(tx *gorm.DB, actor models.User, id uint) (*models.RiskBreach, error) {
	var b models.RiskBreach
	err := lockRow(tx).
		Where("id = ? AND organization_id = ?", id, actor.OrganizationID).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// RequestException — заявка на исключение по жёсткому нарушению:
// бизнес-обоснование, компенсирующие контроли, срок действия.
// Срок в прошлом отклоняется сразу.
func RequestException(tx *gorm.DB, actor models.User, breachID uint, justification, compensating string, validUntil, now time.Time) (*models.RiskBreach, error) {
	if justification == "" {
		return nil, errors.New("business justification is required")
	}
	if !validUntil.After(now) {
		return nil, ErrExpiredValidity
	}

	b, err := loadRiskBreach(tx, actor, breachID)
	if err != nil {
		return nil, err
	}
	if b.Kind != models.LimitHard {
		return b, workflowErr(string(b.Kind))
	}
	if b.Status.Terminal() {
		return b, workflowErr(string(b.Status))
	}
	if b.ExceptionStatus == models.ExceptionPending || b.ExceptionStatus == models.ExceptionApproved {
		return b, workflowErr(string(b.ExceptionStatus))
	}

	before := *b
	b.ExceptionStatus = models.ExceptionPending
	b.BusinessJustification = justification
	b.CompensatingControls = compensating
	b.ValidUntil = &validUntil
	b.RequestedByID = actor.ID
	b.DecidedByID = 0
	b.DecisionReason = ""
	b.DecidedAt = nil
	if err := tx.Save(b).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, b.OrganizationID, "risk_breach", b.ID, "exception_requested", &before, b, "")
	return b, nil
}

// ApproveException — утверждение исключения. Только из
// pending_approval; нарушение считается толерированным до ValidUntil.
func ApproveException(tx *gorm.DB, actor models.User, breachID uint, now time.Time) (*models.RiskBreach, error) {
	b, err := loadRiskBreach(tx, actor, breachID)
	if err != nil {
		return nil, err
	}
	if b.ExceptionStatus != models.ExceptionPending {
		return b, workflowErr(string(b.ExceptionStatus))
	}

	before := *b
	b.ExceptionStatus = models.ExceptionApproved
	b.DecidedByID = actor.ID
	b.DecidedAt = &now
	if err := tx.Save(b).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, b.OrganizationID, "risk_breach", b.ID, "exception_approved", &before, b, "")
	return b, nil
}

// RejectException — отклонение с обязательной причиной.
func RejectException(tx *gorm.DB, actor models.User, breachID uint, reason string, now time.Time) (*models.RiskBreach, error) {
	if reason == "" {
		return nil, errors.New("rejection reason is required")
	}

	b, err := loadRiskBreach(tx, actor, breachID)
	if err != nil {
		return nil, err
	}
	if b.ExceptionStatus != models.ExceptionPending {
		return b, workflowErr(string(b.ExceptionStatus))
	}

	before := *b
	b.ExceptionStatus = models.ExceptionRejected
	b.DecidedByID = actor.ID
	b.DecisionReason = reason
	b.DecidedAt = &now
	if err := tx.Save(b).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, b.OrganizationID, "risk_breach", b.ID, "exception_rejected", &before, b, "")
	return b, nil
}
