package engine

import (
	"errors"
	"time"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockRow — сериализация записей по одной привязке: построчная
// блокировка вместо глобального лока. В sqlite (тесты) FOR UPDATE
// не поддерживается, там изоляцию даёт сам движок БД.
func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

var levelRank = map[models.BreachLevel]int{
	models.LevelNormal:   0,
	models.LevelWarning:  1,
	models.LevelCritical: 2,
}

// MeasurementResult — итог обработки одного замера.
type MeasurementResult struct {
	Level    models.BreachLevel `json:"level"`
	BreachID uint               `json:"breach_id,omitempty"`
}

// RecordMeasurement — конвейер resolve→classify→lifecycle для одного
// замера: блокирует привязку, разрешает действующие пороги,
// классифицирует значение и открывает либо обновляет запись о
// нарушении. Вызывается внутри транзакции; частичное применение
// снаружи не наблюдаемо.
func RecordMeasurement(tx *gorm.DB, actor models.User, assignmentID uint, value float64, observedAt time.Time) (*MeasurementResult, error) {
	var a models.IndicatorAssignment
	if err := lockRow(tx).First(&a, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var risk models.Risk
	if err := tx.First(&risk, a.RiskID).Error; err != nil {
		return nil, err
	}
	if risk.OrganizationID != actor.OrganizationID {
		return nil, ErrNotFound
	}

	var def models.IndicatorDefinition
	if err := tx.First(&def, a.IndicatorID).Error; err != nil {
		return nil, err
	}

	eff := ResolveThresholds(a, def)
	level := ClassifyLevel(value, eff, def.Direction)

	prevStatus := a.BreachStatus
	a.CurrentValue = &value
	a.LastMeasuredAt = &observedAt
	a.BreachStatus = level
	if err := tx.Save(&a).Error; err != nil {
		return nil, err
	}

	res := &MeasurementResult{Level: level}

	switch level {
	case models.LevelUndetermined:
		// пороги не настроены: замер сохранён, классификации нет
		return res, ErrNoThreshold
	case models.LevelNormal:
		return res, nil
	}

	// warning / critical: открываем или обновляем нарушение
	thresholdKind := "warning"
	threshold := 0.0
	if level == models.LevelCritical {
		thresholdKind = "critical"
		threshold = *eff.Critical
	} else {
		threshold = *eff.Warning
	}
	pct := BreachPercent(value, threshold)

	var open models.Breach
	err := lockRow(tx).
		Where("assignment_id = ? AND status NOT IN ?", a.ID,
			[]models.BreachWorkflowStatus{models.BreachResolved, models.BreachFalsePositive}).
		First(&open).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		b := models.Breach{
			OrganizationID:   risk.OrganizationID,
			AssignmentID:     a.ID,
			IndicatorID:      def.ID,
			RiskID:           risk.ID,
			Level:            level,
			MeasuredValue:    value,
			ThresholdValue:   threshold,
			ThresholdKind:    thresholdKind,
			Unit:             def.Unit,
			BreachPct:        pct,
			ConsecutiveCount: 1,
			Status:           models.BreachActive,
			Priority:         AutoPriority(level, pct),
			DetectedAt:       observedAt,
		}
		if err := tx.Create(&b).Error; err != nil {
			return nil, err
		}
		database.RecordChange(tx, actor.ID, risk.OrganizationID, "breach", b.ID, "create", nil, &b, "")
		res.BreachID = b.ID
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	// пока нарушение не закрыто, новый замер обновляет ту же запись
	before := open

	switch {
	case prevStatus == models.LevelNormal:
		// после возврата в норму счётчик начинается заново
		open.ConsecutiveCount = 1
	case levelRank[level] >= levelRank[open.Level]:
		open.ConsecutiveCount++
	default:
		open.ConsecutiveCount = 1
	}

	open.Level = level
	open.MeasuredValue = value
	open.ThresholdValue = threshold
	open.ThresholdKind = thresholdKind
	open.BreachPct = pct
	if !open.PriorityPinned {
		open.Priority = AutoPriority(level, pct)
	}

	if err := tx.Save(&open).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "breach", open.ID, "update", &before, &open, "")

	res.BreachID = open.ID
	return res, nil
}

// loadBreach — нарушение в границах организации актора, под блокировкой.
func loadBreach(tx *gorm.DB, actor models.User, id uint) (*models.Breach, error) {
	var b models.Breach
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

// AcknowledgeBreach — active → investigating.
func AcknowledgeBreach(tx *gorm.DB, actor models.User, id uint) (*models.Breach, error) {
	b, err := loadBreach(tx, actor, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BreachActive {
		return b, workflowErr(string(b.Status))
	}

	before := *b
	b.Status = models.BreachInvestigating
	if b.ActionOwnerID == 0 {
		b.ActionOwnerID = actor.ID
	}
	if err := tx.Save(b).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, b.OrganizationID, "breach", b.ID, "status_change", &before, b, "acknowledged")
	return b, nil
}

// StartMitigation — active/investigating → mitigating.
func StartMitigation(tx *gorm.DB, actor models.User, id uint) (*models.Breach, error) {
	b, err := loadBreach(tx, actor, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BreachActive && b.Status != models.BreachInvestigating {
		return b, workflowErr(string(b.Status))
	}

	before := *b
	b.Status = models.BreachMitigating
	if err := tx.Save(b).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, b.OrganizationID, "breach", b.ID, "status_change", &before, b, "mitigation started")
	return b, nil
}

// ResolveBreach — закрытие из любого нетерминального статуса.
// Заметки обязательны; длительность фиксируется один раз и дальше
// не меняется.
func ResolveBreach(tx *gorm.DB, actor models.User, id uint, notes string, resolvedAt time.Time) (*models.Breach, error) {
	if notes == "" {
		return nil, errors.New("resolution notes are required")
	}

	b, err := loadBreach(tx, actor, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return b, workflowErr(string(b.Status))
	}

	before := *b
	hours := resolvedAt.Sub(b.DetectedAt).Hours()

	b.Status = models.BreachResolved
	b.ResolvedAt = &resolvedAt
	b.DurationHours = &hours
	b.ResolutionNotes = notes
	if err := tx.Save(b).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, b.OrganizationID, "breach", b.ID, "status_change", &before, b, "resolved")
	return b, nil
}

// MarkFalsePositive — допустим из любого статуса до resolved.
func MarkFalsePositive(tx *gorm.DB, actor models.User, id uint, notes string) (*models.Breach, error) {
	b, err := loadBreach(tx, actor, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return b, workflowErr(string(b.Status))
	}

	before := *b
	b.Status = models.BreachFalsePositive
	b.ResolutionNotes = notes
	if err := tx.Save(b).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, b.OrganizationID, "breach", b.ID, "status_change", &before, b, "false positive")
	return b, nil
}

// BreachDetails — правка рабочих полей открытого нарушения.
type BreachDetails struct {
	Priority          *models.BreachPriority
	ActionOwnerID     *uint
	RootCauseNotes    *string
	PreventiveActions *string
}

// UpdateBreachDetails — явная установка приоритета закрепляет его:
// автоподбор перестаёт перезаписывать поле.
func UpdateBreachDetails(tx *gorm.DB, actor models.User, id uint, d BreachDetails) (*models.Breach, error) {
	b, err := loadBreach(tx, actor, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return b, workflowErr(string(b.Status))
	}

	before := *b
	if d.Priority != nil {
		b.Priority = *d.Priority
		b.PriorityPinned = true
	}
	if d.ActionOwnerID != nil {
		b.ActionOwnerID = *d.ActionOwnerID
	}
	if d.RootCauseNotes != nil {
		b.RootCauseNotes = *d.RootCauseNotes
	}
	if d.PreventiveActions != nil {
		b.PreventiveActions = *d.PreventiveActions
	}
	if err := tx.Save(b).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, b.OrganizationID, "breach", b.ID, "update", &before, b, "")
	return b, nil
}
