package engine

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"gorm.io/gorm"
)

// CommitResult — итог фиксации периода.
type CommitResult struct {
	Year            int `json:"year"`
	Quarter         int `json:"quarter"`
	RiskCount       int `json:"risk_count"`
	OpenBreachCount int `json:"open_breach_count"`
	RepairedLinks   int `json:"repaired_links"`
}

// riskSnapshot — денормализованный as-of срез связей риска.
// Значения копируются, не ссылаются: история не меняется при
// последующих правках живых записей.
type riskSnapshot struct {
	Causes   []causeSnapshot   `json:"causes"`
	Impacts  []impactSnapshot  `json:"impacts"`
	Controls []controlSnapshot `json:"controls"`
}

type causeSnapshot struct {
	CauseID         uint    `json:"cause_id"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	IsPrimary       bool    `json:"is_primary"`
	ContributionPct float64 `json:"contribution_pct"`
}

type impactSnapshot struct {
	ImpactID    uint    `json:"impact_id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	IsPrimary   bool    `json:"is_primary"`
	SeverityPct float64 `json:"severity_pct"`
}

type controlSnapshot struct {
	ControlID     uint   `json:"control_id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Effectiveness int    `json:"effectiveness"`
	Status        string `json:"status"`
}

// CommitPeriod — фиксация периода: проверка инвариантов, заморозка
// всех активных рисков организации в RiskHistory, запись в леджер
// PeriodCommit и сдвиг активного периода на следующий квартал.
// Всё в одной транзакции: либо зафиксировано целиком, либо ничего.
// Повторная фиксация того же периода — конфликт, а не дубликаты.
func CommitPeriod(db *gorm.DB, actor models.User, orgID uint, year, quarter int, notes string) (*CommitResult, error) {
	if actor.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	if quarter < 1 || quarter > 4 {
		return nil, errors.New("quarter must be between 1 and 4")
	}

	res := &CommitResult{Year: year, Quarter: quarter}

	err := db.Transaction(func(tx *gorm.DB) error {
		// сериализация фиксаций по организации: блокируем строку
		// организации на время коммита
		var org models.Organization
		if err := lockRow(tx).First(&org, orgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.PeriodCommit{}).
			Where("organization_id = ? AND year = ? AND quarter = ?", orgID, year, quarter).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateCommit
		}

		var risks []models.Risk
		if err := tx.Where("organization_id = ? AND status <> ?", orgID, models.RiskClosed).
			Order("id asc").
			Find(&risks).Error; err != nil {
			return err
		}

		for _, r := range risks {
			// инвариант primary чинится до заморозки, молча для
			// вызывающего: только аудит и лог
			repairedC, err := RepairCausePrimaries(tx, actor.ID, orgID, r.ID)
			if err != nil {
				return err
			}
			repairedI, err := RepairImpactPrimaries(tx, actor.ID, orgID, r.ID)
			if err != nil {
				return err
			}
			if repairedC {
				res.RepairedLinks++
				log.Printf("repaired primary cause invariant for risk %d before commit", r.ID)
			}
			if repairedI {
				res.RepairedLinks++
				log.Printf("repaired primary impact invariant for risk %d before commit", r.ID)
			}

			snap, err := buildSnapshot(tx, r.ID)
			if err != nil {
				return err
			}

			h := models.RiskHistory{
				RiskID:             r.ID,
				OrganizationID:     orgID,
				Year:               year,
				Quarter:            quarter,
				ChangeType:         "period_commit",
				Code:               r.Code,
				Title:              r.Title,
				Category:           r.Category,
				Status:             r.Status,
				InherentLikelihood: r.InherentLikelihood,
				InherentImpact:     r.InherentImpact,
				ResidualLikelihood: r.ResidualLikelihood,
				ResidualImpact:     r.ResidualImpact,
				InherentRating:     r.InherentRating(),
				ResidualRating:     r.ResidualRating(),
				Snapshot:           snap,
			}
			if err := tx.Create(&h).Error; err != nil {
				// уникальный индекс (risk, period, change_type):
				// конкурентный коммит проскочил предпроверку,
				// вызывающий повторяет запрос
				if isUniqueViolation(err) {
					return ErrConflict
				}
				return err
			}
		}

		var openBreaches int64
		if err := tx.Model(&models.Breach{}).
			Where("organization_id = ? AND status NOT IN ?", orgID,
				[]models.BreachWorkflowStatus{models.BreachResolved, models.BreachFalsePositive}).
			Count(&openBreaches).Error; err != nil {
			return err
		}

		commit := models.PeriodCommit{
			OrganizationID:  orgID,
			Year:            year,
			Quarter:         quarter,
			RiskCount:       len(risks),
			OpenBreachCount: int(openBreaches),
			RepairedLinks:   res.RepairedLinks,
			CommittedByID:   actor.ID,
			Notes:           notes,
		}
		if err := tx.Create(&commit).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}

		res.RiskCount = len(risks)
		res.OpenBreachCount = int(openBreaches)

		// сдвигаем активный период организации
		org.ActiveYear, org.ActiveQuarter = models.NextPeriod(year, quarter)
		if err := tx.Save(&org).Error; err != nil {
			return err
		}

		database.RecordChange(tx, actor.ID, orgID, "period_commit", commit.ID, "create", nil, &commit, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func buildSnapshot(tx *gorm.DB, riskID uint) (string, error) {
	snap := riskSnapshot{
		Causes:   []causeSnapshot{},
		Impacts:  []impactSnapshot{},
		Controls: []controlSnapshot{},
	}

	var causes []models.RiskRootCause
	if err := tx.Preload("Cause").Where("risk_id = ?", riskID).Order("id asc").Find(&causes).Error; err != nil {
		return "", err
	}
	for _, l := range causes {
		snap.Causes = append(snap.Causes, causeSnapshot{
			CauseID:         l.CauseID,
			Code:            l.Cause.Code,
			Name:            l.Cause.Name,
			IsPrimary:       l.IsPrimary,
			ContributionPct: l.ContributionPct,
		})
	}

	var impacts []models.RiskImpact
	if err := tx.Preload("Impact").Where("risk_id = ?", riskID).Order("id asc").Find(&impacts).Error; err != nil {
		return "", err
	}
	for _, l := range impacts {
		snap.Impacts = append(snap.Impacts, impactSnapshot{
			ImpactID:    l.ImpactID,
			Code:        l.Impact.Code,
			Name:        l.Impact.Name,
			IsPrimary:   l.IsPrimary,
			SeverityPct: l.SeverityPct,
		})
	}

	var controls []models.RiskControl
	if err := tx.Preload("Control").Where("risk_id = ?", riskID).Order("id asc").Find(&controls).Error; err != nil {
		return "", err
	}
	for _, l := range controls {
		snap.Controls = append(snap.Controls, controlSnapshot{
			ControlID:     l.ControlID,
			Code:          l.Control.Code,
			Name:          l.Control.Name,
			Effectiveness: l.Effectiveness,
			Status:        l.Status,
		})
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// LatestCommit — последняя фиксация организации (для отчётов).
func LatestCommit(db *gorm.DB, orgID uint) (*models.PeriodCommit, error) {
	var c models.PeriodCommit
	err := db.Where("organization_id = ?", orgID).
		Order("year desc, quarter desc").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
