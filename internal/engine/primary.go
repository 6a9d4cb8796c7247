package engine

import (
	"errors"

	"risk-register/internal/database"
	"risk-register/internal/models"

	"gorm.io/gorm"
)

// Инвариант: у риска ровно одна primary-причина (и одно primary-
// последствие), пока привязана хотя бы одна запись. Машина состояний:
// нет primary → первая запись становится primary; назначение нового
// primary → остальные понижаются в той же транзакции. Вызывающему
// коду рассуждать об инварианте не нужно.

func loadRiskScoped(tx *gorm.DB, actor models.User, riskID uint) (*models.Risk, error) {
	var risk models.Risk
	err := tx.Where("id = ? AND organization_id = ?", riskID, actor.OrganizationID).
		First(&risk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &risk, nil
}

// ====== ПРИЧИНЫ ======

// LinkCause — привязка причины к риску с соблюдением инварианта.
func LinkCause(tx *gorm.DB, actor models.User, link *models.RiskRootCause) error {
	risk, err := loadRiskScoped(tx, actor, link.RiskID)
	if err != nil {
		return err
	}

	var siblings int64
	if err := tx.Model(&models.RiskRootCause{}).
		Where("risk_id = ?", link.RiskID).
		Count(&siblings).Error; err != nil {
		return err
	}

	if siblings == 0 {
		// первая причина всегда primary
		link.IsPrimary = true
	} else if link.IsPrimary {
		if err := demoteCauses(tx, link.RiskID, 0); err != nil {
			return err
		}
	}

	if err := tx.Create(link).Error; err != nil {
		return err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "risk_root_cause", link.ID, "create", nil, link, "")
	return nil
}

// CauseLinkUpdate — изменяемые поля связи
type CauseLinkUpdate struct {
	IsPrimary       *bool
	ContributionPct *float64
	Notes           *string
}

// UpdateCauseLink — правка связи. Снятие единственного primary
// не оставляет риск без primary: флаг принудительно сохраняется.
func UpdateCauseLink(tx *gorm.DB, actor models.User, riskID, linkID uint, u CauseLinkUpdate) (*models.RiskRootCause, error) {
	risk, err := loadRiskScoped(tx, actor, riskID)
	if err != nil {
		return nil, err
	}

	var link models.RiskRootCause
	err = lockRow(tx).Where("id = ? AND risk_id = ?", linkID, riskID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	before := link
	if u.ContributionPct != nil {
		link.ContributionPct = *u.ContributionPct
	}
	if u.Notes != nil {
		link.Notes = *u.Notes
	}
	if u.IsPrimary != nil {
		if *u.IsPrimary && !link.IsPrimary {
			if err := demoteCauses(tx, riskID, link.ID); err != nil {
				return nil, err
			}
			link.IsPrimary = true
		}
		if !*u.IsPrimary && link.IsPrimary {
			// риск не может остаться без primary
			var others int64
			if err := tx.Model(&models.RiskRootCause{}).
				Where("risk_id = ? AND id <> ? AND is_primary", riskID, link.ID).
				Count(&others).Error; err != nil {
				return nil, err
			}
			if others == 0 {
				link.IsPrimary = true
			} else {
				link.IsPrimary = false
			}
		}
	}

	if err := tx.Save(&link).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "risk_root_cause", link.ID, "update", &before, &link, "")
	return &link, nil
}

// UnlinkCause — удаление связи; при удалении primary повышается
// последняя изменённая из оставшихся.
func UnlinkCause(tx *gorm.DB, actor models.User, riskID, linkID uint) error {
	risk, err := loadRiskScoped(tx, actor, riskID)
	if err != nil {
		return err
	}

	var link models.RiskRootCause
	err = tx.Where("id = ? AND risk_id = ?", linkID, riskID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := tx.Unscoped().Delete(&link).Error; err != nil {
		return err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "risk_root_cause", link.ID, "delete", &link, nil, "")

	if !link.IsPrimary {
		return nil
	}

	var next models.RiskRootCause
	err = tx.Where("risk_id = ?", riskID).
		Order("updated_at desc, id desc").
		First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // причин не осталось, нулевое число primary допустимо
	}
	if err != nil {
		return err
	}

	before := next
	next.IsPrimary = true
	if err := tx.Save(&next).Error; err != nil {
		return err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "risk_root_cause", next.ID, "invariant_repair", &before, &next, "promoted after primary unlink")
	return nil
}

func demoteCauses(tx *gorm.DB, riskID, exceptID uint) error {
	q := tx.Model(&models.RiskRootCause{}).Where("risk_id = ? AND is_primary", riskID)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Update("is_primary", false).Error
}

// RepairCausePrimaries — детерминированная починка инварианта:
// primary остаётся у последней изменённой записи. Возвращает,
// потребовалась ли починка.
func RepairCausePrimaries(tx *gorm.DB, actorID, orgID, riskID uint) (bool, error) {
	var links []models.RiskRootCause
	if err := tx.Where("risk_id = ?", riskID).
		Order("updated_at desc, id desc").
		Find(&links).Error; err != nil {
		return false, err
	}
	if len(links) == 0 {
		return false, nil
	}

	primaries := 0
	for _, l := range links {
		if l.IsPrimary {
			primaries++
		}
	}
	if primaries == 1 {
		return false, nil
	}

	// победитель: последний изменённый primary, а при нуле primary —
	// последняя изменённая запись вообще
	winner := links[0]
	for _, l := range links {
		if l.IsPrimary {
			winner = l
			break
		}
	}

	if err := demoteCauses(tx, riskID, winner.ID); err != nil {
		return false, err
	}
	if !winner.IsPrimary {
		winner.IsPrimary = true
		if err := tx.Save(&winner).Error; err != nil {
			return false, err
		}
	}
	database.RecordChange(tx, actorID, orgID, "risk_root_cause", winner.ID, "invariant_repair", nil, &winner, "primary invariant repaired")
	return true, nil
}

// ====== ПОСЛЕДСТВИЯ ======

// LinkImpact — привязка последствия; логика зеркальна причинам.
func LinkImpact(tx *gorm.DB, actor models.User, link *models.RiskImpact) error {
	risk, err := loadRiskScoped(tx, actor, link.RiskID)
	if err != nil {
		return err
	}

	var siblings int64
	if err := tx.Model(&models.RiskImpact{}).
		Where("risk_id = ?", link.RiskID).
		Count(&siblings).Error; err != nil {
		return err
	}

	if siblings == 0 {
		link.IsPrimary = true
	} else if link.IsPrimary {
		if err := demoteImpacts(tx, link.RiskID, 0); err != nil {
			return err
		}
	}

	if err := tx.Create(link).Error; err != nil {
		return err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "risk_impact", link.ID, "create", nil, link, "")
	return nil
}

type ImpactLinkUpdate struct {
	IsPrimary   *bool
	SeverityPct *float64
	Notes       *string
}

func UpdateImpactLink(tx *gorm.DB, actor models.User, riskID, linkID uint, u ImpactLinkUpdate) (*models.RiskImpact, error) {
	risk, err := loadRiskScoped(tx, actor, riskID)
	if err != nil {
		return nil, err
	}

	var link models.RiskImpact
	err = lockRow(tx).Where("id = ? AND risk_id = ?", linkID, riskID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	before := link
	if u.SeverityPct != nil {
		link.SeverityPct = *u.SeverityPct
	}
	if u.Notes != nil {
		link.Notes = *u.Notes
	}
	if u.IsPrimary != nil {
		if *u.IsPrimary && !link.IsPrimary {
			if err := demoteImpacts(tx, riskID, link.ID); err != nil {
				return nil, err
			}
			link.IsPrimary = true
		}
		if !*u.IsPrimary && link.IsPrimary {
			var others int64
			if err := tx.Model(&models.RiskImpact{}).
				Where("risk_id = ? AND id <> ? AND is_primary", riskID, link.ID).
				Count(&others).Error; err != nil {
				return nil, err
			}
			if others == 0 {
				link.IsPrimary = true
			} else {
				link.IsPrimary = false
			}
		}
	}

	if err := tx.Save(&link).Error; err != nil {
		return nil, err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "risk_impact", link.ID, "update", &before, &link, "")
	return &link, nil
}

func UnlinkImpact(tx *gorm.DB, actor models.User, riskID, linkID uint) error {
	risk, err := loadRiskScoped(tx, actor, riskID)
	if err != nil {
		return err
	}

	var link models.RiskImpact
	err = tx.Where("id = ? AND risk_id = ?", linkID, riskID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := tx.Unscoped().Delete(&link).Error; err != nil {
		return err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "risk_impact", link.ID, "delete", &link, nil, "")

	if !link.IsPrimary {
		return nil
	}

	var next models.RiskImpact
	err = tx.Where("risk_id = ?", riskID).
		Order("updated_at desc, id desc").
		First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	before := next
	next.IsPrimary = true
	if err := tx.Save(&next).Error; err != nil {
		return err
	}
	database.RecordChange(tx, actor.ID, risk.OrganizationID, "risk_impact", next.ID, "invariant_repair", &before, &next, "promoted after primary unlink")
	return nil
}

func demoteImpacts(tx *gorm.DB, riskID, exceptID uint) error {
	q := tx.Model(&models.RiskImpact{}).Where("risk_id = ? AND is_primary", riskID)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Update("is_primary", false).Error
}

// RepairImpactPrimaries — зеркально RepairCausePrimaries.
func RepairImpactPrimaries(tx *gorm.DB, actorID, orgID, riskID uint) (bool, error) {
	var links []models.RiskImpact
	if err := tx.Where("risk_id = ?", riskID).
		Order("updated_at desc, id desc").
		Find(&links).Error; err != nil {
		return false, err
	}
	if len(links) == 0 {
		return false, nil
	}

	primaries := 0
	for _, l := range links {
		if l.IsPrimary {
			primaries++
		}
	}
	if primaries == 1 {
		return false, nil
	}

	winner := links[0]
	for _, l := range links {
		if l.IsPrimary {
			winner = l
			break
		}
	}

	if err := demoteImpacts(tx, riskID, winner.ID); err != nil {
		return false, err
	}
	if !winner.IsPrimary {
		winner.IsPrimary = true
		if err := tx.Save(&winner).Error; err != nil {
			return false, err
		}
	}
	database.RecordChange(tx, actorID, orgID, "risk_impact", winner.ID, "invariant_repair", nil, &winner, "primary invariant repaired")
	return true, nil
}
