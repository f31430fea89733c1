package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"materiel-tracker/feature/inventory/models"
	matmodels "materiel-tracker/feature/materiel/models"
)

// PresentEntry is a confirmed materiel with its scan metadata.
type PresentEntry struct {
	Materiel  matmodels.Materiel `json:"materiel"`
	AgentID   string             `json:"agent_id"`
	ScannedAt time.Time          `json:"scanned_at"`
}

// ReportSummary provides aggregate counts for a reconciliation report.
type ReportSummary struct {
	TotalEligible int `json:"total_eligible"`
	PresentCount  int `json:"present_count"`
	MissingCount  int `json:"missing_count"`
}

// Report is the reconciliation output for a campaign: the partition of all
// eligible materiels into present and missing. The engine emits structured
// records only; report/export collaborators turn them into documents.
type Report struct {
	Campaign    models.Campaign      `json:"campaign"`
	Present     []PresentEntry       `json:"present"`
	Missing     []matmodels.Materiel `json:"missing"`
	Summary     ReportSummary        `json:"summary"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Reconcile partitions the campaign's eligible materiels into present and
// missing. Eligible means not scrapped (statut rebut) and, when the campaign
// declares a perimeter, belonging to that service. Both halves are computed
// from one read pass over a single record set and sorted by inventory number,
// so the result is deterministic and no materiel can land in both.
func (s *Service) Reconcile(ctx context.Context, campaignID uint) (*Report, error) {
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var records []models.PresenceRecord
	if err := s.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load presence records: %w", err)
	}

	q := s.db.WithContext(ctx).Preload("Category").Where("statut <> ?", matmodels.StatutRebut)
	if campaign.ServicePerimetre != "" {
		q = q.Where("service = ?", campaign.ServicePerimetre)
	}
	var eligible []matmodels.Materiel
	if err := q.Find(&eligible).Error; err != nil {
		return nil, fmt.Errorf("failed to load eligible materiels: %w", err)
	}

	scanned := make(map[uint]models.PresenceRecord, len(records))
	for _, r := range records {
		scanned[r.MaterielID] = r
	}

	report := &Report{
		Campaign:    *campaign,
		Present:     []PresentEntry{},
		Missing:     []matmodels.Materiel{},
		GeneratedAt: s.opts.Clock(),
	}
	for _, m := range eligible {
		if rec, ok := scanned[m.ID]; ok {
			report.Present = append(report.Present, PresentEntry{
				Materiel:  m,
				AgentID:   rec.AgentID,
				ScannedAt: rec.ScannedAt,
			})
		} else {
			report.Missing = append(report.Missing, m)
		}
	}

	sort.Slice(report.Present, func(i, j int) bool {
		return report.Present[i].Materiel.Numero < report.Present[j].Materiel.Numero
	})
	sort.Slice(report.Missing, func(i, j int) bool {
		return report.Missing[i].Numero < report.Missing[j].Numero
	})

	report.Summary = ReportSummary{
		TotalEligible: len(eligible),
		PresentCount:  len(report.Present),
		MissingCount:  len(report.Missing),
	}
	return report, nil
}
