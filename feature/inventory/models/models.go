package models

import (
	"time"

	matmodels "materiel-tracker/feature/materiel/models"
)

// Campaign is a bounded exercise to verify physical presence of materiels.
// It stays open while DateFin is nil; closing is advisory (the engine never
// rejects scans on a closed campaign, the boundary does).
type Campaign struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Nom              string     `gorm:"size:255;not null" json:"nom"`
	ServicePerimetre string     `gorm:"size:128" json:"service_perimetre,omitempty"`
	DateDebut        time.Time  `gorm:"not null;index" json:"date_debut"`
	DateFin          *time.Time `json:"date_fin,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName overrides the table name.
func (Campaign) TableName() string {
	return "campaigns"
}

// Closed reports whether the campaign has been ended.
func (c Campaign) Closed() bool {
	return c.DateFin != nil
}

// PresenceRecord is durable evidence that a materiel was confirmed present
// during a campaign by an agent. The composite unique index on
// (campaign_id, materiel_id) is the central invariant of the engine: at most
// one record per materiel per campaign, arbitrated by the store under
// concurrent agents.
type PresenceRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CampaignID uint      `gorm:"not null;uniqueIndex:ux_presence_campaign_materiel;index:idx_presence_campaign_agent" json:"campaign_id"`
	MaterielID uint      `gorm:"not null;uniqueIndex:ux_presence_campaign_materiel" json:"materiel_id"`
	AgentID    string    `gorm:"size:64;not null;index:idx_presence_campaign_agent" json:"agent_id"`
	ScannedAt  time.Time `gorm:"not null" json:"scanned_at"`
}

// TableName overrides the table name.
func (PresenceRecord) TableName() string {
	return "presence_records"
}

// ScanStatus enumerates the possible outcomes of a scan interaction.
// Outcomes are tagged explicitly rather than inferred from error text.
type ScanStatus string

const (
	// ScanFound: the code resolved to a materiel awaiting confirmation.
	ScanFound ScanStatus = "found"
	// ScanNotFound: the code matched no materiel; the session stays idle.
	ScanNotFound ScanStatus = "not_found"
	// ScanConfirmed: a presence record was persisted.
	ScanConfirmed ScanStatus = "confirmed"
	// ScanAlreadyScanned: the materiel already has a record in this campaign.
	ScanAlreadyScanned ScanStatus = "already_scanned"
	// ScanCancelled: the operator refused the pending materiel.
	ScanCancelled ScanStatus = "cancelled"
)

// ScanOutcome is the fixed result type of scan, confirm, and cancel calls.
type ScanOutcome struct {
	Status   ScanStatus          `json:"status"`
	Materiel *matmodels.Materiel `json:"materiel,omitempty"`
	Record   *PresenceRecord     `json:"record,omitempty"`
	Message  string              `json:"message,omitempty"`
}

// AgentStats is the per-agent scan tally used for live feedback.
type AgentStats struct {
	CampaignID   uint   `json:"campaign_id"`
	AgentID      string `json:"agent_id"`
	ScannedCount int64  `json:"scanned_count"`
}
