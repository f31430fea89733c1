package models

import (
	"time"
)

// Materiel status values. Anything except StatutRebut counts as eligible
// during campaign reconciliation.
const (
	StatutEnService    = "en_service"
	StatutEnPanne      = "en_panne"
	StatutEnReparation = "en_reparation"
	StatutRebut        = "rebut"
)

// Category classifies materiels and contributes its code to generated
// inventory numbers. Immutable once referenced by a materiel.
type Category struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:8;uniqueIndex;not null" json:"code"`
	Libelle string `gorm:"size:128;not null" json:"libelle"`
}

// TableName overrides the table name.
func (Category) TableName() string {
	return "categories"
}

// Materiel is a tracked physical asset. Numero is assigned once at creation
// by the sequence allocator and never changes.
type Materiel struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	CategoryID      uint       `gorm:"not null;index" json:"category_id"`
	Category        *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Numero          string     `gorm:"column:numero_inventaire;size:32;uniqueIndex;not null" json:"numero_inventaire"`
	Nom             string     `gorm:"size:255;not null" json:"nom"`
	Service         string     `gorm:"size:128" json:"service,omitempty"`
	Statut          string     `gorm:"size:32;not null;default:en_service" json:"statut"`
	PhotoURL        string     `gorm:"size:512" json:"photo_url,omitempty"`
	DateAcquisition *time.Time `json:"date_acquisition,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName overrides the table name.
func (Materiel) TableName() string {
	return "materiels"
}

// Eligible reports whether the materiel counts in campaign reconciliation.
func (m Materiel) Eligible() bool {
	return m.Statut != StatutRebut
}

// SequenceCounter stores the last issued sequence per (category code, year).
// Mutated only by the allocator, inside a transaction holding the row lock.
// The composite unique index arbitrates concurrent create-if-absent races.
type SequenceCounter struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	CategoryCode string    `gorm:"size:8;not null;uniqueIndex:idx_sequence_key" json:"category_code"`
	Year         int       `gorm:"not null;uniqueIndex:idx_sequence_key" json:"year"`
	LastValue    int       `gorm:"not null" json:"last_value"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides the table name.
func (SequenceCounter) TableName() string {
	return "sequence_counters"
}
