// Package materiel implements the asset registry and the sequence allocator.
//
// It owns the materiel and category records and issues collision-free,
// human-readable inventory numbers of the form PREFIX-YEAR-CODE-SEQ
// (e.g. "PSY-2026-INF-0001"), monotonically increasing per (category, year).
//
// # Allocation Discipline
//
// Numbering is the one place in the registry where concurrent writers
// contend. An allocation runs in a single transaction that locks the
// sequence counter row (SELECT ... FOR UPDATE on MySQL; SQLite serializes
// writers at the pool), increments it, and inserts the materiel with the
// formatted number. A lost race surfaces as gorm.ErrDuplicatedKey and the
// whole allocation is retried a bounded number of times. Reading the current
// maximum and inserting without the lock is exactly the race this layout
// exists to prevent.
//
// # Components
//
//   - Service: registry operations and the allocator.
//   - Handler: HTTP endpoints for materiels, categories, and photo upload.
//   - Feature: registers the feature with the application loader.
//
// # HTTP Endpoints
//
//   - POST /materiels : create a materiel (allocates its number).
//   - GET  /materiels : list materiels, newest first.
//   - GET  /materiels/:code : exact lookup by inventory number.
//   - POST /materiels/:id/photo : attach a photo via the storage collaborator.
//   - POST /categories, GET /categories : category management.
package materiel
