// Package inventory implements the campaign reconciliation engine.
//
// A campaign is a bounded exercise during which agents scan materiels to
// prove their physical presence. This package covers the whole campaign
// lifecycle: creation and listing, the scan-confirmation protocol, the
// present/missing reconciliation, and per-agent statistics.
//
// # Scan Protocol
//
// Each (campaign, agent) pair owns a session running a small state machine:
//
//	Idle -> Lookup -> PendingConfirmation -> {Confirmed | Rejected | Cancelled} -> Idle
//
// A decoded code is first resolved against the materiel registry; on a hit
// the materiel is surfaced for explicit operator confirmation before anything
// is written, so a misread can never corrupt the record set. While a
// confirmation is pending the session rejects further scans, one materiel at
// a time. Confirmation inserts a presence record whose composite unique index
// on (campaign_id, materiel_id) is the engine's central invariant: two agents
// racing on the same materiel produce exactly one record and one
// already_scanned rejection, with no guarantee which agent wins.
//
// # Reconciliation
//
// Reconcile partitions the eligible materiels (not scrapped, inside the
// campaign's perimeter when one is declared) into present and missing by set
// difference over a single snapshot of the record set. Output is sorted by
// inventory number for deterministic reports; document rendering belongs to
// external collaborators.
//
// # HTTP Endpoints
//
//   - POST /campaigns, GET /campaigns, POST /campaigns/:id/close
//   - POST /campaigns/:id/scan | /confirm | /cancel
//   - GET  /campaigns/:id/reconciliation
//   - GET  /campaigns/:id/agents/:agentID/stats
package inventory
