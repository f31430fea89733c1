// Package database manages the connection to the authoritative store.
//
// It wraps GORM to provide a single Connect entry point supporting two
// drivers:
//   - mysql: the production store.
//   - sqlite: in-memory store used by the test suite, and viable for
//     single-node deployments.
//
// # Error Translation
//
// Connections are opened with TranslateError enabled. Duplicate-key
// violations are therefore reported as gorm.ErrDuplicatedKey regardless of
// driver, which the engine uses to arbitrate races on inventory numbers and
// presence records instead of parsing driver-specific error strings.
package database
