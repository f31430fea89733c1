package inventory

import (
	"sync"

	matmodels "materiel-tracker/feature/materiel/models"
)

// sessionState is the per-session phase of the scan protocol.
type sessionState int

const (
	// stateIdle: ready to accept a scan.
	stateIdle sessionState = iota
	// stateLookup: a code lookup round-trip is in flight.
	stateLookup
	// statePending: a resolved materiel awaits operator confirmation.
	statePending
)

// session is the scan state of one (campaign, agent) pair. Terminal outcomes
// (confirmed, rejected, cancelled) all fold back into stateIdle.
type session struct {
	state   sessionState
	pending *matmodels.Materiel
}

type sessionKey struct {
	campaignID uint
	agentID    string
}

// sessionTable holds the live scan sessions. The mutex only guards state
// transitions; store round-trips happen outside of it so one agent's pending
// confirmation never blocks another agent's scans.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[sessionKey]*session
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[sessionKey]*session)}
}

func (t *sessionTable) get(key sessionKey) *session {
	s, ok := t.sessions[key]
	if !ok {
		s = &session{state: stateIdle}
		t.sessions[key] = s
	}
	return s
}

// beginLookup reserves the session for a lookup. It fails when a lookup or a
// confirmation is already outstanding: scanning is paused until the operator
// decides, one materiel at a time.
func (t *sessionTable) beginLookup(key sessionKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.get(key)
	if s.state != stateIdle {
		return ErrScanPending
	}
	s.state = stateLookup
	return nil
}

// finishLookup settles a lookup: hold the materiel for confirmation, or fall
// back to idle when the lookup missed or failed.
func (t *sessionTable) finishLookup(key sessionKey, m *matmodels.Materiel) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.get(key)
	if m == nil {
		s.state = stateIdle
		s.pending = nil
		return
	}
	s.state = statePending
	s.pending = m
}

// takePending removes and returns the materiel awaiting confirmation.
// The session goes idle immediately: a confirmation attempt is settled by the
// store, and whatever the verdict (recorded, duplicate, timeout) the session
// must be ready for the next scan rather than stuck pending.
func (t *sessionTable) takePending(key sessionKey) (*matmodels.Materiel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.get(key)
	if s.state != statePending || s.pending == nil {
		return nil, ErrNothingPending
	}
	m := s.pending
	s.state = stateIdle
	s.pending = nil
	return m, nil
}
