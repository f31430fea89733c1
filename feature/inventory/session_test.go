package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"materiel-tracker/feature/inventory"
	"materiel-tracker/feature/inventory/models"

	"github.com/stretchr/testify/assert"
)

func TestScan_UnknownCode(t *testing.T) {
	svc, reg, db := setupEngine(t)
	ctx := context.Background()

	seedMateriels(t, reg, 1)
	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	outcome, err := svc.Scan(ctx, c.ID, "agent-1", "PSY-2026-INF-9999")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanNotFound, outcome.Status)
	assert.Nil(t, outcome.Materiel)

	// No record was written
	var count int64
	assert.NoError(t, db.Model(&models.PresenceRecord{}).Count(&count).Error)
	assert.Zero(t, count)

	// The session returned to idle: the next scan is accepted
	outcome, err = svc.Scan(ctx, c.ID, "agent-1", "PSY-2026-INF-0001")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanFound, outcome.Status)
}

func TestScan_UnknownCampaign(t *testing.T) {
	svc, _, _ := setupEngine(t)

	_, err := svc.Scan(context.Background(), 99, "agent-1", "anything")
	assert.ErrorIs(t, err, inventory.ErrCampaignNotFound)
}

func TestScanConfirm_HappyPath(t *testing.T) {
	svc, reg, _ := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 2)
	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	outcome, err := svc.Scan(ctx, c.ID, "agent-1", items[0].Numero)
	assert.NoError(t, err)
	assert.Equal(t, models.ScanFound, outcome.Status)
	assert.Equal(t, items[0].ID, outcome.Materiel.ID)

	outcome, err = svc.Confirm(ctx, c.ID, "agent-1")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanConfirmed, outcome.Status)
	assert.NotNil(t, outcome.Record)
	assert.Equal(t, c.ID, outcome.Record.CampaignID)
	assert.Equal(t, items[0].ID, outcome.Record.MaterielID)
	assert.Equal(t, "agent-1", outcome.Record.AgentID)
	assert.Equal(t, fixedClock(), outcome.Record.ScannedAt)

	stats, err := svc.AgentStats(ctx, c.ID, "agent-1")
	assert.NoError(t, err)
	assert.EqualValues(t, 1, stats.ScannedCount)
}

func TestScan_BackpressureWhilePending(t *testing.T) {
	svc, reg, _ := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 2)
	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	_, err = svc.Scan(ctx, c.ID, "agent-1", items[0].Numero)
	assert.NoError(t, err)

	// Second scan in the same session is rejected until the operator decides
	_, err = svc.Scan(ctx, c.ID, "agent-1", items[1].Numero)
	assert.ErrorIs(t, err, inventory.ErrScanPending)

	// The pause is per-session, not system-wide: another agent scans freely
	outcome, err := svc.Scan(ctx, c.ID, "agent-2", items[1].Numero)
	assert.NoError(t, err)
	assert.Equal(t, models.ScanFound, outcome.Status)

	// After cancel the session accepts scans again
	cancelOutcome, err := svc.Cancel(c.ID, "agent-1")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanCancelled, cancelOutcome.Status)
	assert.Equal(t, items[0].ID, cancelOutcome.Materiel.ID)

	outcome, err = svc.Scan(ctx, c.ID, "agent-1", items[1].Numero)
	assert.NoError(t, err)
	assert.Equal(t, models.ScanFound, outcome.Status)
}

func TestCancel_LeavesNoTrace(t *testing.T) {
	svc, reg, db := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 1)
	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	_, err = svc.Scan(ctx, c.ID, "agent-1", items[0].Numero)
	assert.NoError(t, err)
	_, err = svc.Cancel(c.ID, "agent-1")
	assert.NoError(t, err)

	var count int64
	assert.NoError(t, db.Model(&models.PresenceRecord{}).Count(&count).Error)
	assert.Zero(t, count)

	stats, err := svc.AgentStats(ctx, c.ID, "agent-1")
	assert.NoError(t, err)
	assert.Zero(t, stats.ScannedCount)
}

func TestConfirm_NothingPending(t *testing.T) {
	svc, _, _ := setupEngine(t)
	ctx := context.Background()

	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	_, err = svc.Confirm(ctx, c.ID, "agent-1")
	assert.ErrorIs(t, err, inventory.ErrNothingPending)

	_, err = svc.Cancel(c.ID, "agent-1")
	assert.ErrorIs(t, err, inventory.ErrNothingPending)
}

func TestConfirm_RescanSameMateriel(t *testing.T) {
	svc, reg, _ := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 1)
	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	// First pass records the materiel
	_, err = svc.Scan(ctx, c.ID, "agent-1", items[0].Numero)
	assert.NoError(t, err)
	outcome, err := svc.Confirm(ctx, c.ID, "agent-1")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanConfirmed, outcome.Status)

	// Re-scan later in the same campaign: lookup still resolves, but the
	// confirmation is rejected by the uniqueness constraint
	outcome, err = svc.Scan(ctx, c.ID, "agent-1", items[0].Numero)
	assert.NoError(t, err)
	assert.Equal(t, models.ScanFound, outcome.Status)

	outcome, err = svc.Confirm(ctx, c.ID, "agent-1")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanAlreadyScanned, outcome.Status)
	assert.Nil(t, outcome.Record)

	// The tally still reports one scan
	stats, err := svc.AgentStats(ctx, c.ID, "agent-1")
	assert.NoError(t, err)
	assert.EqualValues(t, 1, stats.ScannedCount)

	// And the rejected session is idle again
	outcome, err = svc.Scan(ctx, c.ID, "agent-1", items[0].Numero)
	assert.NoError(t, err)
	assert.Equal(t, models.ScanFound, outcome.Status)
}

func TestConfirm_ConcurrentAgentsOneRecord(t *testing.T) {
	svc, reg, db := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 1)
	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	const n = 10
	agents := make([]string, n)
	for i := range agents {
		agents[i] = string(rune('a'+i)) + "-agent"
		outcome, err := svc.Scan(ctx, c.ID, agents[i], items[0].Numero)
		assert.NoError(t, err)
		assert.Equal(t, models.ScanFound, outcome.Status)
	}

	// All agents race to confirm the same materiel
	var wg sync.WaitGroup
	outcomes := make([]*models.ScanOutcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.Confirm(ctx, c.ID, agents[i])
		}(i)
	}
	wg.Wait()

	confirmed, rejected := 0, 0
	for i := 0; i < n; i++ {
		assert.NoError(t, errs[i])
		switch outcomes[i].Status {
		case models.ScanConfirmed:
			confirmed++
		case models.ScanAlreadyScanned:
			rejected++
		default:
			t.Fatalf("unexpected outcome %q", outcomes[i].Status)
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, n-1, rejected)

	var count int64
	assert.NoError(t, db.Model(&models.PresenceRecord{}).
		Where("campaign_id = ? AND materiel_id = ?", c.ID, items[0].ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSessions_IndependentAcrossCampaigns(t *testing.T) {
	svc, reg, _ := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 1)
	k1, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)
	k2, err := svc.CreateCampaign(ctx, "K2", "", time.Time{})
	assert.NoError(t, err)

	// A pending scan in K1 does not pause the same agent's K2 session
	_, err = svc.Scan(ctx, k1.ID, "agent-1", items[0].Numero)
	assert.NoError(t, err)
	outcome, err := svc.Scan(ctx, k2.ID, "agent-1", items[0].Numero)
	assert.NoError(t, err)
	assert.Equal(t, models.ScanFound, outcome.Status)

	// The same materiel can be confirmed once per campaign
	o1, err := svc.Confirm(ctx, k1.ID, "agent-1")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanConfirmed, o1.Status)
	o2, err := svc.Confirm(ctx, k2.ID, "agent-1")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanConfirmed, o2.Status)
}
