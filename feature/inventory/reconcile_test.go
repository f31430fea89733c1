package inventory_test

import (
	"context"
	"testing"
	"time"

	"materiel-tracker/feature/inventory"
	"materiel-tracker/feature/inventory/models"
	matmodels "materiel-tracker/feature/materiel/models"

	"github.com/stretchr/testify/assert"
)

func TestReconcile_Partition(t *testing.T) {
	svc, reg, _ := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 3)
	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	// Two agents race on asset 1; exactly one record survives
	_, err = svc.Scan(ctx, c.ID, "A1", items[0].Numero)
	assert.NoError(t, err)
	_, err = svc.Scan(ctx, c.ID, "A2", items[0].Numero)
	assert.NoError(t, err)
	o1, err := svc.Confirm(ctx, c.ID, "A1")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanConfirmed, o1.Status)
	o2, err := svc.Confirm(ctx, c.ID, "A2")
	assert.NoError(t, err)
	assert.Equal(t, models.ScanAlreadyScanned, o2.Status)

	report, err := svc.Reconcile(ctx, c.ID)
	assert.NoError(t, err)

	assert.Len(t, report.Present, 1)
	assert.Equal(t, items[0].Numero, report.Present[0].Materiel.Numero)
	assert.Equal(t, "A1", report.Present[0].AgentID)

	assert.Len(t, report.Missing, 2)
	assert.Equal(t, items[1].Numero, report.Missing[0].Numero)
	assert.Equal(t, items[2].Numero, report.Missing[1].Numero)

	assert.Equal(t, 3, report.Summary.TotalEligible)
	assert.Equal(t, 1, report.Summary.PresentCount)
	assert.Equal(t, 2, report.Summary.MissingCount)

	// Partition: no overlap, union covers all eligible
	seen := make(map[uint]bool)
	for _, p := range report.Present {
		seen[p.Materiel.ID] = true
	}
	for _, m := range report.Missing {
		assert.False(t, seen[m.ID], "materiel %s in both sets", m.Numero)
		seen[m.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestReconcile_ExcludesScrapped(t *testing.T) {
	svc, reg, db := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 2)
	assert.NoError(t, db.Model(&matmodels.Materiel{}).
		Where("id = ?", items[1].ID).
		Update("statut", matmodels.StatutRebut).Error)

	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	report, err := svc.Reconcile(ctx, c.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TotalEligible)
	assert.Len(t, report.Missing, 1)
	assert.Equal(t, items[0].Numero, report.Missing[0].Numero)
}

func TestReconcile_PerimetreFilter(t *testing.T) {
	svc, reg, _ := setupEngine(t)
	ctx := context.Background()

	cat, err := reg.CreateCategory(ctx, "INF", "Informatique")
	assert.NoError(t, err)

	inScope, err := reg.CreateMateriel(ctx, materielCreate(cat.ID, "Echographe", "Radiologie"))
	assert.NoError(t, err)
	_, err = reg.CreateMateriel(ctx, materielCreate(cat.ID, "Bureau", "Administration"))
	assert.NoError(t, err)

	c, err := svc.CreateCampaign(ctx, "Radio only", "Radiologie", time.Time{})
	assert.NoError(t, err)

	report, err := svc.Reconcile(ctx, c.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TotalEligible)
	assert.Len(t, report.Missing, 1)
	assert.Equal(t, inScope.Numero, report.Missing[0].Numero)
}

func TestReconcile_UnknownCampaign(t *testing.T) {
	svc, _, _ := setupEngine(t)

	_, err := svc.Reconcile(context.Background(), 77)
	assert.ErrorIs(t, err, inventory.ErrCampaignNotFound)
}

func TestReconcile_EmptyCampaign(t *testing.T) {
	svc, _, _ := setupEngine(t)
	ctx := context.Background()

	c, err := svc.CreateCampaign(ctx, "Empty", "", time.Time{})
	assert.NoError(t, err)

	report, err := svc.Reconcile(ctx, c.ID)
	assert.NoError(t, err)
	assert.Empty(t, report.Present)
	assert.Empty(t, report.Missing)
	assert.Zero(t, report.Summary.TotalEligible)
	assert.Equal(t, fixedClock(), report.GeneratedAt)
}

func TestAgentStats_PerAgent(t *testing.T) {
	svc, reg, _ := setupEngine(t)
	ctx := context.Background()

	items := seedMateriels(t, reg, 3)
	c, err := svc.CreateCampaign(ctx, "K1", "", time.Time{})
	assert.NoError(t, err)

	confirm := func(agent string, numero string) {
		t.Helper()
		_, err := svc.Scan(ctx, c.ID, agent, numero)
		assert.NoError(t, err)
		o, err := svc.Confirm(ctx, c.ID, agent)
		assert.NoError(t, err)
		assert.Equal(t, models.ScanConfirmed, o.Status)
	}

	confirm("A1", items[0].Numero)
	confirm("A1", items[1].Numero)
	confirm("A2", items[2].Numero)

	s1, err := svc.AgentStats(ctx, c.ID, "A1")
	assert.NoError(t, err)
	assert.EqualValues(t, 2, s1.ScannedCount)

	s2, err := svc.AgentStats(ctx, c.ID, "A2")
	assert.NoError(t, err)
	assert.EqualValues(t, 1, s2.ScannedCount)

	s3, err := svc.AgentStats(ctx, c.ID, "A3")
	assert.NoError(t, err)
	assert.Zero(t, s3.ScannedCount)

	t.Run("Unknown Campaign", func(t *testing.T) {
		_, err := svc.AgentStats(ctx, 999, "A1")
		assert.ErrorIs(t, err, inventory.ErrCampaignNotFound)
	})
}
