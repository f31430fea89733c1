package materiel_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"materiel-tracker/core/database"
	"materiel-tracker/core/storage"
	"materiel-tracker/core/storage/mocks"
	"materiel-tracker/feature/materiel"
	"materiel-tracker/feature/materiel/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fixedClock pins allocation to year 2026 so numbers are stable.
func fixedClock() time.Time {
	return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
}

func setupService(t *testing.T) (*materiel.Service, *gorm.DB) {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	assert.NoError(t, err)

	svc := materiel.NewService(db, new(mocks.Client), storage.Config{Bucket: "materiel-photos"}, zap.NewNop(), materiel.Options{
		NumberPrefix: "PSY",
		Clock:        fixedClock,
	})
	assert.NoError(t, svc.Migrate())
	return svc, db
}

func seedCategory(t *testing.T, svc *materiel.Service, code string) *models.Category {
	t.Helper()
	cat, err := svc.CreateCategory(context.Background(), code, code+" equipment")
	assert.NoError(t, err)
	return cat
}

func TestCreateMateriel_SequentialNumbers(t *testing.T) {
	svc, _ := setupService(t)
	cat := seedCategory(t, svc, "INF")
	ctx := context.Background()

	var numeros []string
	for i := 0; i < 3; i++ {
		m, err := svc.CreateMateriel(ctx, materiel.CreateInput{
			CategoryID: cat.ID,
			Nom:        fmt.Sprintf("Laptop %d", i+1),
		})
		assert.NoError(t, err)
		numeros = append(numeros, m.Numero)
		assert.Equal(t, models.StatutEnService, m.Statut)
	}

	assert.Equal(t, []string{"PSY-2026-INF-0001", "PSY-2026-INF-0002", "PSY-2026-INF-0003"}, numeros)
}

func TestCreateMateriel_IndependentKeys(t *testing.T) {
	svc, _ := setupService(t)
	inf := seedCategory(t, svc, "INF")
	mob := seedCategory(t, svc, "MOB")
	ctx := context.Background()

	m1, err := svc.CreateMateriel(ctx, materiel.CreateInput{CategoryID: inf.ID, Nom: "PC"})
	assert.NoError(t, err)
	m2, err := svc.CreateMateriel(ctx, materiel.CreateInput{CategoryID: mob.ID, Nom: "Desk"})
	assert.NoError(t, err)

	// Each (category, year) pair counts from 1 on its own
	assert.Equal(t, "PSY-2026-INF-0001", m1.Numero)
	assert.Equal(t, "PSY-2026-MOB-0001", m2.Numero)
}

func TestCreateMateriel_CategoryNotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CreateMateriel(context.Background(), materiel.CreateInput{CategoryID: 999, Nom: "Ghost"})
	assert.ErrorIs(t, err, materiel.ErrCategoryNotFound)
}

func TestCreateMateriel_ConcurrentAllocations(t *testing.T) {
	svc, db := setupService(t)
	cat := seedCategory(t, svc, "INF")

	const n = 100
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateMateriel(context.Background(), materiel.CreateInput{
				CategoryID: cat.ID,
				Nom:        fmt.Sprintf("Item %d", i),
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "allocation %d", i)
	}

	// All n numbers must be distinct and densely sequential 1..n
	var items []models.Materiel
	assert.NoError(t, db.Find(&items).Error)
	assert.Len(t, items, n)

	seen := make(map[string]bool, n)
	for _, m := range items {
		assert.False(t, seen[m.Numero], "duplicate numero %s", m.Numero)
		seen[m.Numero] = true
	}
	for seq := 1; seq <= n; seq++ {
		assert.True(t, seen[materiel.FormatNumber("PSY", 2026, "INF", seq)], "missing sequence %d", seq)
	}
}

func TestCreateMateriel_AllocationFailedAfterRetries(t *testing.T) {
	svc, db := setupService(t)
	cat := seedCategory(t, svc, "INF")
	ctx := context.Background()

	// Occupy the next number out of band. Every attempt re-reads the counter
	// (rolled back each time), recomputes the same number, and collides.
	err := db.Create(&models.Materiel{
		CategoryID: cat.ID,
		Numero:     "PSY-2026-INF-0001",
		Nom:        "Squatter",
		Statut:     models.StatutEnService,
	}).Error
	assert.NoError(t, err)

	_, err = svc.CreateMateriel(ctx, materiel.CreateInput{CategoryID: cat.ID, Nom: "Loser"})
	assert.ErrorIs(t, err, materiel.ErrAllocationFailed)

	// The counter must not have advanced past the failed attempts
	var ctr models.SequenceCounter
	err = db.Where("category_code = ? AND year = ?", "INF", 2026).First(&ctr).Error
	if err == nil {
		assert.Equal(t, 0, ctr.LastValue)
	} else {
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	}
}

func TestCreateMateriel_ResumesFromSeededCounter(t *testing.T) {
	svc, db := setupService(t)
	cat := seedCategory(t, svc, "INF")

	assert.NoError(t, db.Create(&models.SequenceCounter{CategoryCode: "INF", Year: 2026, LastValue: 41}).Error)

	m, err := svc.CreateMateriel(context.Background(), materiel.CreateInput{CategoryID: cat.ID, Nom: "Scanner"})
	assert.NoError(t, err)
	assert.Equal(t, "PSY-2026-INF-0042", m.Numero)
}

func TestLookupByCode(t *testing.T) {
	svc, _ := setupService(t)
	cat := seedCategory(t, svc, "INF")
	ctx := context.Background()

	created, err := svc.CreateMateriel(ctx, materiel.CreateInput{CategoryID: cat.ID, Nom: "Projector"})
	assert.NoError(t, err)

	t.Run("Found", func(t *testing.T) {
		m, err := svc.LookupByCode(ctx, created.Numero)
		assert.NoError(t, err)
		assert.Equal(t, created.ID, m.ID)
		assert.Equal(t, "Projector", m.Nom)
		assert.NotNil(t, m.Category)
		assert.Equal(t, "INF", m.Category.Code)
	})

	t.Run("Not Found", func(t *testing.T) {
		_, err := svc.LookupByCode(ctx, "PSY-2026-INF-9999")
		assert.ErrorIs(t, err, materiel.ErrAssetNotFound)
	})
}

func TestList_NewestFirst(t *testing.T) {
	svc, _ := setupService(t)
	cat := seedCategory(t, svc, "INF")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateMateriel(ctx, materiel.CreateInput{CategoryID: cat.ID, Nom: fmt.Sprintf("Item %d", i)})
		assert.NoError(t, err)
	}

	items, err := svc.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, items, 3)
	// Insertion order is stable within a second thanks to the id tiebreak
	assert.Equal(t, "Item 2", items[0].Nom)
	assert.Equal(t, "Item 0", items[2].Nom)
}
