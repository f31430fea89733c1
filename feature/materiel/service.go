package materiel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"materiel-tracker/core/storage"
	"materiel-tracker/feature/materiel/models"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sentinel errors of the registry and the allocator.
var (
	// ErrCategoryNotFound signals a create request against an unknown category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrAssetNotFound signals a code lookup that matched no materiel.
	ErrAssetNotFound = errors.New("materiel not found")
	// ErrAllocationFailed signals that numbering retries were exhausted.
	ErrAllocationFailed = errors.New("inventory number allocation failed")
)

// Options tunes the sequence allocator.
type Options struct {
	// NumberPrefix is the institution prefix of generated numbers (e.g. "PSY").
	NumberPrefix string
	// MaxAllocationAttempts caps retries after a numbering conflict.
	MaxAllocationAttempts int
	// Clock supplies the current time; nil means time.Now. Tests pin it.
	Clock func() time.Time
}

// Service owns materiel records, categories, and number allocation.
type Service struct {
	db         *gorm.DB
	store      storage.Client
	storageCfg storage.Config
	logger     *zap.Logger
	opts       Options
}

// NewService creates a new materiel service.
func NewService(db *gorm.DB, store storage.Client, storageCfg storage.Config, logger *zap.Logger, opts Options) *Service {
	if opts.NumberPrefix == "" {
		opts.NumberPrefix = "PSY"
	}
	if opts.MaxAllocationAttempts <= 0 {
		opts.MaxAllocationAttempts = 3
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		db:         db,
		store:      store,
		storageCfg: storageCfg,
		logger:     logger,
		opts:       opts,
	}
}

// Migrate creates the registry tables.
func (s *Service) Migrate() error {
	return s.db.AutoMigrate(&models.Category{}, &models.Materiel{}, &models.SequenceCounter{})
}

// CreateInput carries the attributes of a new materiel.
// The inventory number is never part of the input; it is allocated here.
type CreateInput struct {
	CategoryID      uint       `json:"category_id"`
	Nom             string     `json:"nom"`
	Service         string     `json:"service"`
	Statut          string     `json:"statut"`
	DateAcquisition *time.Time `json:"date_acquisition"`
}

// CreateMateriel registers a new materiel with a freshly allocated inventory
// number. The counter increment and the materiel insert share one
// transaction; on a lost numbering race (duplicate counter key or duplicate
// numero) the whole allocation is retried before ErrAllocationFailed.
func (s *Service) CreateMateriel(ctx context.Context, input CreateInput) (*models.Materiel, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, input.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %d: %w", input.CategoryID, ErrCategoryNotFound)
		}
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	if input.Statut == "" {
		input.Statut = models.StatutEnService
	}

	year := s.opts.Clock().Year()

	for attempt := 1; attempt <= s.opts.MaxAllocationAttempts; attempt++ {
		m, err := s.createWithNumber(ctx, input, cat, year)
		if err == nil {
			m.Category = &cat
			return m, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create materiel: %w", err)
		}
		// Lost the race; the next attempt re-reads the counter.
		s.logger.Warn("Sequence conflict, retrying allocation",
			zap.String("category", cat.Code),
			zap.Int("year", year),
			zap.Int("attempt", attempt),
		)
	}

	return nil, fmt.Errorf("category %s year %d: %w", cat.Code, year, ErrAllocationFailed)
}

// createWithNumber performs one allocation attempt: lock (or create) the
// counter row, increment it, and insert the materiel in one transaction so a
// failed insert rolls the counter back and leaves no gap.
func (s *Service) createWithNumber(ctx context.Context, input CreateInput, cat models.Category, year int) (*models.Materiel, error) {
	var created models.Materiel

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ctr models.SequenceCounter

		q := tx.Where("category_code = ? AND year = ?", cat.Code, year)
		if tx.Dialector.Name() == "mysql" {
			// Row lock serializes concurrent increments per key. SQLite has
			// no FOR UPDATE; its single-writer pool serializes instead.
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		err := q.First(&ctr).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First allocation for this key. A concurrent first allocation
			// trips the composite unique index and retries.
			ctr = models.SequenceCounter{CategoryCode: cat.Code, Year: year}
			if err := tx.Create(&ctr).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		ctr.LastValue++
		if err := tx.Model(&ctr).Update("last_value", ctr.LastValue).Error; err != nil {
			return err
		}

		created = models.Materiel{
			CategoryID:      cat.ID,
			Numero:          FormatNumber(s.opts.NumberPrefix, year, cat.Code, ctr.LastValue),
			Nom:             input.Nom,
			Service:         input.Service,
			Statut:          input.Statut,
			DateAcquisition: input.DateAcquisition,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// LookupByCode resolves a scanned code to a materiel by exact match on the
// inventory number.
func (s *Service) LookupByCode(ctx context.Context, code string) (*models.Materiel, error) {
	var m models.Materiel
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("numero_inventaire = ?", code).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("code %q: %w", code, ErrAssetNotFound)
		}
		return nil, fmt.Errorf("failed to lookup materiel: %w", err)
	}
	return &m, nil
}

// List returns all materiels, newest first.
func (s *Service) List(ctx context.Context) ([]models.Materiel, error) {
	var items []models.Materiel
	if err := s.db.WithContext(ctx).Preload("Category").Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list materiels: %w", err)
	}
	return items, nil
}

// CreateCategory registers a new category.
func (s *Service) CreateCategory(ctx context.Context, code, libelle string) (*models.Category, error) {
	cat := models.Category{Code: code, Libelle: libelle}
	if err := s.db.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &cat, nil
}

// ListCategories returns all categories ordered by code.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("code").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return cats, nil
}

// AttachPhoto uploads a photo to the storage collaborator and stores its
// public URL on the materiel. The engine never serves the bytes itself.
func (s *Service) AttachPhoto(ctx context.Context, materielID uint, r io.Reader, size int64, contentType string) (string, error) {
	var m models.Materiel
	if err := s.db.WithContext(ctx).First(&m, materielID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("materiel %d: %w", materielID, ErrAssetNotFound)
		}
		return "", fmt.Errorf("failed to load materiel: %w", err)
	}

	ext := extensionFor(contentType)
	objectName := fmt.Sprintf("%s/%s%s", m.Numero, uuid.NewString(), ext)

	_, err := s.store.PutObject(ctx, s.storageCfg.Bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	url := s.storageCfg.PublicURL(objectName)
	if err := s.db.WithContext(ctx).Model(&m).Update("photo_url", url).Error; err != nil {
		return "", fmt.Errorf("failed to store photo url: %w", err)
	}
	return url, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
