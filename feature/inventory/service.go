package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"materiel-tracker/feature/inventory/models"
	"materiel-tracker/feature/materiel"
	matmodels "materiel-tracker/feature/materiel/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sentinel errors of the campaign engine.
var (
	// ErrCampaignNotFound signals an operation against an unknown campaign.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrScanPending signals a scan attempted while a confirmation is outstanding.
	ErrScanPending = errors.New("a scan is awaiting confirmation")
	// ErrNothingPending signals a confirm or cancel with no pending scan.
	ErrNothingPending = errors.New("no scan awaiting confirmation")
)

// Registry resolves scanned codes to materiels. Satisfied by
// *materiel.Service; narrowed to an interface so session tests can stub it.
type Registry interface {
	LookupByCode(ctx context.Context, code string) (*matmodels.Materiel, error)
}

// Options tunes the scan session round-trips.
type Options struct {
	// LookupTimeout bounds the code lookup store call.
	LookupTimeout time.Duration
	// ConfirmTimeout bounds the presence record insert.
	ConfirmTimeout time.Duration
	// Clock supplies the current time; nil means time.Now.
	Clock func() time.Time
}

// Service runs campaigns: creation and listing, the scan-confirmation
// protocol, reconciliation, and per-agent statistics.
type Service struct {
	db       *gorm.DB
	registry Registry
	logger   *zap.Logger
	sessions *sessionTable
	opts     Options
}

// NewService creates a new inventory service.
func NewService(db *gorm.DB, registry Registry, logger *zap.Logger, opts Options) *Service {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		db:       db,
		registry: registry,
		logger:   logger,
		sessions: newSessionTable(),
		opts:     opts,
	}
}

// Migrate creates the campaign tables.
func (s *Service) Migrate() error {
	return s.db.AutoMigrate(&models.Campaign{}, &models.PresenceRecord{})
}

// CreateCampaign opens a new reconciliation campaign.
func (s *Service) CreateCampaign(ctx context.Context, nom, servicePerimetre string, dateDebut time.Time) (*models.Campaign, error) {
	if dateDebut.IsZero() {
		dateDebut = s.opts.Clock()
	}
	c := models.Campaign{
		Nom:              nom,
		ServicePerimetre: servicePerimetre,
		DateDebut:        dateDebut,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return &c, nil
}

// ListCampaigns returns all campaigns ordered by start date descending.
func (s *Service) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := s.db.WithContext(ctx).Order("date_debut DESC, id DESC").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// GetCampaign loads a campaign by id.
func (s *Service) GetCampaign(ctx context.Context, id uint) (*models.Campaign, error) {
	var c models.Campaign
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("campaign %d: %w", id, ErrCampaignNotFound)
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return &c, nil
}

// CloseCampaign sets the campaign end date. Closing is advisory: recorded
// scans stay untouched and the engine keeps accepting confirmations; the
// boundary decides whether to keep agents out of a closed campaign.
func (s *Service) CloseCampaign(ctx context.Context, id uint) (*models.Campaign, error) {
	c, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Closed() {
		return c, nil
	}
	now := s.opts.Clock()
	if err := s.db.WithContext(ctx).Model(c).Update("date_fin", now).Error; err != nil {
		return nil, fmt.Errorf("failed to close campaign: %w", err)
	}
	c.DateFin = &now
	return c, nil
}

// Scan resolves a decoded code inside the (campaign, agent) session.
// On a hit the materiel is held for explicit confirmation and further scans
// in this session are rejected with ErrScanPending until the operator
// confirms or cancels. A miss is a normal outcome, not an error.
func (s *Service) Scan(ctx context.Context, campaignID uint, agentID, code string) (*models.ScanOutcome, error) {
	if _, err := s.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	key := sessionKey{campaignID: campaignID, agentID: agentID}
	if err := s.sessions.beginLookup(key); err != nil {
		return nil, err
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	m, err := s.registry.LookupByCode(lookupCtx, code)
	if err != nil {
		// Any failure returns the session to idle so the operator can retry.
		s.sessions.finishLookup(key, nil)
		if errors.Is(err, materiel.ErrAssetNotFound) {
			return &models.ScanOutcome{
				Status:  models.ScanNotFound,
				Message: fmt.Sprintf("no materiel matches code %q", code),
			}, nil
		}
		return nil, fmt.Errorf("lookup failed: %w", err)
	}

	s.sessions.finishLookup(key, m)
	return &models.ScanOutcome{Status: models.ScanFound, Materiel: m}, nil
}

// Confirm persists a presence record for the pending materiel of the session.
// Exactly one record can exist per (campaign, materiel); a concurrent or
// repeated confirmation loses to the unique index and comes back as an
// AlreadyScanned outcome. Retrying after a timeout is safe for the same
// reason: the insert either lands once or reports the duplicate.
func (s *Service) Confirm(ctx context.Context, campaignID uint, agentID string) (*models.ScanOutcome, error) {
	key := sessionKey{campaignID: campaignID, agentID: agentID}
	m, err := s.sessions.takePending(key)
	if err != nil {
		return nil, err
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.opts.ConfirmTimeout)
	defer cancel()

	rec := models.PresenceRecord{
		CampaignID: campaignID,
		MaterielID: m.ID,
		AgentID:    agentID,
		ScannedAt:  s.opts.Clock(),
	}
	if err := s.db.WithContext(confirmCtx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &models.ScanOutcome{
				Status:   models.ScanAlreadyScanned,
				Materiel: m,
				Message:  fmt.Sprintf("%s already scanned in this campaign", m.Numero),
			}, nil
		}
		return nil, fmt.Errorf("failed to record presence: %w", err)
	}

	s.logger.Info("Presence confirmed",
		zap.Uint("campaign_id", campaignID),
		zap.String("agent_id", agentID),
		zap.String("numero", m.Numero),
	)
	return &models.ScanOutcome{Status: models.ScanConfirmed, Materiel: m, Record: &rec}, nil
}

// Cancel drops the pending materiel without writing anything.
func (s *Service) Cancel(campaignID uint, agentID string) (*models.ScanOutcome, error) {
	key := sessionKey{campaignID: campaignID, agentID: agentID}
	m, err := s.sessions.takePending(key)
	if err != nil {
		return nil, err
	}
	return &models.ScanOutcome{Status: models.ScanCancelled, Materiel: m}, nil
}

// AgentStats counts the presence records an agent produced in a campaign.
// Always derived from the authoritative record set; the composite index on
// (campaign_id, agent_id) keeps it cheap enough for live feedback.
func (s *Service) AgentStats(ctx context.Context, campaignID uint, agentID string) (*models.AgentStats, error) {
	if _, err := s.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PresenceRecord{}).
		Where("campaign_id = ? AND agent_id = ?", campaignID, agentID).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	return &models.AgentStats{CampaignID: campaignID, AgentID: agentID, ScannedCount: count}, nil
}
