package inventory

import (
	"errors"
	"time"

	"materiel-tracker/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for campaigns and scan sessions.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the campaign routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/campaigns")
	group.Post("/", h.HandleCreateCampaign)
	group.Get("/", h.HandleListCampaigns)
	group.Post("/:id/close", h.HandleCloseCampaign)
	group.Post("/:id/scan", h.HandleScan)
	group.Post("/:id/confirm", h.HandleConfirm)
	group.Post("/:id/cancel", h.HandleCancel)
	group.Get("/:id/reconciliation", h.HandleReconcile)
	group.Get("/:id/agents/:agentID/stats", h.HandleAgentStats)
}

type createCampaignRequest struct {
	Nom              string `json:"nom"`
	ServicePerimetre string `json:"service_perimetre"`
	DateDebut        string `json:"date_debut"` // YYYY-MM-DD, defaults to today
}

type scanRequest struct {
	AgentID string `json:"agent_id"`
	Code    string `json:"code"`
}

type agentRequest struct {
	AgentID string `json:"agent_id"`
}

// HandleCreateCampaign opens a new campaign.
// @Summary Create Campaign
// @Tags inventory
// @Accept json
// @Produce json
// @Param campaign body createCampaignRequest true "Campaign attributes"
// @Success 201 {object} models.Campaign
// @Failure 400 {object} map[string]string "Invalid Payload"
// @Router /campaigns [post]
func (h *Handler) HandleCreateCampaign(c *fiber.Ctx) error {
	var req createCampaignRequest
	if err := c.BodyParser(&req); err != nil || req.Nom == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nom is required"})
	}

	var dateDebut time.Time
	if req.DateDebut != "" {
		parsed, err := time.Parse("2006-01-02", req.DateDebut)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date_debut must be YYYY-MM-DD"})
		}
		dateDebut = parsed
	}

	campaign, err := h.service.CreateCampaign(c.Context(), req.Nom, req.ServicePerimetre, dateDebut)
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Campaign creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// HandleListCampaigns lists campaigns, most recent start date first.
// @Summary List Campaigns
// @Tags inventory
// @Produce json
// @Success 200 {array} models.Campaign
// @Router /campaigns [get]
func (h *Handler) HandleListCampaigns(c *fiber.Ctx) error {
	campaigns, err := h.service.ListCampaigns(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Campaign list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(campaigns)
}

// HandleCloseCampaign sets the campaign end date.
// @Summary Close Campaign
// @Tags inventory
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]string "Campaign Not Found"
// @Router /campaigns/{id}/close [post]
func (h *Handler) HandleCloseCampaign(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}

	campaign, err := h.service.CloseCampaign(c.Context(), uint(id))
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(campaign)
}

// HandleScan resolves a scanned code within the agent's session.
// @Summary Scan Code
// @Description Resolve a decoded code; on a hit the materiel awaits explicit confirmation.
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param scan body scanRequest true "Agent and code"
// @Success 200 {object} models.ScanOutcome "found or not_found"
// @Failure 404 {object} map[string]string "Campaign Not Found"
// @Failure 409 {object} map[string]string "Scan Awaiting Confirmation"
// @Router /campaigns/{id}/scan [post]
func (h *Handler) HandleScan(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}
	var req scanRequest
	if err := c.BodyParser(&req); err != nil || req.AgentID == "" || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "agent_id and code are required"})
	}

	outcome, err := h.service.Scan(c.Context(), uint(id), req.AgentID, req.Code)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(outcome)
}

// HandleConfirm persists the presence of the pending materiel.
// @Summary Confirm Scan
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param agent body agentRequest true "Agent"
// @Success 200 {object} models.ScanOutcome "confirmed or already_scanned"
// @Failure 409 {object} map[string]string "Nothing Pending"
// @Router /campaigns/{id}/confirm [post]
func (h *Handler) HandleConfirm(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}
	var req agentRequest
	if err := c.BodyParser(&req); err != nil || req.AgentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "agent_id is required"})
	}

	outcome, err := h.service.Confirm(c.Context(), uint(id), req.AgentID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(outcome)
}

// HandleCancel drops the pending materiel without recording anything.
// @Summary Cancel Pending Scan
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param agent body agentRequest true "Agent"
// @Success 200 {object} models.ScanOutcome "cancelled"
// @Failure 409 {object} map[string]string "Nothing Pending"
// @Router /campaigns/{id}/cancel [post]
func (h *Handler) HandleCancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}
	var req agentRequest
	if err := c.BodyParser(&req); err != nil || req.AgentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "agent_id is required"})
	}

	outcome, err := h.service.Cancel(uint(id), req.AgentID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(outcome)
}

// HandleReconcile returns the present/missing partition for a campaign.
// @Summary Reconcile Campaign
// @Tags inventory
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {object} Report
// @Failure 404 {object} map[string]string "Campaign Not Found"
// @Router /campaigns/{id}/reconciliation [get]
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}

	report, err := h.service.Reconcile(c.Context(), uint(id))
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(report)
}

// HandleAgentStats returns the live scan tally of an agent.
// @Summary Agent Stats
// @Tags inventory
// @Produce json
// @Param id path int true "Campaign ID"
// @Param agentID path string true "Agent ID"
// @Success 200 {object} models.AgentStats
// @Failure 404 {object} map[string]string "Campaign Not Found"
// @Router /campaigns/{id}/agents/{agentID}/stats [get]
func (h *Handler) HandleAgentStats(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}

	stats, err := h.service.AgentStats(c.Context(), uint(id), c.Params("agentID"))
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(stats)
}

// renderError maps engine errors onto HTTP statuses. Soft rejections keep a
// 409 so scanning clients can distinguish them from hard faults.
func (h *Handler) renderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrCampaignNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrScanPending), errors.Is(err, ErrNothingPending):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.WithRayID(h.service.logger, c).Error("Campaign operation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
