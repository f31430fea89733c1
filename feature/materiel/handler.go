package materiel

import (
	"bytes"
	"errors"

	"materiel-tracker/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the materiel registry.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the materiel routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/materiels")
	group.Post("/", h.HandleCreateMateriel)
	group.Get("/", h.HandleListMateriels)
	group.Get("/:code", h.HandleLookupByCode)
	group.Post("/:id/photo", h.HandleAttachPhoto)

	cats := app.Group("/categories")
	cats.Post("/", h.HandleCreateCategory)
	cats.Get("/", h.HandleListCategories)
}

// HandleCreateMateriel registers a new materiel with a generated inventory number.
// @Summary Create Materiel
// @Description Create a materiel; the inventory number is allocated atomically per (category, year).
// @Tags materiel
// @Accept json
// @Produce json
// @Param materiel body CreateInput true "Materiel attributes"
// @Success 201 {object} models.Materiel "Created Materiel"
// @Failure 400 {object} map[string]string "Invalid Payload"
// @Failure 404 {object} map[string]string "Category Not Found"
// @Router /materiels [post]
func (h *Handler) HandleCreateMateriel(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var input CreateInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if input.Nom == "" || input.CategoryID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nom and category_id are required"})
	}

	m, err := h.service.CreateMateriel(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrCategoryNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrAllocationFailed):
			l.Error("Allocation failed", zap.Error(err))
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			l.Error("Materiel creation failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}

	l.Info("Materiel created", zap.String("numero", m.Numero))
	return c.Status(fiber.StatusCreated).JSON(m)
}

// HandleListMateriels lists all materiels, newest first.
// @Summary List Materiels
// @Tags materiel
// @Produce json
// @Success 200 {array} models.Materiel
// @Router /materiels [get]
func (h *Handler) HandleListMateriels(c *fiber.Ctx) error {
	items, err := h.service.List(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Materiel list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(items)
}

// HandleLookupByCode resolves a scanned code to a materiel.
// @Summary Lookup Materiel By Code
// @Tags materiel
// @Produce json
// @Param code path string true "Inventory Number (e.g. 'PSY-2026-INF-0001')"
// @Success 200 {object} models.Materiel
// @Failure 404 {object} map[string]string "Materiel Not Found"
// @Router /materiels/{code} [get]
func (h *Handler) HandleLookupByCode(c *fiber.Ctx) error {
	code := c.Params("code")

	m, err := h.service.LookupByCode(c.Context(), code)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		logger.WithRayID(h.service.logger, c).Error("Lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(m)
}

// HandleAttachPhoto uploads a photo for a materiel and returns its URL.
// @Summary Attach Photo
// @Description Upload a photo body (image/jpeg, image/png, image/webp) for a materiel.
// @Tags materiel
// @Accept octet-stream
// @Produce json
// @Param id path int true "Materiel ID"
// @Success 200 {object} map[string]string "Photo URL"
// @Failure 404 {object} map[string]string "Materiel Not Found"
// @Router /materiels/{id}/photo [post]
func (h *Handler) HandleAttachPhoto(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid materiel id"})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty photo body"})
	}

	url, err := h.service.AttachPhoto(c.Context(), uint(id), bytes.NewReader(body), int64(len(body)), c.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Photo upload failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"photo_url": url})
}

// HandleCreateCategory registers a new category.
// @Summary Create Category
// @Tags materiel
// @Accept json
// @Produce json
// @Success 201 {object} models.Category
// @Router /categories [post]
func (h *Handler) HandleCreateCategory(c *fiber.Ctx) error {
	var input struct {
		Code    string `json:"code"`
		Libelle string `json:"libelle"`
	}
	if err := c.BodyParser(&input); err != nil || input.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	cat, err := h.service.CreateCategory(c.Context(), input.Code, input.Libelle)
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Category creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
}

// HandleListCategories lists all categories.
// @Summary List Categories
// @Tags materiel
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (h *Handler) HandleListCategories(c *fiber.Ctx) error {
	cats, err := h.service.ListCategories(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Category list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(cats)
}
