package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
	"github.com/noah-isme/gema-rubric-api/internal/service"
	"github.com/noah-isme/gema-rubric-api/internal/utils"
)

// RubricHandler exposes the rubric catalogue.
type RubricHandler struct {
	service        service.RubricService
	maxImportBytes int
	logger         zerolog.Logger
}

// NewRubricHandler constructs the handler. Imported files larger than maxImportBytes are rejected.
func NewRubricHandler(service service.RubricService, maxImportBytes int, logger zerolog.Logger) *RubricHandler {
	if maxImportBytes <= 0 {
		maxImportBytes = 1 << 20
	}
	return &RubricHandler{
		service:        service,
		maxImportBytes: maxImportBytes,
		logger:         logger.With().Str("component", "rubric_handler").Logger(),
	}
}

// Register attaches rubric routes to the router group.
func (h *RubricHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

// RegisterAuthoring attaches the routes that create rubrics, each preceded by guards.
func (h *RubricHandler) RegisterAuthoring(router fiber.Router, guards ...fiber.Handler) {
	router.Post("", append(guards[:len(guards):len(guards)], h.create)...)
	router.Post("/import", append(guards[:len(guards):len(guards)], h.importFile)...)
}

func (h *RubricHandler) create(c *fiber.Ctx) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "rubric document is required")
	}

	created, err := h.service.Create(withRequestContext(c), body, activityActorFromContext(c))
	if err != nil {
		return h.writeError(c, err, "failed to create rubric")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric created", rubric.ToWire(created))
}

func (h *RubricHandler) importFile(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	if header.Size > int64(h.maxImportBytes) {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "rubric file too large")
	}

	file, err := header.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, int64(h.maxImportBytes)+1))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read file")
	}
	if len(data) > h.maxImportBytes {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "rubric file too large")
	}

	created, err := h.service.Import(withRequestContext(c), header.Filename, data, activityActorFromContext(c))
	if err != nil {
		return h.writeError(c, err, "failed to import rubric")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric imported", rubric.ToWire(created))
}

func (h *RubricHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c, 20, 100)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.List(withRequestContext(c), page, pageSize)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list rubrics")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list rubrics")
	}

	return utils.OK(c, result.Items, "rubrics", result.Pagination)
}

func (h *RubricHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format", dto.RubricFormatWire)))
	if format != dto.RubricFormatWire && format != dto.RubricFormatView {
		return utils.SendError(c, fiber.StatusBadRequest, "format must be wire or view")
	}

	found, err := h.service.Get(withRequestContext(c), id)
	if err != nil {
		return h.writeError(c, err, "failed to load rubric")
	}

	if format == dto.RubricFormatView {
		return utils.SendSuccess(c, "rubric", rubric.ToView(found))
	}
	return utils.SendSuccess(c, "rubric", rubric.ToWire(found))
}

func (h *RubricHandler) writeError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrRubricNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "rubric not found")
	case errors.Is(err, service.ErrUnsupportedRubricFile):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, rubric.ErrInvalidRubric):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
