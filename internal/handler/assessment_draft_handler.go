package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
	"github.com/noah-isme/gema-rubric-api/internal/service"
	"github.com/noah-isme/gema-rubric-api/internal/utils"
)

// AssessmentDraftHandler exposes the assessment tray: drafts are opened, edited per criterion and
// finally submitted as an encoded payload.
type AssessmentDraftHandler struct {
	service service.AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentDraftHandler constructs the handler.
func NewAssessmentDraftHandler(service service.AssessmentService, logger zerolog.Logger) *AssessmentDraftHandler {
	return &AssessmentDraftHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_draft_handler").Logger(),
	}
}

// Register attaches draft routes to the router group. Submission is registered separately so it
// can sit behind its own rate limiter.
func (h *AssessmentDraftHandler) Register(router fiber.Router) {
	router.Post("", h.open)
	router.Get("/:id", h.get)
	router.Patch("/:id/criteria/:criterionId", h.edit)
	router.Delete("/:id", h.discard)
}

// RegisterSubmit attaches the submit route.
func (h *AssessmentDraftHandler) RegisterSubmit(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/:id/submit", append(guards[:len(guards):len(guards)], h.submit)...)
}

func (h *AssessmentDraftHandler) open(c *fiber.Ctx) error {
	var payload dto.AssessmentDraftOpenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	draft, err := h.service.Open(withRequestContext(c), payload, assessmentSessionFromContext(c))
	if err != nil {
		return h.writeError(c, err, "failed to open assessment draft")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assessment draft ready", draft)
}

func (h *AssessmentDraftHandler) get(c *fiber.Ctx) error {
	draft, err := h.service.Get(withRequestContext(c), c.Params("id"), assessmentSessionFromContext(c))
	if err != nil {
		return h.writeError(c, err, "failed to load assessment draft")
	}

	return utils.SendSuccess(c, "assessment draft", draft)
}

func (h *AssessmentDraftHandler) edit(c *fiber.Ctx) error {
	criterionID := strings.TrimSpace(c.Params("criterionId"))
	if criterionID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "criterion id is required")
	}

	var payload dto.AssessmentDraftEditRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	draft, err := h.service.Edit(withRequestContext(c), c.Params("id"), criterionID, payload, assessmentSessionFromContext(c))
	if err != nil {
		return h.writeError(c, err, "failed to update assessment draft")
	}

	return utils.SendSuccess(c, "assessment draft updated", draft)
}

func (h *AssessmentDraftHandler) discard(c *fiber.Ctx) error {
	if err := h.service.Discard(withRequestContext(c), c.Params("id"), assessmentSessionFromContext(c)); err != nil {
		return h.writeError(c, err, "failed to discard assessment draft")
	}

	return utils.SendSuccess(c, "assessment draft discarded", nil)
}

func (h *AssessmentDraftHandler) submit(c *fiber.Ctx) error {
	result, err := h.service.Submit(withRequestContext(c), c.Params("id"), assessmentSessionFromContext(c))
	if err != nil {
		return h.writeError(c, err, "failed to submit assessment")
	}

	requestLogger(h.logger, c).Info().
		Uint("assessment_id", result.AssessmentID).
		Str("dispatch_status", result.DispatchStatus).
		Msg("assessment submitted")

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assessment submitted", result)
}

func (h *AssessmentDraftHandler) writeError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrDraftNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assessment draft not found")
	case errors.Is(err, service.ErrRubricNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "rubric not found")
	case errors.Is(err, service.ErrDraftForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "assessment draft belongs to another assessor")
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, rubric.ErrUnknownCriterion),
		errors.Is(err, rubric.ErrUnknownRating),
		errors.Is(err, rubric.ErrDuplicateEntry),
		errors.Is(err, rubric.ErrInvalidRubric),
		errors.Is(err, rubric.ErrMissingAssessmentType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, rubric.ErrMissingIdentity):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrDispatchFailed):
		requestLogger(h.logger, c).Warn().Err(err).Msg("legacy grading endpoint rejected assessment")
		return utils.SendError(c, fiber.StatusBadGateway, "grading endpoint rejected the assessment")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
