package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/observability"
	"github.com/noah-isme/gema-rubric-api/internal/repository"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
	"github.com/noah-isme/gema-rubric-api/pkg/keycase"
)

var (
	// ErrDraftNotFound indicates the draft expired, was discarded or never existed.
	ErrDraftNotFound = errors.New("assessment draft not found")
	// ErrDraftForbidden indicates the draft belongs to another assessor.
	ErrDraftForbidden = errors.New("assessment draft belongs to another assessor")
)

// AssessmentSession is the caller's session as seen by the assessment flow. It is built by the
// transport layer from the authenticated request and passed explicitly into every operation.
type AssessmentSession struct {
	AssessorID    uint
	Role          string
	CorrelationID string
}

// AssessmentService drives the assessment tray: open, edit, discard and submit.
type AssessmentService interface {
	Open(ctx context.Context, req dto.AssessmentDraftOpenRequest, session AssessmentSession) (dto.AssessmentDraftResponse, error)
	Get(ctx context.Context, draftID string, session AssessmentSession) (dto.AssessmentDraftResponse, error)
	Edit(ctx context.Context, draftID, criterionID string, req dto.AssessmentDraftEditRequest, session AssessmentSession) (dto.AssessmentDraftResponse, error)
	Discard(ctx context.Context, draftID string, session AssessmentSession) error
	Submit(ctx context.Context, draftID string, session AssessmentSession) (dto.AssessmentSubmitResponse, error)
}

// AssessmentServiceConfig groups the collaborators of the assessment service.
type AssessmentServiceConfig struct {
	Rubrics     RubricService
	Drafts      repository.DraftStore
	Assessments repository.RubricAssessmentRepository
	Dispatcher  AssessmentDispatcher
	Events      AssessmentEventPublisher
	Activity    ActivityRecorder
	Validator   *validator.Validate
	DraftTTL    time.Duration
}

type assessmentService struct {
	rubrics     RubricService
	drafts      repository.DraftStore
	assessments repository.RubricAssessmentRepository
	dispatcher  AssessmentDispatcher
	events      AssessmentEventPublisher
	activity    ActivityRecorder
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	ttl         time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	newID       func() string
}

// NewAssessmentService constructs the assessment tray service.
func NewAssessmentService(cfg AssessmentServiceConfig, logger zerolog.Logger) AssessmentService {
	ttl := cfg.DraftTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	return &assessmentService{
		rubrics:     cfg.Rubrics,
		drafts:      cfg.Drafts,
		assessments: cfg.Assessments,
		dispatcher:  cfg.Dispatcher,
		events:      cfg.Events,
		activity:    cfg.Activity,
		validator:   cfg.Validator,
		sanitizer:   bluemonday.StrictPolicy(),
		ttl:         ttl,
		logger:      logger.With().Str("component", "assessment_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-rubric-api/internal/service/assessment"),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (s *assessmentService) Open(ctx context.Context, req dto.AssessmentDraftOpenRequest, session AssessmentSession) (dto.AssessmentDraftResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assessments.open", trace.WithAttributes(
		attribute.Int64("assessment.rubric_id", int64(req.RubricID)),
		attribute.String("assessment.artifact_id", req.ArtifactID),
	))
	defer span.End()

	req.ArtifactID = strings.TrimSpace(req.ArtifactID)
	req.AnonymousID = strings.TrimSpace(req.AnonymousID)
	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AssessmentDraftResponse{}, err
	}

	r, err := s.rubrics.Get(ctx, req.RubricID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_lookup_failed")
		return dto.AssessmentDraftResponse{}, err
	}

	if existing, ok := s.resume(ctx, req, session); ok {
		if existing.Matches(req.AssessmentType, req.Anonymous, req.AnonymousID) {
			span.SetAttributes(attribute.Bool("assessment.resumed", true))
			return s.respond(r, existing), nil
		}
		if err := s.drafts.Delete(ctx, existing); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "draft_replace_failed")
			return dto.AssessmentDraftResponse{}, err
		}
		s.logger.Debug().Str("draft_id", existing.ID).Msg("replaced assessment draft with different identity")
	}

	seed, err := s.seedEntries(ctx, req, session)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentDraftResponse{}, err
	}

	collector, err := rubric.NewCollector(r, seed...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_existing_assessment")
		return dto.AssessmentDraftResponse{}, err
	}

	now := s.now().UTC()
	draft := models.AssessmentDraft{
		ID:             s.newID(),
		RubricID:       req.RubricID,
		ArtifactID:     req.ArtifactID,
		AssessorID:     session.AssessorID,
		AssessmentType: req.AssessmentType,
		Anonymous:      req.Anonymous,
		AnonymousID:    req.AnonymousID,
		Entries:        rubric.EntriesToWire(collector.Snapshot()),
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}

	if err := s.drafts.Save(ctx, draft, s.ttl); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "draft_store_failed")
		return dto.AssessmentDraftResponse{}, err
	}

	s.logger.Debug().Str("draft_id", draft.ID).Uint("rubric_id", draft.RubricID).Int("entries", len(draft.Entries)).Msg("assessment draft opened")
	return s.respond(r, draft), nil
}

// resume returns the assessor's open draft for the artifact, if any. Only one draft per assessor
// and artifact is indexed, so a draft opened with a different identity is replaced by the caller.
func (s *assessmentService) resume(ctx context.Context, req dto.AssessmentDraftOpenRequest, session AssessmentSession) (models.AssessmentDraft, bool) {
	id, err := s.drafts.FindID(ctx, req.RubricID, req.ArtifactID, session.AssessorID)
	if err != nil {
		if !errors.Is(err, repository.ErrDraftNotFound) {
			s.logger.Warn().Err(err).Msg("failed to look up open assessment draft")
		}
		return models.AssessmentDraft{}, false
	}

	draft, err := s.drafts.Get(ctx, id)
	if err != nil {
		return models.AssessmentDraft{}, false
	}
	return draft, true
}

func (s *assessmentService) seedEntries(ctx context.Context, req dto.AssessmentDraftOpenRequest, session AssessmentSession) ([]rubric.Entry, error) {
	if len(req.Assessment) > 0 {
		return rubric.EntriesFromWire(req.Assessment), nil
	}

	if s.assessments == nil {
		return nil, nil
	}

	latest, err := s.assessments.Latest(ctx, req.RubricID, req.ArtifactID, session.AssessorID)
	if err != nil {
		return nil, err
	}
	if latest == nil || len(latest.Entries) == 0 {
		return nil, nil
	}

	entries, err := rubric.DecodeWireEntries(latest.Entries)
	if err != nil {
		return nil, fmt.Errorf("stored assessment %d: %w", latest.ID, err)
	}
	return entries, nil
}

func (s *assessmentService) Get(ctx context.Context, draftID string, session AssessmentSession) (dto.AssessmentDraftResponse, error) {
	draft, err := s.loadDraft(ctx, draftID, session)
	if err != nil {
		return dto.AssessmentDraftResponse{}, err
	}

	r, err := s.rubrics.Get(ctx, draft.RubricID)
	if err != nil {
		return dto.AssessmentDraftResponse{}, err
	}

	return s.respond(r, draft), nil
}

func (s *assessmentService) Edit(ctx context.Context, draftID, criterionID string, req dto.AssessmentDraftEditRequest, session AssessmentSession) (dto.AssessmentDraftResponse, error) {
	req.Op = keycase.Underscore(strings.TrimSpace(req.Op))

	ctx, span := s.tracer.Start(ctx, "assessments.edit", trace.WithAttributes(
		attribute.String("assessment.draft_id", draftID),
		attribute.String("assessment.criterion_id", criterionID),
		attribute.String("assessment.op", req.Op),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AssessmentDraftResponse{}, err
	}

	draft, err := s.loadDraft(ctx, draftID, session)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentDraftResponse{}, err
	}

	r, err := s.rubrics.Get(ctx, draft.RubricID)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentDraftResponse{}, err
	}

	collector, err := rubric.NewCollector(r, rubric.EntriesFromWire(draft.Entries)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stale_draft")
		return dto.AssessmentDraftResponse{}, err
	}

	if err := s.apply(collector, criterionID, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "edit_rejected")
		return dto.AssessmentDraftResponse{}, err
	}

	now := s.now().UTC()
	draft.Entries = rubric.EntriesToWire(collector.Snapshot())
	draft.UpdatedAt = now
	draft.ExpiresAt = now.Add(s.ttl)

	if err := s.drafts.Save(ctx, draft, s.ttl); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "draft_store_failed")
		return dto.AssessmentDraftResponse{}, err
	}

	observability.DraftEdits().WithLabelValues(req.Op).Inc()
	return s.respond(r, draft), nil
}

func (s *assessmentService) apply(collector *rubric.Collector, criterionID string, req dto.AssessmentDraftEditRequest) error {
	switch req.Op {
	case dto.DraftOpSetPoints:
		return collector.SetPoints(criterionID, *req.Points)
	case dto.DraftOpClearPoints:
		return collector.ClearPoints(criterionID)
	case dto.DraftOpSetComment:
		return collector.SetComment(criterionID, s.plainText(*req.Comments))
	case dto.DraftOpToggleSaveComment:
		_, err := collector.ToggleSaveComment(criterionID)
		return err
	case dto.DraftOpSelectRating:
		return collector.SelectRating(criterionID, strings.TrimSpace(req.RatingID))
	default:
		return fmt.Errorf("unsupported draft operation %q", req.Op)
	}
}

// plainText strips markup from grader text. The policy escapes entities in what it keeps, so those
// are decoded again to leave the comment as typed.
func (s *assessmentService) plainText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(raw)))
}

func (s *assessmentService) Discard(ctx context.Context, draftID string, session AssessmentSession) error {
	draft, err := s.loadDraft(ctx, draftID, session)
	if err != nil {
		return err
	}
	return s.drafts.Delete(ctx, draft)
}

func (s *assessmentService) Submit(ctx context.Context, draftID string, session AssessmentSession) (dto.AssessmentSubmitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assessments.submit", trace.WithAttributes(
		attribute.String("assessment.draft_id", draftID),
		attribute.Int64("assessment.assessor_id", int64(session.AssessorID)),
	))
	defer span.End()

	draft, err := s.loadDraft(ctx, draftID, session)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentSubmitResponse{}, err
	}

	r, err := s.rubrics.Get(ctx, draft.RubricID)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentSubmitResponse{}, err
	}

	entries := rubric.EntriesFromWire(draft.Entries)
	payload, err := rubric.Encode(r, entries, rubric.Metadata{
		Identity: rubric.Identity{
			Anonymous:   draft.Anonymous,
			UserID:      formatAssessorID(session.AssessorID),
			AnonymousID: draft.AnonymousID,
		},
		AssessmentType: draft.AssessmentType,
	})
	if err != nil {
		observability.AssessmentRejections().WithLabelValues(rejectionReason(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode_failed")
		return dto.AssessmentSubmitResponse{}, err
	}

	score := rubric.Score(r, entries)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentSubmitResponse{}, fmt.Errorf("encode payload: %w", err)
	}
	entriesJSON, err := rubric.EncodeWireEntries(entries)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentSubmitResponse{}, fmt.Errorf("encode entries: %w", err)
	}

	status := models.DispatchStatusSkipped
	if s.dispatcher != nil && s.dispatcher.Enabled() {
		status = models.DispatchStatusPending
	}

	record := models.RubricAssessment{
		RubricID:       draft.RubricID,
		ArtifactID:     draft.ArtifactID,
		AssessorID:     draft.AssessorID,
		AssessmentType: draft.AssessmentType,
		Score:          score,
		Entries:        datatypes.JSON(entriesJSON),
		Payload:        datatypes.JSON(payloadJSON),
		DispatchStatus: status,
	}
	if draft.Anonymous {
		record.AnonymousID = draft.AnonymousID
	}

	if err := s.assessments.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment_persist_failed")
		return dto.AssessmentSubmitResponse{}, err
	}

	if status == models.DispatchStatusPending {
		target := DispatchTarget{RubricID: draft.RubricID, ArtifactID: draft.ArtifactID, CorrelationID: session.CorrelationID}
		if err := s.dispatcher.Dispatch(ctx, target, payload); err != nil {
			if updateErr := s.assessments.UpdateDispatchStatus(ctx, record.ID, models.DispatchStatusFailed); updateErr != nil {
				s.logger.Warn().Err(updateErr).Uint("assessment_id", record.ID).Msg("failed to record dispatch failure")
			}
			observability.AssessmentsSubmitted().WithLabelValues(draft.AssessmentType, models.DispatchStatusFailed).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "dispatch_failed")
			return dto.AssessmentSubmitResponse{}, err
		}
		status = models.DispatchStatusSent
		if err := s.assessments.UpdateDispatchStatus(ctx, record.ID, status); err != nil {
			s.logger.Warn().Err(err).Uint("assessment_id", record.ID).Msg("failed to record dispatch success")
		}
	}

	if s.events != nil {
		event := AssessmentSubmittedEvent{
			AssessmentID:   record.ID,
			RubricID:       record.RubricID,
			ArtifactID:     record.ArtifactID,
			AssessmentType: record.AssessmentType,
			Anonymous:      draft.Anonymous,
			Score:          score,
			DispatchStatus: status,
			Payload:        payload,
			SubmittedAt:    s.now().UTC(),
		}
		if err := s.events.PublishSubmitted(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("assessment_id", record.ID).Msg("failed to publish assessment event")
		}
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:       session.AssessorID,
			ActorRole:     session.Role,
			Action:        "rubric_assessment.submitted",
			EntityType:    "rubric_assessment",
			EntityID:      &record.ID,
			CorrelationID: session.CorrelationID,
			Metadata: map[string]interface{}{
				"rubric_id":       record.RubricID,
				"artifact_id":     record.ArtifactID,
				"assessment_type": record.AssessmentType,
				"score":           score,
				"anonymous":       draft.Anonymous,
			},
		})
	}

	if err := s.drafts.Delete(ctx, draft); err != nil {
		s.logger.Warn().Err(err).Str("draft_id", draft.ID).Msg("failed to remove submitted draft")
	}

	observability.AssessmentsSubmitted().WithLabelValues(draft.AssessmentType, status).Inc()
	span.SetAttributes(
		attribute.Int64("assessment.id", int64(record.ID)),
		attribute.Float64("assessment.score", score),
		attribute.String("assessment.dispatch_status", status),
	)

	return dto.AssessmentSubmitResponse{
		AssessmentID:   record.ID,
		Score:          score,
		DispatchStatus: status,
		Payload:        payload,
	}, nil
}

func (s *assessmentService) loadDraft(ctx context.Context, draftID string, session AssessmentSession) (models.AssessmentDraft, error) {
	draft, err := s.drafts.Get(ctx, strings.TrimSpace(draftID))
	if err != nil {
		if errors.Is(err, repository.ErrDraftNotFound) {
			return models.AssessmentDraft{}, ErrDraftNotFound
		}
		return models.AssessmentDraft{}, err
	}
	if draft.AssessorID != session.AssessorID {
		return models.AssessmentDraft{}, ErrDraftForbidden
	}
	return draft, nil
}

func (s *assessmentService) respond(r rubric.Rubric, draft models.AssessmentDraft) dto.AssessmentDraftResponse {
	return dto.NewAssessmentDraftResponse(draft, rubric.Score(r, rubric.EntriesFromWire(draft.Entries)))
}

func formatAssessorID(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, rubric.ErrMissingIdentity):
		return "missing_identity"
	case errors.Is(err, rubric.ErrUnknownCriterion):
		return "unknown_criterion"
	case errors.Is(err, rubric.ErrUnknownRating):
		return "unknown_rating"
	case errors.Is(err, rubric.ErrDuplicateEntry):
		return "duplicate_entry"
	case errors.Is(err, rubric.ErrMissingAssessmentType):
		return "missing_assessment_type"
	default:
		return "invalid_rubric"
	}
}
