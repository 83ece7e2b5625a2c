package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/repository"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

// ErrRubricNotFound indicates the rubric was not located.
var ErrRubricNotFound = errors.New("rubric not found")

// ErrUnsupportedRubricFile indicates an imported file is neither a JSON nor a YAML document.
var ErrUnsupportedRubricFile = errors.New("rubric import must be a JSON or YAML document")

// RubricService manages the rubric catalogue.
type RubricService interface {
	Create(ctx context.Context, document []byte, actor ActivityActor) (rubric.Rubric, error)
	Import(ctx context.Context, filename string, data []byte, actor ActivityActor) (rubric.Rubric, error)
	Get(ctx context.Context, id uint) (rubric.Rubric, error)
	List(ctx context.Context, page, pageSize int) (dto.RubricListResponse, error)
}

type rubricService struct {
	repo     repository.RubricRepository
	activity ActivityRecorder
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewRubricService constructs the rubric catalogue service.
func NewRubricService(repo repository.RubricRepository, activity ActivityRecorder, logger zerolog.Logger) RubricService {
	return &rubricService{
		repo:     repo,
		activity: activity,
		logger:   logger.With().Str("component", "rubric_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-rubric-api/internal/service/rubric"),
	}
}

func (s *rubricService) Create(ctx context.Context, document []byte, actor ActivityActor) (rubric.Rubric, error) {
	return s.create(ctx, document, actor, "rubric.created", nil)
}

func (s *rubricService) create(ctx context.Context, document []byte, actor ActivityActor, action string, extra map[string]interface{}) (rubric.Rubric, error) {
	ctx, span := s.tracer.Start(ctx, "rubrics.create", trace.WithAttributes(
		attribute.Int64("rubric.actor_id", int64(actor.ID)),
	))
	defer span.End()

	decoded, err := rubric.DecodeWireRubric(document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_rubric")
		return rubric.Rubric{}, err
	}

	decoded.Title = strings.TrimSpace(decoded.Title)
	if decoded.Title == "" {
		err := fmt.Errorf("%w: title is required", rubric.ErrInvalidRubric)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_rubric")
		return rubric.Rubric{}, err
	}
	if decoded.PointsPossible <= 0 {
		decoded.PointsPossible = rubric.PointsPossible(decoded)
	}

	criteria, err := json.Marshal(rubric.ToWire(decoded).Criteria)
	if err != nil {
		span.RecordError(err)
		return rubric.Rubric{}, fmt.Errorf("encode criteria: %w", err)
	}

	model := models.Rubric{
		Title:                     decoded.Title,
		PointsPossible:            decoded.PointsPossible,
		FreeFormCriterionComments: decoded.FreeFormCriterionComments,
		HideScoreTotal:            decoded.HideScoreTotal,
		Criteria:                  datatypes.JSON(criteria),
		CriteriaCount:             len(decoded.Criteria),
		CreatedBy:                 actor.ID,
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_create_failed")
		return rubric.Rubric{}, err
	}

	if s.activity != nil {
		metadata := map[string]interface{}{
			"title":          model.Title,
			"criteria_count": model.CriteriaCount,
		}
		for key, value := range extra {
			metadata[key] = value
		}
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Action:        action,
			EntityType:    "rubric",
			EntityID:      &model.ID,
			CorrelationID: actor.CorrelationID,
			Metadata:      metadata,
		})
	}

	span.SetAttributes(attribute.Int64("rubric.id", int64(model.ID)))
	s.logger.Info().Uint("rubric_id", model.ID).Int("criteria", model.CriteriaCount).Msg("rubric created")

	return toCanonicalRubric(model)
}

func (s *rubricService) Import(ctx context.Context, filename string, data []byte, actor ActivityActor) (rubric.Rubric, error) {
	detected := mimetype.Detect(data)
	extra := map[string]interface{}{"filename": filename, "mime": detected.String()}

	switch {
	case detected.Is("application/json"):
		return s.create(ctx, data, actor, "rubric.imported", extra)
	case isYAMLFile(filename) && detected.Is("text/plain"):
		document, err := yamlToJSON(data)
		if err != nil {
			return rubric.Rubric{}, fmt.Errorf("%w: %v", rubric.ErrInvalidRubric, err)
		}
		return s.create(ctx, document, actor, "rubric.imported", extra)
	default:
		s.logger.Warn().Str("filename", filename).Str("mime", detected.String()).Msg("rejected rubric import")
		return rubric.Rubric{}, fmt.Errorf("%w: detected %s", ErrUnsupportedRubricFile, detected.String())
	}
}

func isYAMLFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// yamlToJSON re-encodes a YAML rubric so it goes through the same underscored decoder as JSON.
func yamlToJSON(data []byte) ([]byte, error) {
	var document map[string]interface{}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	if document == nil {
		return nil, errors.New("empty document")
	}
	return json.Marshal(document)
}

func (s *rubricService) Get(ctx context.Context, id uint) (rubric.Rubric, error) {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rubric.Rubric{}, ErrRubricNotFound
		}
		return rubric.Rubric{}, err
	}

	return toCanonicalRubric(model)
}

func (s *rubricService) List(ctx context.Context, page, pageSize int) (dto.RubricListResponse, error) {
	items, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return dto.RubricListResponse{}, err
	}

	summaries := make([]dto.RubricSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, dto.NewRubricSummary(item))
	}

	return dto.RubricListResponse{
		Items:      summaries,
		Pagination: paginate(page, pageSize, total),
	}, nil
}

func toCanonicalRubric(model models.Rubric) (rubric.Rubric, error) {
	var criteria []rubric.WireCriterion
	if len(model.Criteria) > 0 {
		if err := json.Unmarshal(model.Criteria, &criteria); err != nil {
			return rubric.Rubric{}, fmt.Errorf("decode stored criteria for rubric %d: %w", model.ID, err)
		}
	}

	return rubric.FromWire(rubric.WireRubric{
		ID:                        rubric.StringID(strconv.FormatUint(uint64(model.ID), 10)),
		Title:                     model.Title,
		PointsPossible:            model.PointsPossible,
		FreeFormCriterionComments: model.FreeFormCriterionComments,
		HideScoreTotal:            model.HideScoreTotal,
		Criteria:                  criteria,
	}), nil
}
