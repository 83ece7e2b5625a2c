package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-rubric-api/internal/observability"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

// ErrDispatchFailed indicates the legacy grading endpoint did not accept the payload.
var ErrDispatchFailed = errors.New("assessment dispatch failed")

// DispatchTarget identifies where an encoded assessment is delivered.
type DispatchTarget struct {
	RubricID      uint
	ArtifactID    string
	CorrelationID string
}

// AssessmentDispatcher hands an encoded payload to the legacy grading endpoint.
type AssessmentDispatcher interface {
	Enabled() bool
	Dispatch(ctx context.Context, target DispatchTarget, payload *rubric.Payload) error
}

type formDispatcher struct {
	client   *http.Client
	endpoint string
	method   string
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewFormDispatcher builds a dispatcher that submits the payload as a form-encoded request.
// The endpoint may contain {rubric_id} and {artifact_id} placeholders; the artifact id is
// substituted as a single escaped path segment. An empty endpoint disables delivery.
func NewFormDispatcher(endpoint, method string, timeout time.Duration, logger zerolog.Logger) AssessmentDispatcher {
	if method == "" {
		method = http.MethodPut
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &formDispatcher{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimSpace(endpoint),
		method:   strings.ToUpper(method),
		logger:   logger.With().Str("component", "assessment_dispatcher").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-rubric-api/internal/service/dispatch"),
	}
}

func (d *formDispatcher) Enabled() bool {
	return d.endpoint != ""
}

func (d *formDispatcher) Dispatch(ctx context.Context, target DispatchTarget, payload *rubric.Payload) error {
	if !d.Enabled() {
		return nil
	}

	endpoint := strings.NewReplacer(
		"{rubric_id}", strconv.FormatUint(uint64(target.RubricID), 10),
		"{artifact_id}", url.PathEscape(target.ArtifactID),
	).Replace(d.endpoint)

	ctx, span := d.tracer.Start(ctx, "assessments.dispatch", trace.WithAttributes(
		attribute.String("dispatch.method", d.method),
		attribute.String("dispatch.artifact_id", target.ArtifactID),
		attribute.Int("dispatch.keys", payload.Len()),
	))
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		observability.LegacyDispatchDuration().WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, d.method, endpoint, strings.NewReader(payload.Form().Encode()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request_build_failed")
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if target.CorrelationID != "" {
		req.Header.Set("X-Correlation-ID", target.CorrelationID)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport_failed")
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	span.SetAttributes(attribute.Int("dispatch.status", resp.StatusCode))
	if resp.StatusCode >= http.StatusMultipleChoices {
		outcome = "rejected"
		err := fmt.Errorf("%w: legacy endpoint responded %d", ErrDispatchFailed, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "rejected")
		d.logger.Warn().Int("status", resp.StatusCode).Str("artifact_id", target.ArtifactID).Msg("legacy endpoint rejected assessment")
		return err
	}

	outcome = "accepted"
	return nil
}
