package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

// AssessmentSubmittedEvent is broadcast after an assessment has been encoded and recorded.
type AssessmentSubmittedEvent struct {
	AssessmentID   uint            `json:"assessment_id"`
	RubricID       uint            `json:"rubric_id"`
	ArtifactID     string          `json:"artifact_id"`
	AssessmentType string          `json:"assessment_type"`
	Anonymous      bool            `json:"anonymous"`
	Score          float64         `json:"score"`
	DispatchStatus string          `json:"dispatch_status"`
	Payload        *rubric.Payload `json:"payload"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}

// AssessmentEventPublisher broadcasts assessment lifecycle events.
type AssessmentEventPublisher interface {
	PublishSubmitted(ctx context.Context, event AssessmentSubmittedEvent) error
}

type natsAssessmentPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSAssessmentPublisher publishes events on "<channelBase>.rubric_assessments.submitted",
// with ':' in the base rewritten to '.'. A nil connection yields a publisher that drops events.
func NewNATSAssessmentPublisher(conn *nats.Conn, channelBase string) AssessmentEventPublisher {
	return &natsAssessmentPublisher{
		conn:    conn,
		subject: SubmittedSubject(channelBase),
	}
}

// SubmittedSubject derives the NATS subject for submitted assessments.
func SubmittedSubject(channelBase string) string {
	base := strings.Trim(strings.ReplaceAll(channelBase, ":", "."), ".")
	if base == "" {
		return "rubric_assessments.submitted"
	}
	return base + ".rubric_assessments.submitted"
}

func (p *natsAssessmentPublisher) PublishSubmitted(_ context.Context, event AssessmentSubmittedEvent) error {
	if p.conn == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.conn.Publish(p.subject, payload)
}
