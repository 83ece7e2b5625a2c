package models

import (
	"time"

	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

// AssessmentDraft is the transient state of an open assessment tray. It lives in Redis only and
// expires when the tray is abandoned.
type AssessmentDraft struct {
	ID             string             `json:"id"`
	RubricID       uint               `json:"rubric_id"`
	ArtifactID     string             `json:"artifact_id"`
	AssessorID     uint               `json:"assessor_id"`
	AssessmentType string             `json:"assessment_type"`
	Anonymous      bool               `json:"anonymous"`
	AnonymousID    string             `json:"anonymous_id,omitempty"`
	Entries        []rubric.WireEntry `json:"entries"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

// Matches reports whether the draft was opened for the same assessment type and identity.
func (d AssessmentDraft) Matches(assessmentType string, anonymous bool, anonymousID string) bool {
	return d.AssessmentType == assessmentType && d.Anonymous == anonymous && d.AnonymousID == anonymousID
}
