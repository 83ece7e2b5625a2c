package dto

import (
	"time"

	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

// Draft edit operations accepted by the criteria endpoint.
const (
	DraftOpSetPoints         = "set_points"
	DraftOpClearPoints       = "clear_points"
	DraftOpSetComment        = "set_comment"
	DraftOpToggleSaveComment = "toggle_save_comment"
	DraftOpSelectRating      = "select_rating"
)

// AssessmentDraftOpenRequest opens (or resumes) the assessment tray for an artifact.
type AssessmentDraftOpenRequest struct {
	RubricID       uint               `json:"rubric_id" validate:"required,gt=0"`
	ArtifactID     string             `json:"artifact_id" validate:"required,max=64"`
	AssessmentType string             `json:"assessment_type" validate:"required,oneof=grading peer_review self_assessment provisional_grade"`
	Anonymous      bool               `json:"anonymous"`
	AnonymousID    string             `json:"anonymous_id" validate:"omitempty,max=64"`
	Assessment     []rubric.WireEntry `json:"assessment"`
}

// AssessmentDraftEditRequest applies one edit to a criterion row.
type AssessmentDraftEditRequest struct {
	Op       string   `json:"op" validate:"required,oneof=set_points clear_points set_comment toggle_save_comment select_rating"`
	Points   *float64 `json:"points" validate:"required_if=Op set_points,omitempty,gte=0"`
	Comments *string  `json:"comments" validate:"required_if=Op set_comment,omitempty,max=5000"`
	RatingID string   `json:"rating_id" validate:"required_if=Op select_rating,omitempty,max=64"`
}

// AssessmentDraftResponse describes the tray state. Entries use the presentation casing consumed
// by the tray components.
type AssessmentDraftResponse struct {
	ID             string             `json:"id"`
	RubricID       uint               `json:"rubric_id"`
	ArtifactID     string             `json:"artifact_id"`
	AssessmentType string             `json:"assessment_type"`
	Anonymous      bool               `json:"anonymous"`
	Entries        []rubric.ViewEntry `json:"entries"`
	Score          float64            `json:"score"`
	UpdatedAt      time.Time          `json:"updated_at"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

// AssessmentSubmitResponse is returned once the draft has been encoded and handed off.
type AssessmentSubmitResponse struct {
	AssessmentID   uint            `json:"assessment_id"`
	Score          float64         `json:"score"`
	DispatchStatus string          `json:"dispatch_status"`
	Payload        *rubric.Payload `json:"payload"`
}

// NewAssessmentDraftResponse converts a draft into its DTO.
func NewAssessmentDraftResponse(draft models.AssessmentDraft, score float64) AssessmentDraftResponse {
	return AssessmentDraftResponse{
		ID:             draft.ID,
		RubricID:       draft.RubricID,
		ArtifactID:     draft.ArtifactID,
		AssessmentType: draft.AssessmentType,
		Anonymous:      draft.Anonymous,
		Entries:        rubric.EntriesToView(rubric.EntriesFromWire(draft.Entries)),
		Score:          score,
		UpdatedAt:      draft.UpdatedAt,
		ExpiresAt:      draft.ExpiresAt,
	}
}
