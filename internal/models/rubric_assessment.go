package models

import (
	"time"

	"gorm.io/datatypes"
)

// RubricAssessment records a submitted assessment together with the payload sent upstream.
type RubricAssessment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	RubricID       uint           `gorm:"not null;index:idx_rubric_assessment_lookup,priority:1" json:"rubric_id"`
	ArtifactID     string         `gorm:"size:64;not null;index:idx_rubric_assessment_lookup,priority:2" json:"artifact_id"`
	AssessorID     uint           `gorm:"not null;index:idx_rubric_assessment_lookup,priority:3" json:"assessor_id"`
	AnonymousID    string         `gorm:"size:64" json:"anonymous_id"`
	AssessmentType string         `gorm:"size:32;not null" json:"assessment_type"`
	Score          float64        `gorm:"not null;default:0" json:"score"`
	Entries        datatypes.JSON `gorm:"type:json;not null" json:"entries"`
	Payload        datatypes.JSON `gorm:"type:json;not null" json:"payload"`
	DispatchStatus string         `gorm:"size:32;not null" json:"dispatch_status"`
	Rubric         Rubric         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
}

const (
	// DispatchStatusPending indicates the assessment is stored and the payload is being delivered.
	DispatchStatusPending = "pending"
	// DispatchStatusSent indicates the payload was accepted by the legacy endpoint.
	DispatchStatusSent = "sent"
	// DispatchStatusSkipped indicates no legacy endpoint is configured.
	DispatchStatusSkipped = "skipped"
	// DispatchStatusFailed indicates the legacy endpoint rejected or never received the payload.
	DispatchStatusFailed = "failed"
)
