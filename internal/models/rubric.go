package models

import (
	"time"

	"gorm.io/datatypes"
)

// Rubric stores a scoring rubric. Criteria are kept in their underscored transport shape.
type Rubric struct {
	ID                        uint           `gorm:"primaryKey" json:"id"`
	Title                     string         `gorm:"size:255;not null" json:"title"`
	PointsPossible            float64        `gorm:"not null;default:0" json:"points_possible"`
	FreeFormCriterionComments bool           `gorm:"not null;default:false" json:"free_form_criterion_comments"`
	HideScoreTotal            bool           `gorm:"not null;default:false" json:"hide_score_total"`
	Criteria                  datatypes.JSON `gorm:"type:json;not null" json:"criteria"`
	CriteriaCount             int            `gorm:"not null;default:0" json:"criteria_count"`
	CreatedBy                 uint           `gorm:"not null;default:0" json:"created_by"`
	CreatedAt                 time.Time      `json:"created_at"`
	UpdatedAt                 time.Time      `json:"updated_at"`
}
