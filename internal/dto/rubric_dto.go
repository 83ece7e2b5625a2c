package dto

import (
	"time"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// Rubric response formats.
const (
	RubricFormatWire = "wire"
	RubricFormatView = "view"
)

// RubricSummary lists a rubric without its criteria.
type RubricSummary struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	PointsPossible float64   `json:"points_possible"`
	CriteriaCount  int       `json:"criteria_count"`
	CreatedBy      uint      `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// RubricListResponse wraps paginated rubric summaries.
type RubricListResponse struct {
	Items      []RubricSummary `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// NewRubricSummary converts a rubric model into its summary DTO.
func NewRubricSummary(model models.Rubric) RubricSummary {
	return RubricSummary{
		ID:             model.ID,
		Title:          model.Title,
		PointsPossible: model.PointsPossible,
		CriteriaCount:  model.CriteriaCount,
		CreatedBy:      model.CreatedBy,
		CreatedAt:      model.CreatedAt,
	}
}
