package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// RubricAssessmentRepository persists submitted assessments.
type RubricAssessmentRepository interface {
	Create(ctx context.Context, assessment *models.RubricAssessment) error
	UpdateDispatchStatus(ctx context.Context, id uint, status string) error
	Latest(ctx context.Context, rubricID uint, artifactID string, assessorID uint) (*models.RubricAssessment, error)
}

type rubricAssessmentRepository struct {
	db *gorm.DB
}

// NewRubricAssessmentRepository constructs the submitted assessment repository.
func NewRubricAssessmentRepository(db *gorm.DB) RubricAssessmentRepository {
	return &rubricAssessmentRepository{db: db}
}

func (r *rubricAssessmentRepository) Create(ctx context.Context, assessment *models.RubricAssessment) error {
	return r.db.WithContext(ctx).Omit("Rubric").Create(assessment).Error
}

func (r *rubricAssessmentRepository) UpdateDispatchStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.RubricAssessment{}).
		Where("id = ?", id).
		Update("dispatch_status", status).Error
}

// Latest returns the most recent assessment for the artifact by the assessor, or nil when none exists.
func (r *rubricAssessmentRepository) Latest(ctx context.Context, rubricID uint, artifactID string, assessorID uint) (*models.RubricAssessment, error) {
	var assessment models.RubricAssessment
	err := r.db.WithContext(ctx).
		Where("rubric_id = ? AND artifact_id = ? AND assessor_id = ?", rubricID, artifactID, assessorID).
		Order("created_at DESC").
		Order("id DESC").
		First(&assessment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assessment, nil
}
