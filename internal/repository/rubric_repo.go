package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// RubricRepository persists rubrics.
type RubricRepository interface {
	Create(ctx context.Context, rubric *models.Rubric) error
	GetByID(ctx context.Context, id uint) (models.Rubric, error)
	List(ctx context.Context, page, pageSize int) ([]models.Rubric, int64, error)
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository constructs a gorm backed rubric repository.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.db.WithContext(ctx).Create(rubric).Error
}

func (r *rubricRepository) GetByID(ctx context.Context, id uint) (models.Rubric, error) {
	var rubric models.Rubric
	if err := r.db.WithContext(ctx).First(&rubric, id).Error; err != nil {
		return models.Rubric{}, err
	}
	return rubric, nil
}

func (r *rubricRepository) List(ctx context.Context, page, pageSize int) ([]models.Rubric, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Rubric{})

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > 0 {
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var rubrics []models.Rubric
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rubrics).Error; err != nil {
		return nil, 0, err
	}

	return rubrics, total, nil
}
