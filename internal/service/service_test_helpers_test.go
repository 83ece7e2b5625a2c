package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/models"
)

type recordingActivity struct {
	entries []ActivityEntry
}

func (r *recordingActivity) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	r.entries = append(r.entries, entry)
	return dto.ActivityResponse{Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID}, nil
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Rubric{}, &models.RubricAssessment{}, &models.ActivityLog{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

const essayRubricDocument = `{
  "id": 3,
  "title": "Essay rubric",
  "points_possible": 0,
  "free_form_criterion_comments": false,
  "hide_score_total": false,
  "criteria": [
    {
      "id": "12",
      "description": "Thesis",
      "points": 5,
      "criterion_use_range": false,
      "ignore_for_scoring": false,
      "ratings": [
        {"id": "r1", "points": 5, "description": "Exceeds", "mastery": true},
        {"id": "r2", "points": 4, "description": "meets expectation", "mastery": false},
        {"id": "r3", "points": 0, "description": "No marks", "mastery": false}
      ]
    },
    {
      "id": "_4481",
      "description": "Organization",
      "points": 4,
      "criterion_use_range": true,
      "ignore_for_scoring": false,
      "learning_outcome_id": 77,
      "outcome": {"id": 77, "title": "Writes clearly"},
      "ratings": [
        {"id": "o1", "points": 4, "description": "Full marks", "mastery": false},
        {"id": "o2", "points": 0, "description": "No marks", "mastery": false}
      ]
    }
  ]
}`
