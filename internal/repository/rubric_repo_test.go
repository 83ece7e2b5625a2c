package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

func setupRubricTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Rubric{}, &models.RubricAssessment{}, &models.ActivityLog{}))
	return db
}

func TestRubricRepositoryCreateGetAndList(t *testing.T) {
	db := setupRubricTestDB(t)
	repo := NewRubricRepository(db)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rubric := models.Rubric{
			Title:    fmt.Sprintf("Rubric %d", i),
			Criteria: datatypes.JSON(`[]`),
		}
		require.NoError(t, repo.Create(ctx, &rubric))
		require.NotZero(t, rubric.ID)
	}

	loaded, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Rubric 2", loaded.Title)

	_, err = repo.GetByID(ctx, 99)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	items, total, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	require.Equal(t, "Rubric 3", items[0].Title)
}

func TestRubricAssessmentRepositoryLatest(t *testing.T) {
	db := setupRubricTestDB(t)
	rubrics := NewRubricRepository(db)
	repo := NewRubricAssessmentRepository(db)
	ctx := context.Background()

	rubric := models.Rubric{Title: "Essay", Criteria: datatypes.JSON(`[]`)}
	require.NoError(t, rubrics.Create(ctx, &rubric))

	none, err := repo.Latest(ctx, rubric.ID, "sub-1", 7)
	require.NoError(t, err)
	require.Nil(t, none)

	for _, score := range []float64{3, 5} {
		assessment := models.RubricAssessment{
			RubricID:       rubric.ID,
			ArtifactID:     "sub-1",
			AssessorID:     7,
			AssessmentType: "grading",
			Score:          score,
			Entries:        datatypes.JSON(`[]`),
			Payload:        datatypes.JSON(`{}`),
			DispatchStatus: models.DispatchStatusSkipped,
		}
		require.NoError(t, repo.Create(ctx, &assessment))
	}

	latest, err := repo.Latest(ctx, rubric.ID, "sub-1", 7)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, 5.0, latest.Score)

	require.NoError(t, repo.UpdateDispatchStatus(ctx, latest.ID, models.DispatchStatusSent))
	latest, err = repo.Latest(ctx, rubric.ID, "sub-1", 7)
	require.NoError(t, err)
	require.Equal(t, models.DispatchStatusSent, latest.DispatchStatus)
}
