package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

func TestRubricAssessmentRepositoryLatestAndStatus(t *testing.T) {
	db := setupRubricTestDB(t)
	rubrics := NewRubricRepository(db)
	repo := NewRubricAssessmentRepository(db)
	ctx := context.Background()

	rubric := models.Rubric{Title: "Essay", Criteria: datatypes.JSON(`[]`)}
	require.NoError(t, rubrics.Create(ctx, &rubric))

	missing, err := repo.Latest(ctx, rubric.ID, "artifact-1", 7)
	require.NoError(t, err)
	require.Nil(t, missing)

	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for i, score := range []float64{3, 8} {
		record := models.RubricAssessment{
			RubricID:       rubric.ID,
			ArtifactID:     "artifact-1",
			AssessorID:     7,
			AssessmentType: "grading",
			Score:          score,
			Entries:        datatypes.JSON(`[]`),
			Payload:        datatypes.JSON(`{}`),
			DispatchStatus: models.DispatchStatusSent,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, &record))
	}
	other := models.RubricAssessment{
		RubricID: rubric.ID, ArtifactID: "artifact-1", AssessorID: 8, AssessmentType: "peer_review",
		Score: 1, Entries: datatypes.JSON(`[]`), Payload: datatypes.JSON(`{}`),
		DispatchStatus: models.DispatchStatusSkipped, CreatedAt: base.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, &other))

	latest, err := repo.Latest(ctx, rubric.ID, "artifact-1", 7)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, 8.0, latest.Score)

	require.NoError(t, repo.UpdateDispatchStatus(ctx, latest.ID, models.DispatchStatusFailed))
	reloaded, err := repo.Latest(ctx, rubric.ID, "artifact-1", 7)
	require.NoError(t, err)
	require.Equal(t, models.DispatchStatusFailed, reloaded.DispatchStatus)
}
