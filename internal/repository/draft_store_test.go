package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

func newTestDraftStore(t *testing.T) (DraftStore, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisDraftStore(client, "test"), mini
}

func TestRedisDraftStoreLifecycle(t *testing.T) {
	store, mini := newTestDraftStore(t)
	ctx := context.Background()

	points := 4.0
	draft := models.AssessmentDraft{
		ID:             "d1",
		RubricID:       3,
		ArtifactID:     "sub-9",
		AssessorID:     7,
		AssessmentType: "grading",
		Entries:        []rubric.WireEntry{{CriterionID: rubric.StringID("12"), Points: &points, Comments: "good"}},
	}

	require.NoError(t, store.Save(ctx, draft, time.Minute))

	loaded, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "sub-9", loaded.ArtifactID)
	require.Len(t, loaded.Entries, 1)
	require.Equal(t, 4.0, *loaded.Entries[0].Points)

	id, err := store.FindID(ctx, 3, "sub-9", 7)
	require.NoError(t, err)
	require.Equal(t, "d1", id)

	require.NoError(t, store.Delete(ctx, draft))
	_, err = store.Get(ctx, "d1")
	require.ErrorIs(t, err, ErrDraftNotFound)
	_, err = store.FindID(ctx, 3, "sub-9", 7)
	require.ErrorIs(t, err, ErrDraftNotFound)

	require.NoError(t, store.Save(ctx, draft, time.Minute))
	mini.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "d1")
	require.ErrorIs(t, err, ErrDraftNotFound)
}
