package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/gema-rubric-api/internal/models"
)

// ErrDraftNotFound indicates the draft expired or never existed.
var ErrDraftNotFound = errors.New("assessment draft not found")

// DraftStore keeps open assessment drafts for the lifetime of the grading tray.
type DraftStore interface {
	Save(ctx context.Context, draft models.AssessmentDraft, ttl time.Duration) error
	Get(ctx context.Context, id string) (models.AssessmentDraft, error)
	FindID(ctx context.Context, rubricID uint, artifactID string, assessorID uint) (string, error)
	Delete(ctx context.Context, draft models.AssessmentDraft) error
}

type redisDraftStore struct {
	client *redis.Client
	prefix string
}

// NewRedisDraftStore builds a Redis backed draft store. Keys are namespaced under prefix.
func NewRedisDraftStore(client *redis.Client, prefix string) DraftStore {
	if prefix == "" {
		prefix = "gema:rubrics"
	}
	return &redisDraftStore{client: client, prefix: prefix}
}

func (s *redisDraftStore) draftKey(id string) string {
	return fmt.Sprintf("%s:draft:%s", s.prefix, id)
}

func (s *redisDraftStore) lookupKey(rubricID uint, artifactID string, assessorID uint) string {
	return fmt.Sprintf("%s:draft-index:%d:%s:%d", s.prefix, rubricID, artifactID, assessorID)
}

func (s *redisDraftStore) Save(ctx context.Context, draft models.AssessmentDraft, ttl time.Duration) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.draftKey(draft.ID), payload, ttl)
	pipe.Set(ctx, s.lookupKey(draft.RubricID, draft.ArtifactID, draft.AssessorID), draft.ID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	return nil
}

func (s *redisDraftStore) Get(ctx context.Context, id string) (models.AssessmentDraft, error) {
	raw, err := s.client.Get(ctx, s.draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.AssessmentDraft{}, ErrDraftNotFound
		}
		return models.AssessmentDraft{}, err
	}

	var draft models.AssessmentDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return models.AssessmentDraft{}, fmt.Errorf("decode draft: %w", err)
	}
	return draft, nil
}

func (s *redisDraftStore) FindID(ctx context.Context, rubricID uint, artifactID string, assessorID uint) (string, error) {
	id, err := s.client.Get(ctx, s.lookupKey(rubricID, artifactID, assessorID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrDraftNotFound
		}
		return "", err
	}
	return id, nil
}

func (s *redisDraftStore) Delete(ctx context.Context, draft models.AssessmentDraft) error {
	return s.client.Del(ctx,
		s.draftKey(draft.ID),
		s.lookupKey(draft.RubricID, draft.ArtifactID, draft.AssessorID),
	).Err()
}
