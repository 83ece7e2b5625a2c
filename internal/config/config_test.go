package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "GEMA Rubric API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 2*time.Hour, cfg.DraftTTL)
	require.Equal(t, "PUT", cfg.LegacyAssessmentVerb)
	require.Equal(t, 20, cfg.SubmitRateLimit)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_DATABASE_DRIVER", "SQLite")
	t.Setenv("GEMA_ASSESSMENT_DRAFT_TTL", "45m")
	t.Setenv("GEMA_LEGACY_ASSESSMENT_URL", " https://lms.test/rubric_assessments ")
	t.Setenv("GEMA_LEGACY_ASSESSMENT_VERB", "post")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, 45*time.Minute, cfg.DraftTTL)
	require.Equal(t, "https://lms.test/rubric_assessments", cfg.LegacyAssessmentURL)
	require.Equal(t, "POST", cfg.LegacyAssessmentVerb)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_ASSESSMENT_DRAFT_TTL", "soon")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("GEMA_ASSESSMENT_DRAFT_TTL", "1h")
	t.Setenv("GEMA_LEGACY_ASSESSMENT_VERB", "DELETE")
	_, err = Load()
	require.Error(t, err)
}
