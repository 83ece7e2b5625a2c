package rubric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreSkipsIgnoredAndBlankCriteria(t *testing.T) {
	r := sampleRubric()
	r.Criteria = append(r.Criteria, Criterion{ID: "bonus", Points: 10, IgnoreForScoring: true, Ratings: []Rating{}})

	entries := []Entry{
		{CriterionID: "12", Points: floatPtr(4)},
		{CriterionID: "_4481"},
		{CriterionID: "bonus", Points: floatPtr(10)},
	}

	require.Equal(t, 4.0, Score(r, entries))
	require.Equal(t, 9.0, PointsPossible(r))
}
