package rubric

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const wireRubricJSON = `{
	"id": "3",
	"title": "Essay rubric",
	"points_possible": 9,
	"free_form_criterion_comments": false,
	"hide_score_total": true,
	"criteria": [
		{
			"id": "12",
			"description": "Thesis",
			"points": 5,
			"criterion_use_range": false,
			"ignore_for_scoring": false,
			"ratings": [
				{"id": "r1", "points": 5, "description": "Exceeds", "mastery": true, "color": "#00ff00"},
				{"id": "r2", "points": 4, "description": "meets expectation", "mastery": false}
			]
		},
		{
			"id": "_4481",
			"description": "Organization",
			"long_description": "Paragraphs flow logically",
			"points": 4,
			"criterion_use_range": true,
			"ignore_for_scoring": false,
			"mastery_points": 3,
			"learning_outcome_id": "77",
			"outcome": {"id": "77", "display_name": "Clarity", "title": "Writes clearly"},
			"ratings": []
		}
	]
}`

func TestDecodeWireRubricCamelizesNestedRecords(t *testing.T) {
	decoded, err := DecodeWireRubric([]byte(wireRubricJSON))
	require.NoError(t, err)

	view, err := json.Marshal(ToView(decoded))
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(view, &generic))
	require.Equal(t, 9.0, generic["pointsPossible"])
	require.Equal(t, true, generic["hideScoreTotal"])

	criteria := generic["criteria"].([]any)
	require.Len(t, criteria, 2)

	first := criteria[0].(map[string]any)
	require.NotContains(t, first, "outcome")
	require.NotContains(t, first, "learningOutcomeId")
	require.NotContains(t, first, "longDescription")
	require.Len(t, first["ratings"], 2)
	require.Equal(t, "r1", first["ratings"].([]any)[0].(map[string]any)["id"])

	second := criteria[1].(map[string]any)
	require.Equal(t, "77", second["learningOutcomeId"])
	require.Equal(t, 3.0, second["masteryPoints"])
	require.Equal(t, "Clarity", second["outcome"].(map[string]any)["displayName"])
	require.Equal(t, []any{}, second["ratings"])
}

func TestWireViewRoundTripIsExact(t *testing.T) {
	decoded, err := DecodeWireRubric([]byte(wireRubricJSON))
	require.NoError(t, err)

	viewJSON, err := json.Marshal(ToView(decoded))
	require.NoError(t, err)

	var view ViewRubric
	require.NoError(t, json.Unmarshal(viewJSON, &view))

	wireJSON, err := EncodeWireRubric(FromView(view))
	require.NoError(t, err)
	require.JSONEq(t, wireRubricJSON, string(wireJSON))
}

func TestRoundTripAcrossCriteriaAndRatingCounts(t *testing.T) {
	for criteriaCount := 0; criteriaCount <= 3; criteriaCount++ {
		for ratingCount := 0; ratingCount <= 3; ratingCount++ {
			t.Run(fmt.Sprintf("criteria=%d/ratings=%d", criteriaCount, ratingCount), func(t *testing.T) {
				wire := WireRubric{ID: StringID("1"), Title: "Generated", Criteria: []WireCriterion{}}
				for c := 0; c < criteriaCount; c++ {
					criterion := WireCriterion{
						ID:          StringID(fmt.Sprintf("c%d", c)),
						Description: fmt.Sprintf("criterion %d", c),
						Points:      float64(ratingCount),
						Ratings:     []WireRating{},
					}
					if c%2 == 1 {
						outcomeID := NumericID(fmt.Sprintf("%d", 100+c))
						criterion.LearningOutcomeID = &outcomeID
						criterion.Outcome = &WireOutcome{ID: outcomeID, Title: "outcome"}
					}
					for r := 0; r < ratingCount; r++ {
						criterion.Ratings = append(criterion.Ratings, WireRating{
							ID:          StringID(fmt.Sprintf("c%d_r%d", c, r)),
							Points:      float64(ratingCount - r),
							Description: fmt.Sprintf("rating %d", r),
							Mastery:     r == 0,
						})
					}
					wire.Criteria = append(wire.Criteria, criterion)
				}

				roundTripped := ToWire(FromView(ToView(FromWire(wire))))
				if diff := cmp.Diff(wire, roundTripped); diff != "" {
					t.Fatalf("round trip changed the rubric (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestFromWireDoesNotAliasOptionalFields(t *testing.T) {
	long := "original"
	wire := WireRubric{Criteria: []WireCriterion{{ID: StringID("1"), LongDescription: &long, Ratings: []WireRating{}}}}

	canonical := FromWire(wire)
	long = "mutated"

	require.Equal(t, "original", *canonical.Criteria[0].LongDescription)
}

func TestFromWireNormalizesMissingArrays(t *testing.T) {
	canonical := FromWire(WireRubric{ID: StringID("1"), Criteria: []WireCriterion{{ID: StringID("a")}}})
	require.NotNil(t, canonical.Criteria[0].Ratings)
	require.Empty(t, canonical.Criteria[0].Ratings)

	empty := FromWire(WireRubric{ID: StringID("2")})
	require.NotNil(t, empty.Criteria)
	require.Empty(t, empty.Criteria)
}

func TestDecodeWireRubricAcceptsNumericIdentifiers(t *testing.T) {
	decoded, err := DecodeWireRubric([]byte(`{"id": 3, "criteria": [{"id": 12, "ratings": [{"id": 9, "points": 1}]}]}`))
	require.NoError(t, err)
	require.Equal(t, "3", decoded.ID)
	require.Equal(t, "12", decoded.Criteria[0].ID)
	require.Equal(t, "9", decoded.Criteria[0].Ratings[0].ID)
	require.True(t, decoded.NumericID)
	require.True(t, decoded.Criteria[0].Ratings[0].NumericID)
}

func TestNumericIdentifiersRoundTripExactly(t *testing.T) {
	const doc = `{
		"id": 3,
		"title": "Canvas export",
		"points_possible": 5,
		"free_form_criterion_comments": false,
		"hide_score_total": false,
		"criteria": [
			{
				"id": 12,
				"description": "Thesis",
				"points": 5,
				"criterion_use_range": false,
				"ignore_for_scoring": false,
				"learning_outcome_id": 77,
				"outcome": {"id": 77, "title": "Clarity"},
				"ratings": [
					{"id": 5, "points": 5, "description": "Full", "mastery": true},
					{"id": "blank", "points": 0, "description": "None", "mastery": false}
				]
			},
			{
				"id": "_4481",
				"description": "Organization",
				"points": 0,
				"criterion_use_range": false,
				"ignore_for_scoring": true,
				"ratings": []
			}
		]
	}`

	decoded, err := DecodeWireRubric([]byte(doc))
	require.NoError(t, err)

	viewJSON, err := json.Marshal(ToView(decoded))
	require.NoError(t, err)
	require.Contains(t, string(viewJSON), `"learningOutcomeId":77`)

	var view ViewRubric
	require.NoError(t, json.Unmarshal(viewJSON, &view))

	wireJSON, err := EncodeWireRubric(FromView(view))
	require.NoError(t, err)
	require.JSONEq(t, doc, string(wireJSON))
}

func TestDecodeWireRubricRejectsInvalidStructure(t *testing.T) {
	cases := map[string]string{
		"malformed":          `{"criteria": [}`,
		"missing id":         `{"criteria": [{"description": "x"}]}`,
		"duplicate id":       `{"criteria": [{"id": "a"}, {"id": "a"}]}`,
		"bracketed id":       `{"criteria": [{"id": "a]b"}]}`,
		"duplicate rating":   `{"criteria": [{"id": "a", "ratings": [{"id": "r"}, {"id": "r"}]}]}`,
		"boolean identifier": `{"criteria": [{"id": true}]}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeWireRubric([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestEntryMappingsRoundTrip(t *testing.T) {
	raw := `[
		{"criterion_id": "12", "points": 4, "comments": "good", "save_comment": true, "rating_id": "r2", "description": "meets expectation"},
		{"criterion_id": 13, "comments": "", "save_comment": false, "description": ""}
	]`

	entries, err := DecodeWireEntries([]byte(raw))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "13", entries[1].CriterionID)
	require.Nil(t, entries[1].Points)
	require.Nil(t, entries[1].RatingID)

	view := EntriesToView(entries)
	require.True(t, view[0].SaveCommentsForLater)
	require.Equal(t, StringID("r2"), *view[0].RatingID)

	require.Equal(t, EntriesToWire(entries), EntriesToWire(EntriesFromView(view)))

	rewired, err := EncodeWireEntries(entries)
	require.NoError(t, err)
	again, err := DecodeWireEntries(rewired)
	require.NoError(t, err)
	require.Equal(t, entries, again)

	encoded, err := json.Marshal(EntriesToView(entries[1:]))
	require.NoError(t, err)
	require.JSONEq(t, `[{"criterionId": 13, "comments": "", "saveCommentsForLater": false, "description": ""}]`, string(encoded))
	require.JSONEq(t, raw, string(rewired))
}
