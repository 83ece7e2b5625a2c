package rubric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a record identifier in the wire and view shapes. Decoding accepts a JSON string or a
// JSON number and remembers which one it saw, so encoding writes the identifier back unchanged.
type ID struct {
	Value   string
	Numeric bool
}

// StringID returns an identifier that encodes as a JSON string.
func StringID(value string) ID { return ID{Value: value} }

// NumericID returns an identifier that encodes as a JSON number.
func NumericID(value string) ID { return ID{Value: value, Numeric: true} }

func (id ID) String() string { return id.Value }

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.Numeric && isJSONNumber(id.Value) {
		return []byte(id.Value), nil
	}
	return json.Marshal(id.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ID{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*id = StringID(value)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	if !isJSONNumber(number.String()) {
		return fmt.Errorf("identifier must be a string or number: %q", number.String())
	}
	*id = NumericID(number.String())
	return nil
}

func isJSONNumber(value string) bool {
	if value == "" {
		return false
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil && json.Valid([]byte(value))
}

// WireRubric is the underscored transport shape of a rubric.
type WireRubric struct {
	ID                        ID              `json:"id"`
	Title                     string          `json:"title"`
	PointsPossible            float64         `json:"points_possible"`
	FreeFormCriterionComments bool            `json:"free_form_criterion_comments"`
	HideScoreTotal            bool            `json:"hide_score_total"`
	Criteria                  []WireCriterion `json:"criteria"`
}

// WireCriterion is the underscored transport shape of a criterion.
type WireCriterion struct {
	ID                ID           `json:"id"`
	Description       string       `json:"description"`
	LongDescription   *string      `json:"long_description,omitempty"`
	Points            float64      `json:"points"`
	CriterionUseRange bool         `json:"criterion_use_range"`
	IgnoreForScoring  bool         `json:"ignore_for_scoring"`
	MasteryPoints     *float64     `json:"mastery_points,omitempty"`
	LearningOutcomeID *ID          `json:"learning_outcome_id,omitempty"`
	Outcome           *WireOutcome `json:"outcome,omitempty"`
	Ratings           []WireRating `json:"ratings"`
}

// WireRating is the underscored transport shape of a rating.
type WireRating struct {
	ID              ID      `json:"id"`
	Points          float64 `json:"points"`
	Description     string  `json:"description"`
	LongDescription *string `json:"long_description,omitempty"`
	Mastery         bool    `json:"mastery"`
	Color           *string `json:"color,omitempty"`
}

// WireOutcome is the underscored transport shape of an aligned outcome.
type WireOutcome struct {
	ID          ID      `json:"id"`
	DisplayName *string `json:"display_name,omitempty"`
	Title       string  `json:"title"`
}

// WireEntry is the underscored transport shape of an existing assessment entry.
type WireEntry struct {
	CriterionID ID       `json:"criterion_id"`
	Points      *float64 `json:"points,omitempty"`
	Comments    string   `json:"comments"`
	SaveComment bool     `json:"save_comment"`
	RatingID    *ID      `json:"rating_id,omitempty"`
	Description string   `json:"description"`
}

// ViewRubric is the camel-cased presentation shape of a rubric.
type ViewRubric struct {
	ID                        ID              `json:"id"`
	Title                     string          `json:"title"`
	PointsPossible            float64         `json:"pointsPossible"`
	FreeFormCriterionComments bool            `json:"freeFormCriterionComments"`
	HideScoreTotal            bool            `json:"hideScoreTotal"`
	Criteria                  []ViewCriterion `json:"criteria"`
}

// ViewCriterion is the camel-cased presentation shape of a criterion.
type ViewCriterion struct {
	ID                ID           `json:"id"`
	Description       string       `json:"description"`
	LongDescription   *string      `json:"longDescription,omitempty"`
	Points            float64      `json:"points"`
	CriterionUseRange bool         `json:"criterionUseRange"`
	IgnoreForScoring  bool         `json:"ignoreForScoring"`
	MasteryPoints     *float64     `json:"masteryPoints,omitempty"`
	LearningOutcomeID *ID          `json:"learningOutcomeId,omitempty"`
	Outcome           *ViewOutcome `json:"outcome,omitempty"`
	Ratings           []ViewRating `json:"ratings"`
}

// ViewRating is the camel-cased presentation shape of a rating.
type ViewRating struct {
	ID              ID      `json:"id"`
	Points          float64 `json:"points"`
	Description     string  `json:"description"`
	LongDescription *string `json:"longDescription,omitempty"`
	Mastery         bool    `json:"mastery"`
	Color           *string `json:"color,omitempty"`
}

// ViewOutcome is the camel-cased presentation shape of an aligned outcome.
type ViewOutcome struct {
	ID          ID      `json:"id"`
	DisplayName *string `json:"displayName,omitempty"`
	Title       string  `json:"title"`
}

// ViewEntry is the camel-cased presentation shape of an assessment entry.
type ViewEntry struct {
	CriterionID          ID       `json:"criterionId"`
	Points               *float64 `json:"points,omitempty"`
	Comments             string   `json:"comments"`
	SaveCommentsForLater bool     `json:"saveCommentsForLater"`
	RatingID             *ID      `json:"ratingId,omitempty"`
	Description          string   `json:"description"`
}

// DecodeWireRubric parses an underscored rubric document and validates it.
func DecodeWireRubric(data []byte) (Rubric, error) {
	var wire WireRubric
	if err := json.Unmarshal(data, &wire); err != nil {
		return Rubric{}, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}
	rubric := FromWire(wire)
	if err := rubric.Validate(); err != nil {
		return Rubric{}, err
	}
	return rubric, nil
}

// EncodeWireRubric renders a rubric in its underscored transport shape.
func EncodeWireRubric(r Rubric) ([]byte, error) {
	return json.Marshal(ToWire(r))
}

// DecodeWireEntries parses an underscored array of existing assessment entries.
func DecodeWireEntries(data []byte) ([]Entry, error) {
	var wire []WireEntry
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode assessment entries: %w", err)
	}
	return EntriesFromWire(wire), nil
}

// EncodeWireEntries renders assessment entries in their underscored transport shape.
func EncodeWireEntries(entries []Entry) ([]byte, error) {
	return json.Marshal(EntriesToWire(entries))
}

// FromWire maps the underscored shape into the canonical schema.
func FromWire(w WireRubric) Rubric {
	criteria := make([]Criterion, 0, len(w.Criteria))
	for _, wc := range w.Criteria {
		ratings := make([]Rating, 0, len(wc.Ratings))
		for _, wr := range wc.Ratings {
			ratings = append(ratings, Rating{
				ID:              wr.ID.Value,
				NumericID:       wr.ID.Numeric,
				Points:          wr.Points,
				Description:     wr.Description,
				LongDescription: cloneString(wr.LongDescription),
				Mastery:         wr.Mastery,
				Color:           cloneString(wr.Color),
			})
		}

		var outcome *Outcome
		if wc.Outcome != nil {
			outcome = &Outcome{
				ID:          wc.Outcome.ID.Value,
				NumericID:   wc.Outcome.ID.Numeric,
				DisplayName: cloneString(wc.Outcome.DisplayName),
				Title:       wc.Outcome.Title,
			}
		}

		outcomeID, numericOutcomeID := fromOptionalID(wc.LearningOutcomeID)
		criteria = append(criteria, Criterion{
			ID:                       wc.ID.Value,
			NumericID:                wc.ID.Numeric,
			Description:              wc.Description,
			LongDescription:          cloneString(wc.LongDescription),
			Points:                   wc.Points,
			CriterionUseRange:        wc.CriterionUseRange,
			IgnoreForScoring:         wc.IgnoreForScoring,
			MasteryPoints:            cloneFloat(wc.MasteryPoints),
			LearningOutcomeID:        outcomeID,
			NumericLearningOutcomeID: numericOutcomeID,
			Outcome:                  outcome,
			Ratings:                  ratings,
		})
	}

	return Rubric{
		ID:                        w.ID.Value,
		NumericID:                 w.ID.Numeric,
		Title:                     w.Title,
		PointsPossible:            w.PointsPossible,
		FreeFormCriterionComments: w.FreeFormCriterionComments,
		HideScoreTotal:            w.HideScoreTotal,
		Criteria:                  criteria,
	}
}

// ToWire maps the canonical schema into the underscored shape.
func ToWire(r Rubric) WireRubric {
	criteria := make([]WireCriterion, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		ratings := make([]WireRating, 0, len(c.Ratings))
		for _, rating := range c.Ratings {
			ratings = append(ratings, WireRating{
				ID:              ID{Value: rating.ID, Numeric: rating.NumericID},
				Points:          rating.Points,
				Description:     rating.Description,
				LongDescription: cloneString(rating.LongDescription),
				Mastery:         rating.Mastery,
				Color:           cloneString(rating.Color),
			})
		}

		var outcome *WireOutcome
		if c.Outcome != nil {
			outcome = &WireOutcome{
				ID:          ID{Value: c.Outcome.ID, Numeric: c.Outcome.NumericID},
				DisplayName: cloneString(c.Outcome.DisplayName),
				Title:       c.Outcome.Title,
			}
		}

		criteria = append(criteria, WireCriterion{
			ID:                ID{Value: c.ID, Numeric: c.NumericID},
			Description:       c.Description,
			LongDescription:   cloneString(c.LongDescription),
			Points:            c.Points,
			CriterionUseRange: c.CriterionUseRange,
			IgnoreForScoring:  c.IgnoreForScoring,
			MasteryPoints:     cloneFloat(c.MasteryPoints),
			LearningOutcomeID: toOptionalID(c.LearningOutcomeID, c.NumericLearningOutcomeID),
			Outcome:           outcome,
			Ratings:           ratings,
		})
	}

	return WireRubric{
		ID:                        ID{Value: r.ID, Numeric: r.NumericID},
		Title:                     r.Title,
		PointsPossible:            r.PointsPossible,
		FreeFormCriterionComments: r.FreeFormCriterionComments,
		HideScoreTotal:            r.HideScoreTotal,
		Criteria:                  criteria,
	}
}

// ToView maps the canonical schema into the camel-cased presentation shape.
func ToView(r Rubric) ViewRubric {
	criteria := make([]ViewCriterion, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		ratings := make([]ViewRating, 0, len(c.Ratings))
		for _, rating := range c.Ratings {
			ratings = append(ratings, ViewRating{
				ID:              ID{Value: rating.ID, Numeric: rating.NumericID},
				Points:          rating.Points,
				Description:     rating.Description,
				LongDescription: cloneString(rating.LongDescription),
				Mastery:         rating.Mastery,
				Color:           cloneString(rating.Color),
			})
		}

		var outcome *ViewOutcome
		if c.Outcome != nil {
			outcome = &ViewOutcome{
				ID:          ID{Value: c.Outcome.ID, Numeric: c.Outcome.NumericID},
				DisplayName: cloneString(c.Outcome.DisplayName),
				Title:       c.Outcome.Title,
			}
		}

		criteria = append(criteria, ViewCriterion{
			ID:                ID{Value: c.ID, Numeric: c.NumericID},
			Description:       c.Description,
			LongDescription:   cloneString(c.LongDescription),
			Points:            c.Points,
			CriterionUseRange: c.CriterionUseRange,
			IgnoreForScoring:  c.IgnoreForScoring,
			MasteryPoints:     cloneFloat(c.MasteryPoints),
			LearningOutcomeID: toOptionalID(c.LearningOutcomeID, c.NumericLearningOutcomeID),
			Outcome:           outcome,
			Ratings:           ratings,
		})
	}

	return ViewRubric{
		ID:                        ID{Value: r.ID, Numeric: r.NumericID},
		Title:                     r.Title,
		PointsPossible:            r.PointsPossible,
		FreeFormCriterionComments: r.FreeFormCriterionComments,
		HideScoreTotal:            r.HideScoreTotal,
		Criteria:                  criteria,
	}
}

// FromView maps the camel-cased presentation shape back into the canonical schema.
func FromView(v ViewRubric) Rubric {
	criteria := make([]Criterion, 0, len(v.Criteria))
	for _, vc := range v.Criteria {
		ratings := make([]Rating, 0, len(vc.Ratings))
		for _, vr := range vc.Ratings {
			ratings = append(ratings, Rating{
				ID:              vr.ID.Value,
				NumericID:       vr.ID.Numeric,
				Points:          vr.Points,
				Description:     vr.Description,
				LongDescription: cloneString(vr.LongDescription),
				Mastery:         vr.Mastery,
				Color:           cloneString(vr.Color),
			})
		}

		var outcome *Outcome
		if vc.Outcome != nil {
			outcome = &Outcome{
				ID:          vc.Outcome.ID.Value,
				NumericID:   vc.Outcome.ID.Numeric,
				DisplayName: cloneString(vc.Outcome.DisplayName),
				Title:       vc.Outcome.Title,
			}
		}

		outcomeID, numericOutcomeID := fromOptionalID(vc.LearningOutcomeID)
		criteria = append(criteria, Criterion{
			ID:                       vc.ID.Value,
			NumericID:                vc.ID.Numeric,
			Description:              vc.Description,
			LongDescription:          cloneString(vc.LongDescription),
			Points:                   vc.Points,
			CriterionUseRange:        vc.CriterionUseRange,
			IgnoreForScoring:         vc.IgnoreForScoring,
			MasteryPoints:            cloneFloat(vc.MasteryPoints),
			LearningOutcomeID:        outcomeID,
			NumericLearningOutcomeID: numericOutcomeID,
			Outcome:                  outcome,
			Ratings:                  ratings,
		})
	}

	return Rubric{
		ID:                        v.ID.Value,
		NumericID:                 v.ID.Numeric,
		Title:                     v.Title,
		PointsPossible:            v.PointsPossible,
		FreeFormCriterionComments: v.FreeFormCriterionComments,
		HideScoreTotal:            v.HideScoreTotal,
		Criteria:                  criteria,
	}
}

// EntriesFromWire maps underscored entries into the canonical schema.
func EntriesFromWire(wire []WireEntry) []Entry {
	entries := make([]Entry, 0, len(wire))
	for _, w := range wire {
		ratingID, numericRatingID := fromOptionalID(w.RatingID)
		entries = append(entries, Entry{
			CriterionID:          w.CriterionID.Value,
			NumericCriterionID:   w.CriterionID.Numeric,
			Points:               cloneFloat(w.Points),
			Comments:             w.Comments,
			SaveCommentsForLater: w.SaveComment,
			RatingID:             ratingID,
			NumericRatingID:      numericRatingID,
			Description:          w.Description,
		})
	}
	return entries
}

// EntriesToWire maps canonical entries into the underscored shape.
func EntriesToWire(entries []Entry) []WireEntry {
	wire := make([]WireEntry, 0, len(entries))
	for _, e := range entries {
		wire = append(wire, WireEntry{
			CriterionID: ID{Value: e.CriterionID, Numeric: e.NumericCriterionID},
			Points:      cloneFloat(e.Points),
			Comments:    e.Comments,
			SaveComment: e.SaveCommentsForLater,
			RatingID:    toOptionalID(e.RatingID, e.NumericRatingID),
			Description: e.Description,
		})
	}
	return wire
}

// EntriesToView maps canonical entries into the camel-cased shape.
func EntriesToView(entries []Entry) []ViewEntry {
	view := make([]ViewEntry, 0, len(entries))
	for _, e := range entries {
		view = append(view, ViewEntry{
			CriterionID:          ID{Value: e.CriterionID, Numeric: e.NumericCriterionID},
			Points:               cloneFloat(e.Points),
			Comments:             e.Comments,
			SaveCommentsForLater: e.SaveCommentsForLater,
			RatingID:             toOptionalID(e.RatingID, e.NumericRatingID),
			Description:          e.Description,
		})
	}
	return view
}

// EntriesFromView maps camel-cased entries into the canonical schema.
func EntriesFromView(view []ViewEntry) []Entry {
	entries := make([]Entry, 0, len(view))
	for _, v := range view {
		ratingID, numericRatingID := fromOptionalID(v.RatingID)
		entries = append(entries, Entry{
			CriterionID:          v.CriterionID.Value,
			NumericCriterionID:   v.CriterionID.Numeric,
			Points:               cloneFloat(v.Points),
			Comments:             v.Comments,
			SaveCommentsForLater: v.SaveCommentsForLater,
			RatingID:             ratingID,
			NumericRatingID:      numericRatingID,
			Description:          v.Description,
		})
	}
	return entries
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func fromOptionalID(value *ID) (*string, bool) {
	if value == nil {
		return nil, false
	}
	copied := value.Value
	return &copied, value.Numeric
}

func toOptionalID(value *string, numeric bool) *ID {
	if value == nil {
		return nil
	}
	return &ID{Value: *value, Numeric: numeric}
}
