// Package rubric holds the canonical rubric schema together with the pieces that move grader
// input from the assessment tray to the legacy grading endpoint: boundary mappings between the
// underscored wire shape and the camel-cased view shape, the per-criterion collector, and the
// bracketed key-path encoder.
package rubric

import (
	"fmt"
	"strings"
)

// Rubric is the canonical representation of a scoring rubric. The Numeric* flags throughout the
// schema record identifiers that arrived as JSON numbers so they are written back the same way.
type Rubric struct {
	ID                        string
	NumericID                 bool
	Title                     string
	PointsPossible            float64
	FreeFormCriterionComments bool
	HideScoreTotal            bool
	Criteria                  []Criterion
}

// Criterion is one scorable row of a rubric.
type Criterion struct {
	ID                       string
	NumericID                bool
	Description              string
	LongDescription          *string
	Points                   float64
	CriterionUseRange        bool
	IgnoreForScoring         bool
	MasteryPoints            *float64
	LearningOutcomeID        *string
	NumericLearningOutcomeID bool
	Outcome                  *Outcome
	Ratings                  []Rating
}

// Rating is one discrete point option within a criterion's scale.
type Rating struct {
	ID              string
	NumericID       bool
	Points          float64
	Description     string
	LongDescription *string
	Mastery         bool
	Color           *string
}

// Outcome describes the learning outcome aligned to a criterion.
type Outcome struct {
	ID          string
	NumericID   bool
	DisplayName *string
	Title       string
}

// Entry is a grader's in-progress assessment of a single criterion.
type Entry struct {
	CriterionID          string
	NumericCriterionID   bool
	Points               *float64
	Comments             string
	SaveCommentsForLater bool
	RatingID             *string
	NumericRatingID      bool
	Description          string
}

// Criterion returns the criterion with the given id.
func (r Rubric) Criterion(id string) (Criterion, bool) {
	for _, criterion := range r.Criteria {
		if criterion.ID == id {
			return criterion, true
		}
	}
	return Criterion{}, false
}

// Rating returns the rating with the given id.
func (c Criterion) Rating(id string) (Rating, bool) {
	for _, rating := range c.Ratings {
		if rating.ID == id {
			return rating, true
		}
	}
	return Rating{}, false
}

// Validate checks that criterion and rating ids are present, unique and usable inside a key-path.
func (r Rubric) Validate() error {
	seen := make(map[string]struct{}, len(r.Criteria))
	for idx, criterion := range r.Criteria {
		if err := checkIdentifier(criterion.ID); err != nil {
			return fmt.Errorf("%w: criteria[%d]: %v", ErrInvalidRubric, idx, err)
		}
		if _, dup := seen[criterion.ID]; dup {
			return fmt.Errorf("%w: duplicate criterion id %q", ErrInvalidRubric, criterion.ID)
		}
		seen[criterion.ID] = struct{}{}

		ratings := make(map[string]struct{}, len(criterion.Ratings))
		for ratingIdx, rating := range criterion.Ratings {
			if err := checkIdentifier(rating.ID); err != nil {
				return fmt.Errorf("%w: criteria[%d].ratings[%d]: %v", ErrInvalidRubric, idx, ratingIdx, err)
			}
			if _, dup := ratings[rating.ID]; dup {
				return fmt.Errorf("%w: duplicate rating id %q in criterion %q", ErrInvalidRubric, rating.ID, criterion.ID)
			}
			ratings[rating.ID] = struct{}{}
		}
	}
	return nil
}

func checkIdentifier(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.ContainsAny(id, "[]") {
		return fmt.Errorf("id %q must not contain brackets", id)
	}
	return nil
}

func (e Entry) clone() Entry {
	out := e
	if e.Points != nil {
		points := *e.Points
		out.Points = &points
	}
	if e.RatingID != nil {
		ratingID := *e.RatingID
		out.RatingID = &ratingID
	}
	return out
}
