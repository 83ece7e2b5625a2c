package rubric

import "errors"

var (
	// ErrInvalidRubric indicates the rubric structure cannot be used for assessment.
	ErrInvalidRubric = errors.New("invalid rubric")
	// ErrUnknownCriterion indicates an entry references a criterion absent from the rubric.
	ErrUnknownCriterion = errors.New("unknown criterion")
	// ErrUnknownRating indicates a selected rating does not belong to the criterion.
	ErrUnknownRating = errors.New("unknown rating")
	// ErrDuplicateEntry indicates more than one entry was supplied for the same criterion.
	ErrDuplicateEntry = errors.New("duplicate criterion entry")
	// ErrMissingIdentity indicates neither a user id nor an anonymous id is available.
	ErrMissingIdentity = errors.New("assessment identity missing")
	// ErrMissingAssessmentType indicates the assessment type was not provided.
	ErrMissingAssessmentType = errors.New("assessment type missing")
)
