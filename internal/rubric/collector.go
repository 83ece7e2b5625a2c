package rubric

import (
	"fmt"
	"sync"
)

// Collector holds the in-progress per-criterion entries for one assessment tray.
//
// Entries are kept in first-interaction order and indexed by criterion id, so editing a criterion
// again replaces its entry in place.
type Collector struct {
	mu      sync.RWMutex
	rubric  Rubric
	entries []Entry
	index   map[string]int
}

// NewCollector builds a collector for the rubric, seeded with previously saved entries.
func NewCollector(r Rubric, existing ...Entry) (*Collector, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	c := &Collector{
		rubric:  r,
		entries: make([]Entry, 0, len(existing)),
		index:   make(map[string]int, len(existing)),
	}

	for _, entry := range existing {
		criterion, ok := r.Criterion(entry.CriterionID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCriterion, entry.CriterionID)
		}
		if entry.RatingID != nil {
			if _, ok := criterion.Rating(*entry.RatingID); !ok {
				return nil, fmt.Errorf("%w: %q in criterion %q", ErrUnknownRating, *entry.RatingID, entry.CriterionID)
			}
		}
		if _, dup := c.index[entry.CriterionID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntry, entry.CriterionID)
		}
		c.index[entry.CriterionID] = len(c.entries)
		c.entries = append(c.entries, entry.clone())
	}

	return c, nil
}

// Rubric returns the rubric the collector was built for.
func (c *Collector) Rubric() Rubric {
	return c.rubric
}

// SetPoints records a free-form score for the criterion and clears any selected rating.
func (c *Collector) SetPoints(criterionID string, points float64) error {
	return c.update(criterionID, func(_ Criterion, e *Entry) error {
		e.Points = &points
		e.RatingID = nil
		e.NumericRatingID = false
		return nil
	})
}

// ClearPoints removes the score for the criterion.
func (c *Collector) ClearPoints(criterionID string) error {
	return c.update(criterionID, func(_ Criterion, e *Entry) error {
		e.Points = nil
		e.RatingID = nil
		e.NumericRatingID = false
		return nil
	})
}

// SetComment replaces the free-text comment for the criterion.
func (c *Collector) SetComment(criterionID, comment string) error {
	return c.update(criterionID, func(_ Criterion, e *Entry) error {
		e.Comments = comment
		return nil
	})
}

// ToggleSaveComment flips the "save comment for later" flag and returns the new value.
func (c *Collector) ToggleSaveComment(criterionID string) (bool, error) {
	var saved bool
	err := c.update(criterionID, func(_ Criterion, e *Entry) error {
		e.SaveCommentsForLater = !e.SaveCommentsForLater
		saved = e.SaveCommentsForLater
		return nil
	})
	return saved, err
}

// SelectRating selects one of the criterion's ratings, copying its points and description.
func (c *Collector) SelectRating(criterionID, ratingID string) error {
	return c.update(criterionID, func(criterion Criterion, e *Entry) error {
		rating, ok := criterion.Rating(ratingID)
		if !ok {
			return fmt.Errorf("%w: %q in criterion %q", ErrUnknownRating, ratingID, criterionID)
		}
		points := rating.Points
		id := rating.ID
		e.Points = &points
		e.RatingID = &id
		e.NumericRatingID = rating.NumericID
		e.Description = rating.Description
		return nil
	})
}

// Entry returns the entry for the criterion, if the grader has interacted with it.
func (c *Collector) Entry(criterionID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.index[criterionID]
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx].clone(), true
}

// Len reports the number of criteria with an entry.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a deep copy of the entries. Later edits do not affect the returned slice.
func (c *Collector) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry.clone())
	}
	return out
}

func (c *Collector) update(criterionID string, apply func(Criterion, *Entry) error) error {
	criterion, ok := c.rubric.Criterion(criterionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCriterion, criterionID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, exists := c.index[criterionID]
	entry := Entry{CriterionID: criterionID, NumericCriterionID: criterion.NumericID}
	if exists {
		entry = c.entries[idx].clone()
	}

	if err := apply(criterion, &entry); err != nil {
		return err
	}

	if exists {
		c.entries[idx] = entry
		return nil
	}
	c.index[criterionID] = len(c.entries)
	c.entries = append(c.entries, entry)
	return nil
}
