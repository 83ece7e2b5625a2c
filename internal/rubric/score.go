package rubric

// Score sums the points of entries whose criterion counts toward the total. Entries without
// points and criteria marked ignore-for-scoring contribute nothing.
func Score(r Rubric, entries []Entry) float64 {
	var total float64
	for _, entry := range entries {
		if entry.Points == nil {
			continue
		}
		criterion, ok := r.Criterion(entry.CriterionID)
		if !ok || criterion.IgnoreForScoring {
			continue
		}
		total += *entry.Points
	}
	return total
}

// PointsPossible sums the criterion points that count toward the total.
func PointsPossible(r Rubric) float64 {
	var total float64
	for _, criterion := range r.Criteria {
		if criterion.IgnoreForScoring {
			continue
		}
		total += criterion.Points
	}
	return total
}
