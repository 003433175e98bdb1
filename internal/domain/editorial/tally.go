package editorial

// ReviewTally aggregates completed reviews for decision support.
type ReviewTally struct {
	Completed       int
	Outstanding     int
	Recommendations map[Recommendation]int
	MeanRelevance   float64
	MeanNovelty     float64
	MeanMethodology float64
}

// Complete is false while any invited reviewer has not declined or finished.
func (t ReviewTally) Complete() bool {
	return t.Outstanding == 0 && t.Completed > 0
}

// Tally counts outstanding (pending/accepted) assignments and averages completed reviews.
// Declined assignments are ignored; only reviews of completed assignments are counted.
func Tally(assignments []Assignment, reviews []Review) ReviewTally {
	tally := ReviewTally{Recommendations: make(map[Recommendation]int, 4)}

	completed := make(map[uint64]struct{}, len(assignments))
	for _, a := range assignments {
		switch {
		case a.Status.Active():
			tally.Outstanding++
		case a.Status == AssignmentCompleted:
			completed[a.ID] = struct{}{}
		}
	}

	var relevance, novelty, methodology int
	for _, r := range reviews {
		if _, ok := completed[r.AssignmentID]; !ok {
			continue
		}
		tally.Completed++
		tally.Recommendations[r.Recommendation]++
		relevance += r.Scores.Relevance
		novelty += r.Scores.Novelty
		methodology += r.Scores.Methodology
	}

	if tally.Completed > 0 {
		n := float64(tally.Completed)
		tally.MeanRelevance = float64(relevance) / n
		tally.MeanNovelty = float64(novelty) / n
		tally.MeanMethodology = float64(methodology) / n
	}
	return tally
}
