package matcher

const (
	// ExactScore is awarded when the source equals a key or label after normalization.
	ExactScore = 1.0
	// SynonymScore is awarded when the source is a registered synonym of a key.
	SynonymScore = 0.95
	// MinScore is the bar a fuzzy score has to clear (strictly) to be a candidate.
	MinScore = 0.6
)

// Candidate is one target column the source may be matched to.
type Candidate struct {
	Key   string
	Label string
}

// Match is the best candidate found for a source column.
type Match struct {
	Key   string
	Score float64
}

// FindBestMatch scores source against the candidates in order. An exact hit on a key or
// label wins immediately, then a synonym hit; otherwise the highest fuzzy score above
// MinScore is kept, the earliest candidate winning ties.
func FindBestMatch(source string, candidates []Candidate) (Match, bool) {
	normSource := Normalize(source)

	var best Match
	found := false
	for _, c := range candidates {
		if normSource == Normalize(c.Key) || normSource == Normalize(c.Label) {
			return Match{Key: c.Key, Score: ExactScore}, true
		}

		if IsSynonym(c.Key, source) {
			return Match{Key: c.Key, Score: SynonymScore}, true
		}

		score := max(Similarity(source, c.Key), Similarity(source, c.Label))
		if score > MinScore && (!found || score > best.Score) {
			best = Match{Key: c.Key, Score: score}
			found = true
		}
	}
	return best, found
}
