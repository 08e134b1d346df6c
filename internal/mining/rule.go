package mining

// Rule is a directed association antecedent -> consequent derived from a
// frequent itemset. Support is the absolute transaction count of the full
// itemset, confidence the conditional probability of the consequent given
// the antecedent, and lift the ratio of that confidence to the consequent's
// baseline probability.
type Rule struct {
	Antecedent []string `json:"if_symptoms"`
	Consequent []string `json:"then_symptom"`
	Support    int      `json:"support"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
}

// less orders rules by descending lift, then descending support, then
// lexicographic antecedent, then lexicographic consequent. The final two
// tie-breaks make the output order fully deterministic.
func (r Rule) less(other Rule) bool {
	if r.Lift != other.Lift {
		return r.Lift > other.Lift
	}
	if r.Support != other.Support {
		return r.Support > other.Support
	}
	if c := compareTags(r.Antecedent, other.Antecedent); c != 0 {
		return c < 0
	}
	return compareTags(r.Consequent, other.Consequent) < 0
}

// compareTags compares two sorted tag slices lexicographically.
func compareTags(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
