package mining

import (
	"math"
	"sort"
	"strings"
)

// defaultMaxItemsetSize bounds candidate generation. Runtime is exponential
// in itemset size, so the search stops at 5-tag combinations unless the
// caller overrides it.
const defaultMaxItemsetSize = 5

// itemsetSeparator joins sorted tags into a canonical support-table key. The
// unit separator cannot appear in normalized tags.
const itemsetSeparator = "\x1f"

// Thresholds holds the mining cut-offs. MinSupport in (0, 1] is a fraction
// of the transaction total; values above 1 are an absolute transaction
// count. All thresholds are inclusive.
type Thresholds struct {
	MinSupport     float64
	MinConfidence  float64
	MinLift        float64
	MaxItemsetSize int
}

// AbsoluteSupport resolves a MinSupport value against a transaction total.
// Fractions convert via ceil(fraction x total) so an itemset just under the
// intended fraction is never admitted by rounding. The result is never
// below 1.
func AbsoluteSupport(minSupport float64, total int) int {
	var count int
	switch {
	case minSupport <= 0:
		count = 1
	case minSupport <= 1:
		count = int(math.Ceil(minSupport * float64(total)))
	default:
		count = int(math.Ceil(minSupport))
	}
	if count < 1 {
		count = 1
	}
	return count
}

// Mine discovers association rules over the given transactions.
//
// Transactions with fewer than two distinct tags cannot contribute to any
// association; they are skipped for support counting but still counted in
// the transaction total that fractional thresholds and lift baselines are
// computed against. If fewer than two countable transactions exist the
// result is an empty list: mining is undefined on insufficient data and
// callers must treat that as "no patterns found", not a failure.
//
// Mine is pure: it never mutates its input, and repeated calls with the same
// input and thresholds produce identical output, including rule order
// (lift descending, then support descending, then antecedent lexical order).
func Mine(transactions []Transaction, th Thresholds) []Rule {
	total := len(transactions)
	txSets := make([]map[string]struct{}, 0, total)
	for _, tx := range transactions {
		set := make(map[string]struct{}, len(tx))
		for _, tag := range tx {
			set[tag] = struct{}{}
		}
		if len(set) >= 2 {
			txSets = append(txSets, set)
		}
	}
	if len(txSets) < 2 {
		return []Rule{}
	}

	minCount := AbsoluteSupport(th.MinSupport, total)
	maxSize := th.MaxItemsetSize
	if maxSize <= 0 {
		maxSize = defaultMaxItemsetSize
	}

	// Level 1: single-tag support counts.
	tagCounts := make(map[string]int)
	for _, set := range txSets {
		for tag := range set {
			tagCounts[tag]++
		}
	}
	support := make(map[string]int)
	var current [][]string
	for tag, count := range tagCounts {
		if count >= minCount {
			support[tag] = count
			current = append(current, []string{tag})
		}
	}
	sortItemsets(current)

	// Levels 2..maxSize: Apriori join, count, prune. An empty level ends the
	// search (monotonicity: supersets of a pruned itemset cannot be frequent).
	var frequent [][]string
	for k := 2; k <= maxSize && len(current) > 0; k++ {
		candidates := joinCandidates(current, k)
		var next [][]string
		for _, candidate := range candidates {
			count := countSupport(candidate, txSets)
			if count >= minCount {
				support[itemsetKey(candidate)] = count
				next = append(next, candidate)
			}
		}
		sortItemsets(next)
		frequent = append(frequent, next...)
		current = next
	}

	rules := deriveRules(frequent, support, total, th)
	sort.Slice(rules, func(i, j int) bool { return rules[i].less(rules[j]) })
	return rules
}

// joinCandidates generates candidate k-itemsets by combining pairs of
// frequent (k-1)-itemsets whose first k-2 tags match (so the union has
// exactly k elements), then dropping candidates with an infrequent
// (k-1)-subset.
func joinCandidates(prev [][]string, k int) [][]string {
	prevKeys := make(map[string]struct{}, len(prev))
	for _, items := range prev {
		prevKeys[itemsetKey(items)] = struct{}{}
	}

	var candidates [][]string
	seen := make(map[string]struct{})
	for i := 0; i < len(prev); i++ {
		for j := i + 1; j < len(prev); j++ {
			a, b := prev[i], prev[j]
			if !samePrefix(a, b, k-2) {
				continue
			}
			candidate := make([]string, 0, k)
			candidate = append(candidate, a...)
			candidate = append(candidate, b[k-2])
			sort.Strings(candidate)
			key := itemsetKey(candidate)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if k > 2 && !allSubsetsFrequent(candidate, prevKeys) {
				continue
			}
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// samePrefix reports whether two sorted itemsets share their first n tags.
func samePrefix(a, b []string, n int) bool {
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// allSubsetsFrequent checks the Apriori pruning condition: every (k-1)-subset
// of the candidate must itself be frequent.
func allSubsetsFrequent(candidate []string, prevKeys map[string]struct{}) bool {
	sub := make([]string, 0, len(candidate)-1)
	for skip := range candidate {
		sub = sub[:0]
		for i, tag := range candidate {
			if i != skip {
				sub = append(sub, tag)
			}
		}
		if _, ok := prevKeys[itemsetKey(sub)]; !ok {
			return false
		}
	}
	return true
}

// countSupport counts the transactions containing every tag of the itemset.
func countSupport(itemset []string, txSets []map[string]struct{}) int {
	count := 0
	for _, set := range txSets {
		contained := true
		for _, tag := range itemset {
			if _, ok := set[tag]; !ok {
				contained = false
				break
			}
		}
		if contained {
			count++
		}
	}
	return count
}

// deriveRules enumerates every non-trivial bipartition of each frequent
// itemset of size >= 2 and keeps the rules meeting the confidence and lift
// thresholds. Partitions whose antecedent or consequent support is missing
// or zero are skipped silently; that is an expected artifact of pruning, not
// a caller error.
func deriveRules(frequent [][]string, support map[string]int, total int, th Thresholds) []Rule {
	var rules []Rule
	for _, itemset := range frequent {
		itemSupport := support[itemsetKey(itemset)]
		k := len(itemset)
		for mask := 1; mask < (1<<k)-1; mask++ {
			antecedent := make([]string, 0, k-1)
			consequent := make([]string, 0, k-1)
			for i, tag := range itemset {
				if mask&(1<<i) != 0 {
					antecedent = append(antecedent, tag)
				} else {
					consequent = append(consequent, tag)
				}
			}
			anteSupport, ok := support[itemsetKey(antecedent)]
			if !ok || anteSupport == 0 {
				continue
			}
			consSupport, ok := support[itemsetKey(consequent)]
			if !ok || consSupport == 0 {
				continue
			}
			confidence := float64(itemSupport) / float64(anteSupport)
			lift := confidence / (float64(consSupport) / float64(total))
			if confidence >= th.MinConfidence && lift >= th.MinLift {
				rules = append(rules, Rule{
					Antecedent: antecedent,
					Consequent: consequent,
					Support:    itemSupport,
					Confidence: confidence,
					Lift:       lift,
				})
			}
		}
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules
}

func itemsetKey(items []string) string {
	return strings.Join(items, itemsetSeparator)
}

func sortItemsets(itemsets [][]string) {
	sort.Slice(itemsets, func(i, j int) bool {
		return compareTags(itemsets[i], itemsets[j]) < 0
	})
}
