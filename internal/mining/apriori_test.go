package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repeat builds n copies of the same tag set as transactions.
func repeat(n int, tags ...string) []Transaction {
	txs := make([]Transaction, 0, n)
	for i := 0; i < n; i++ {
		tx, err := NewTransaction(tags)
		if err != nil {
			panic(err)
		}
		txs = append(txs, tx)
	}
	return txs
}

// bruteSupport counts transactions (with >= 2 distinct tags) containing all
// the given tags, independently of the miner's support table.
func bruteSupport(txs []Transaction, tags ...string) int {
	count := 0
	for _, tx := range txs {
		if len(tx) < 2 {
			continue
		}
		set := make(map[string]struct{}, len(tx))
		for _, t := range tx {
			set[t] = struct{}{}
		}
		all := true
		for _, t := range tags {
			if _, ok := set[t]; !ok {
				all = false
				break
			}
		}
		if all {
			count++
		}
	}
	return count
}

func findRule(rules []Rule, antecedent, consequent []string) (Rule, bool) {
	for _, r := range rules {
		if compareTags(r.Antecedent, antecedent) == 0 && compareTags(r.Consequent, consequent) == 0 {
			return r, true
		}
	}
	return Rule{}, false
}

func TestMineDominantPair(t *testing.T) {
	// 10 transactions: 6 x {acne, hair_loss}, 4 x {fatigue} alone. The
	// single-tag transactions cannot seed itemsets but still count toward
	// the lift baseline denominator.
	txs := append(repeat(6, "acne", "hair_loss"), repeat(4, "fatigue")...)

	rules := Mine(txs, Thresholds{MinSupport: 3, MinConfidence: 0.5, MinLift: 1.0})

	rule, ok := findRule(rules, []string{"acne"}, []string{"hair_loss"})
	require.True(t, ok, "expected {acne} -> {hair_loss} rule")
	assert.Equal(t, 6, rule.Support)
	assert.InDelta(t, 1.0, rule.Confidence, 1e-9)
	assert.InDelta(t, 10.0/6.0, rule.Lift, 1e-9)
}

func TestMineNoOverlap(t *testing.T) {
	// Five posts each mentioning a unique single symptom: no transaction
	// survives the >= 2 tag filter, so there is nothing to mine.
	txs := []Transaction{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}

	rules := Mine(txs, Thresholds{MinSupport: 1, MinConfidence: 0, MinLift: 0})
	require.NotNil(t, rules)
	assert.Empty(t, rules)
}

func TestMineAllIdenticalTriples(t *testing.T) {
	txs := repeat(5, "a", "b", "c")

	rules := Mine(txs, Thresholds{MinSupport: 5, MinConfidence: 0.5, MinLift: 1.0})

	// All six non-trivial bipartitions of {a,b,c} must appear, each with
	// confidence 1 and lift exactly 1 (every subset also has support 5).
	bipartitions := []struct {
		antecedent []string
		consequent []string
	}{
		{[]string{"a"}, []string{"b", "c"}},
		{[]string{"b"}, []string{"a", "c"}},
		{[]string{"c"}, []string{"a", "b"}},
		{[]string{"a", "b"}, []string{"c"}},
		{[]string{"a", "c"}, []string{"b"}},
		{[]string{"b", "c"}, []string{"a"}},
	}
	for _, bp := range bipartitions {
		rule, ok := findRule(rules, bp.antecedent, bp.consequent)
		require.True(t, ok, "missing rule %v -> %v", bp.antecedent, bp.consequent)
		assert.Equal(t, 5, rule.Support)
		assert.Equal(t, 1.0, rule.Confidence)
		assert.Equal(t, 1.0, rule.Lift)
	}
}

func TestAbsoluteSupport(t *testing.T) {
	cases := []struct {
		name       string
		minSupport float64
		total      int
		want       int
	}{
		{"fraction rounds up", 0.3, 10, 3},
		{"fraction exact", 0.5, 10, 5},
		{"fraction of one", 1.0, 10, 10},
		{"absolute count", 3, 10, 3},
		{"absolute non-integer", 3.5, 10, 4},
		{"zero floors to one", 0, 10, 1},
		{"tiny fraction floors to one", 0.001, 10, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AbsoluteSupport(tc.minSupport, tc.total))
		})
	}
}

func TestMineFractionalSupportIsInclusive(t *testing.T) {
	// 10 transactions, fraction 0.3 -> absolute threshold 3. The pair with
	// support exactly 3 is admitted; the pair with support 2 is not.
	txs := append(repeat(3, "a", "b"), repeat(2, "c", "d")...)
	txs = append(txs, repeat(5, "x", "y")...)

	rules := Mine(txs, Thresholds{MinSupport: 0.3, MinConfidence: 0.5, MinLift: 1.0})

	_, ok := findRule(rules, []string{"a"}, []string{"b"})
	assert.True(t, ok, "support == threshold must be included")
	_, ok = findRule(rules, []string{"c"}, []string{"d"})
	assert.False(t, ok, "support below threshold must be excluded")
	_, ok = findRule(rules, []string{"x"}, []string{"y"})
	assert.True(t, ok)
}

func TestMineInsufficientData(t *testing.T) {
	assert.Empty(t, Mine(nil, Thresholds{MinSupport: 1}))
	assert.Empty(t, Mine([]Transaction{}, Thresholds{MinSupport: 1}))
	// A single countable transaction is not enough either.
	assert.Empty(t, Mine([]Transaction{{"a", "b"}}, Thresholds{MinSupport: 1}))
}

func TestMineDeterminism(t *testing.T) {
	txs := mixedDataset()
	th := Thresholds{MinSupport: 2, MinConfidence: 0.3, MinLift: 1.0}

	first := Mine(txs, th)
	second := Mine(txs, th)
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestMineDoesNotMutateInput(t *testing.T) {
	txs := mixedDataset()
	original := make([]Transaction, len(txs))
	for i, tx := range txs {
		original[i] = append(Transaction(nil), tx...)
	}

	Mine(txs, Thresholds{MinSupport: 2, MinConfidence: 0.3, MinLift: 1.0})
	require.Equal(t, original, txs)
}

func TestThresholdMonotonicity(t *testing.T) {
	txs := mixedDataset()
	base := Thresholds{MinSupport: 2, MinConfidence: 0.3, MinLift: 1.0}
	baseline := len(Mine(txs, base))

	for _, th := range []Thresholds{
		{MinSupport: 3, MinConfidence: 0.3, MinLift: 1.0},
		{MinSupport: 2, MinConfidence: 0.6, MinLift: 1.0},
		{MinSupport: 2, MinConfidence: 0.3, MinLift: 1.5},
	} {
		got := len(Mine(txs, th))
		assert.LessOrEqual(t, got, baseline, "raising a threshold must not add rules (%+v)", th)
	}
}

func TestRuleInvariants(t *testing.T) {
	txs := mixedDataset()
	th := Thresholds{MinSupport: 2, MinConfidence: 0.3, MinLift: 0.5}
	total := len(txs)
	minCount := AbsoluteSupport(th.MinSupport, total)

	rules := Mine(txs, th)
	require.NotEmpty(t, rules)

	for _, rule := range rules {
		assert.GreaterOrEqual(t, rule.Confidence, 0.0)
		assert.LessOrEqual(t, rule.Confidence, 1.0)

		// Antecedent and consequent are disjoint and non-empty.
		require.NotEmpty(t, rule.Antecedent)
		require.NotEmpty(t, rule.Consequent)
		seen := make(map[string]struct{})
		for _, tag := range rule.Antecedent {
			seen[tag] = struct{}{}
		}
		for _, tag := range rule.Consequent {
			_, overlap := seen[tag]
			assert.False(t, overlap, "antecedent and consequent must be disjoint")
		}

		// Lift is consistent with the consequent's baseline probability.
		consSupport := bruteSupport(txs, rule.Consequent...)
		require.NotZero(t, consSupport)
		expectedLift := rule.Confidence / (float64(consSupport) / float64(total))
		assert.InDelta(t, expectedLift, rule.Lift, 1e-9)

		// The full itemset is frequent at or above the threshold.
		union := append(append([]string{}, rule.Antecedent...), rule.Consequent...)
		assert.GreaterOrEqual(t, bruteSupport(txs, union...), minCount)
		assert.Equal(t, bruteSupport(txs, union...), rule.Support)
	}
}

func TestRuleOrdering(t *testing.T) {
	// Two disjoint perfect pairs with different baselines: the rarer pair
	// has the higher lift and must sort first.
	txs := append(repeat(4, "p", "q"), repeat(6, "r", "s")...)

	rules := Mine(txs, Thresholds{MinSupport: 3, MinConfidence: 0.5, MinLift: 1.0})
	require.Len(t, rules, 4)

	assert.Equal(t, []string{"p"}, rules[0].Antecedent)
	assert.Equal(t, []string{"q"}, rules[1].Antecedent)
	assert.Equal(t, []string{"r"}, rules[2].Antecedent)
	assert.Equal(t, []string{"s"}, rules[3].Antecedent)

	for i := 1; i < len(rules); i++ {
		prev, cur := rules[i-1], rules[i]
		if prev.Lift == cur.Lift {
			assert.GreaterOrEqual(t, prev.Support, cur.Support)
		} else {
			assert.Greater(t, prev.Lift, cur.Lift)
		}
	}
}

func TestMineItemsetSizeCap(t *testing.T) {
	// Six tags always together: with the cap at 2 only pairwise rules
	// appear, never a 3-tag antecedent or consequent.
	txs := repeat(4, "a", "b", "c", "d", "e", "f")
	txs = append(txs, repeat(2, "a", "b")...)

	rules := Mine(txs, Thresholds{MinSupport: 2, MinConfidence: 0.5, MinLift: 1.0, MaxItemsetSize: 2})
	require.NotEmpty(t, rules)
	for _, rule := range rules {
		assert.Len(t, rule.Antecedent, 1)
		assert.Len(t, rule.Consequent, 1)
	}
}

// mixedDataset is a fixed corpus with overlapping symptom clusters used by
// the property tests.
func mixedDataset() []Transaction {
	txs := append(repeat(4, "acne", "anxiety", "insomnia"), repeat(3, "acne", "anxiety")...)
	txs = append(txs, repeat(2, "anxiety", "insomnia")...)
	txs = append(txs, repeat(2, "brain_fog", "fatigue")...)
	txs = append(txs, repeat(3, "fatigue", "insomnia")...)
	txs = append(txs, repeat(2, "libido_loss")...)
	return txs
}
