// Package mining implements frequent-itemset discovery and association-rule
// generation over per-post symptom tag sets (simplified Apriori).
package mining

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/evidencelab/symptom-signal-platform/pkg/errors"
)

// Transaction is the set of distinct symptom tags observed in one post,
// sorted for canonical comparison. Repeated mentions of the same tag within
// a post collapse to a single element.
type Transaction []string

// PostRecord is the boundary input shape for offline mining: one collected
// post and the symptom tags extracted from it. Only the key set of Symptoms
// matters for support counting; the per-post mention counts are ignored.
type PostRecord struct {
	PostID   string         `json:"post_id"`
	Symptoms map[string]int `json:"symptoms"`
}

// NewTransaction builds a canonical Transaction from a tag list, deduplicating
// and sorting. Blank tags are rejected.
func NewTransaction(tags []string) (Transaction, error) {
	seen := make(map[string]struct{}, len(tags))
	tx := make(Transaction, 0, len(tags))
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "blank symptom tag in transaction")
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tx = append(tx, tag)
	}
	sort.Strings(tx)
	return tx, nil
}

// TransactionsFromRecords converts post records into transactions, one per
// record, preserving input order. Records with fewer than two distinct tags
// are kept: they still count toward the transaction total used for fractional
// support thresholds and lift baselines, and Mine skips them for support
// counting.
func TransactionsFromRecords(records []PostRecord) ([]Transaction, error) {
	transactions := make([]Transaction, 0, len(records))
	for i, rec := range records {
		tags := make([]string, 0, len(rec.Symptoms))
		for tag := range rec.Symptoms {
			tags = append(tags, tag)
		}
		tx, err := NewTransaction(tags)
		if err != nil {
			return nil, fmt.Errorf("record %d (post %q): %w", i, rec.PostID, err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}
