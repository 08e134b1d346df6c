package mining

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/evidencelab/symptom-signal-platform/pkg/errors"
)

func TestNewTransactionDeduplicatesAndSorts(t *testing.T) {
	tx, err := NewTransaction([]string{"insomnia", "acne", "insomnia", "anxiety", "acne"})
	require.NoError(t, err)
	assert.Equal(t, Transaction{"acne", "anxiety", "insomnia"}, tx)
}

func TestNewTransactionRejectsBlankTags(t *testing.T) {
	_, err := NewTransaction([]string{"acne", "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestTransactionsFromRecords(t *testing.T) {
	records := []PostRecord{
		{PostID: "p1", Symptoms: map[string]int{"acne": 1, "anxiety": 2}},
		{PostID: "p2", Symptoms: map[string]int{"fatigue": 7}},
		{PostID: "p3", Symptoms: map[string]int{}},
	}

	txs, err := TransactionsFromRecords(records)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	// Mention counts are discarded; only the key set survives.
	assert.Equal(t, Transaction{"acne", "anxiety"}, txs[0])
	assert.Equal(t, Transaction{"fatigue"}, txs[1])
	assert.Empty(t, txs[2])
}

func TestTransactionsFromRecordsFailsFast(t *testing.T) {
	records := []PostRecord{
		{PostID: "p1", Symptoms: map[string]int{"acne": 1, "": 3}},
	}
	_, err := TransactionsFromRecords(records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p1")
}
