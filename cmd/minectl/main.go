// Command minectl runs the association miner offline over a JSON cohort file.
//
// The input is a JSON array of post records, each with a post_id and a
// symptoms object mapping canonical tags to mention counts:
//
//	[{"post_id": "abc", "symptoms": {"acne": 2, "hair_loss": 1}}, ...]
//
// Mined rules are written as JSON to stdout (or -output). Useful for
// replaying exported cohorts and for tuning thresholds without a running
// analyzer.
//
// Usage:
//
//	minectl -input cohort.json [-min-support 0.05] [-min-confidence 0.6]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/mining"
)

func main() {
	input := flag.String("input", "-", "cohort JSON file, or - for stdin")
	output := flag.String("output", "-", "output file, or - for stdout")
	minSupport := flag.Float64("min-support", 3, "minimum support: (0,1] is a fraction of the cohort, larger values an absolute post count")
	minConfidence := flag.Float64("min-confidence", 0.5, "minimum rule confidence in [0,1]")
	minLift := flag.Float64("min-lift", 1.2, "minimum rule lift")
	maxSize := flag.Int("max-itemset-size", 5, "largest itemset to explore")
	flag.Parse()

	if err := run(*input, *output, mining.Thresholds{
		MinSupport:     *minSupport,
		MinConfidence:  *minConfidence,
		MinLift:        *minLift,
		MaxItemsetSize: *maxSize,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "minectl: %v\n", err)
		os.Exit(1)
	}
}

type result struct {
	Rules             []mining.Rule `json:"rules"`
	TotalTransactions int           `json:"total_transactions"`
	MinSupportCount   int           `json:"min_support_count"`
	ElapsedMs         int64         `json:"elapsed_ms"`
}

func run(input, output string, th mining.Thresholds) error {
	records, err := readRecords(input)
	if err != nil {
		return err
	}

	transactions, err := mining.TransactionsFromRecords(records)
	if err != nil {
		return err
	}

	start := time.Now()
	rules := mining.Mine(transactions, th)
	elapsed := time.Since(start)

	res := result{
		Rules:             rules,
		TotalTransactions: len(transactions),
		MinSupportCount:   mining.AbsoluteSupport(th.MinSupport, len(transactions)),
		ElapsedMs:         elapsed.Milliseconds(),
	}

	out := os.Stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	fmt.Fprintf(os.Stderr, "mined %d rules from %d transactions in %s\n",
		len(rules), len(transactions), elapsed)
	return nil
}

func readRecords(input string) ([]mining.PostRecord, error) {
	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("opening input file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var records []mining.PostRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding cohort: %w", err)
	}
	return records, nil
}
