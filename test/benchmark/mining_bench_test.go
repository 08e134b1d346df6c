// Package benchmark contains Go benchmarks for the association miner and the
// cohort aggregator, measuring throughput and allocation behaviour.
package benchmark

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/evidencelab/symptom-signal-platform/internal/analyzer"
	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/internal/extractor"
	"github.com/evidencelab/symptom-signal-platform/internal/mining"
)

var benchTags = []string{
	"acne", "hair_loss", "fatigue", "brain_fog", "insomnia", "anxiety",
	"low_libido", "erectile_dysfunction", "depression", "dry_skin",
	"joint_pain", "headache", "night_sweats", "muscle_loss", "tinnitus",
}

// syntheticCohort builds count transactions with 2-5 tags each from a fixed
// seed so runs are comparable.
func syntheticCohort(count int) []mining.Transaction {
	rng := rand.New(rand.NewSource(42))
	transactions := make([]mining.Transaction, 0, count)
	for i := 0; i < count; i++ {
		size := 2 + rng.Intn(4)
		tags := make([]string, 0, size)
		for len(tags) < size {
			tags = append(tags, benchTags[rng.Intn(len(benchTags))])
		}
		tx, err := mining.NewTransaction(tags)
		if err != nil {
			panic(err)
		}
		transactions = append(transactions, tx)
	}
	return transactions
}

// BenchmarkMine measures full mining runs at various cohort sizes.
func BenchmarkMine(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("cohort_%d", size), func(b *testing.B) {
			transactions := syntheticCohort(size)
			th := mining.Thresholds{
				MinSupport:    0.05,
				MinConfidence: 0.5,
				MinLift:       1.0,
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				rules := mining.Mine(transactions, th)
				_ = rules
			}
		})
	}
}

// BenchmarkMineDeepItemsets measures mining with a dense cohort that produces
// larger frequent itemsets.
func BenchmarkMineDeepItemsets(b *testing.B) {
	// Every transaction shares a five-tag core, forcing the miner through
	// all levels up to the size cap.
	core := []string{"acne", "hair_loss", "fatigue", "brain_fog", "insomnia"}
	transactions := make([]mining.Transaction, 0, 500)
	for i := 0; i < 500; i++ {
		tx, err := mining.NewTransaction(core)
		if err != nil {
			b.Fatal(err)
		}
		transactions = append(transactions, tx)
	}
	th := mining.Thresholds{MinSupport: 0.5, MinConfidence: 0.5}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rules := mining.Mine(transactions, th)
		_ = rules
	}
}

// BenchmarkAggregatorRecord measures per-event ingest throughput.
func BenchmarkAggregatorRecord(b *testing.B) {
	agg := analyzer.NewAggregator(nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		agg.Record(extractor.MentionEvent{
			PostID: fmt.Sprintf("post-%d", i),
			Source: collector.SourceReddit,
			Symptoms: map[string]int{
				benchTags[i%len(benchTags)]:     1,
				benchTags[(i+1)%len(benchTags)]: 2,
			},
		})
	}
}

// BenchmarkAggregatorRecords measures the cost of materializing mining input
// from a 10 000-post cohort.
func BenchmarkAggregatorRecords(b *testing.B) {
	agg := analyzer.NewAggregator(nil)
	for i := 0; i < 10000; i++ {
		agg.Record(extractor.MentionEvent{
			PostID: fmt.Sprintf("post-%d", i),
			Source: collector.SourceReddit,
			Symptoms: map[string]int{
				benchTags[i%len(benchTags)]:     1,
				benchTags[(i+3)%len(benchTags)]: 1,
			},
		})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		records := agg.Records()
		_ = records
	}
}
