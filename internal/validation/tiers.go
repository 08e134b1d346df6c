// Package validation scores extracted symptom tags by combining patient-report
// frequency with literature coverage, producing a surprise score and a coarse
// evidence tier for each tag.
package validation

import (
	"sort"

	"github.com/evidencelab/symptom-signal-platform/pkg/config"
)

// Tier classifies how well a symptom claim is supported by the literature
// relative to patient reporting volume.
type Tier string

const (
	// TierEstablished: heavily covered in the literature.
	TierEstablished Tier = "established"
	// TierSupported: moderate literature coverage.
	TierSupported Tier = "supported"
	// TierEmerging: only a handful of papers mention the tag.
	TierEmerging Tier = "emerging"
	// TierAnecdotal: patient reports with no literature coverage at all.
	TierAnecdotal Tier = "anecdotal"
	// TierInsufficient: too few patient reports to score.
	TierInsufficient Tier = "insufficient"
)

// Evidence is the raw input for scoring one symptom tag.
type Evidence struct {
	Tag             string `json:"tag"`
	ReportCount     int    `json:"report_count"`     // patient posts mentioning the tag
	TotalReports    int    `json:"total_reports"`    // all patient posts in the cohort
	LiteratureCount int    `json:"literature_count"` // papers mentioning the tag
}

// Assessment is the scored output for one symptom tag.
type Assessment struct {
	Tag             string  `json:"tag"`
	Tier            Tier    `json:"tier"`
	ReportCount     int     `json:"report_count"`
	ReportFrequency float64 `json:"report_frequency"`
	LiteratureCount int     `json:"literature_count"`
	SurpriseScore   float64 `json:"surprise_score"`
}

// Scorer assigns tiers and surprise scores using configured thresholds.
// All state is explicit; two Scorers with the same config behave identically.
type Scorer struct {
	cfg config.ValidationConfig
}

// NewScorer creates a Scorer, filling in defaults for zero-valued thresholds.
func NewScorer(cfg config.ValidationConfig) *Scorer {
	if cfg.MinReports <= 0 {
		cfg.MinReports = 3
	}
	if cfg.EmergingLitCount <= 0 {
		cfg.EmergingLitCount = 1
	}
	if cfg.SupportedLitCount <= 0 {
		cfg.SupportedLitCount = 5
	}
	if cfg.EstablishedLitCount <= 0 {
		cfg.EstablishedLitCount = 20
	}
	return &Scorer{cfg: cfg}
}

// surpriseMultiplier weights patient-report frequency by how thin the
// literature coverage is: an effect patients report often but papers never
// mention is the interesting signal.
func (s *Scorer) surpriseMultiplier(litCount int) float64 {
	switch {
	case litCount >= s.cfg.EstablishedLitCount:
		return 1.0
	case litCount >= s.cfg.SupportedLitCount:
		return 1.5
	case litCount >= s.cfg.EmergingLitCount:
		return 2.0
	default:
		return 3.0
	}
}

// Score assesses a single tag. Tags below the minimum report count get
// TierInsufficient and a zero surprise score.
func (s *Scorer) Score(ev Evidence) Assessment {
	a := Assessment{
		Tag:             ev.Tag,
		ReportCount:     ev.ReportCount,
		LiteratureCount: ev.LiteratureCount,
	}
	if ev.TotalReports > 0 {
		a.ReportFrequency = float64(ev.ReportCount) / float64(ev.TotalReports)
	}

	if ev.ReportCount < s.cfg.MinReports {
		a.Tier = TierInsufficient
		return a
	}

	a.SurpriseScore = a.ReportFrequency * s.surpriseMultiplier(ev.LiteratureCount)

	switch {
	case ev.LiteratureCount >= s.cfg.EstablishedLitCount:
		a.Tier = TierEstablished
	case ev.LiteratureCount >= s.cfg.SupportedLitCount:
		a.Tier = TierSupported
	case ev.LiteratureCount >= s.cfg.EmergingLitCount:
		a.Tier = TierEmerging
	default:
		a.Tier = TierAnecdotal
	}
	return a
}

// ScoreAll assesses every tag and returns the results sorted by descending
// surprise score, ties broken by descending report count, then tag order.
func (s *Scorer) ScoreAll(evidence []Evidence) []Assessment {
	assessments := make([]Assessment, 0, len(evidence))
	for _, ev := range evidence {
		assessments = append(assessments, s.Score(ev))
	}
	sort.Slice(assessments, func(i, j int) bool {
		a, b := assessments[i], assessments[j]
		if a.SurpriseScore != b.SurpriseScore {
			return a.SurpriseScore > b.SurpriseScore
		}
		if a.ReportCount != b.ReportCount {
			return a.ReportCount > b.ReportCount
		}
		return a.Tag < b.Tag
	})
	return assessments
}
