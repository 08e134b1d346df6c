// Package normalize canonicalizes raw symptom phrases into stable tags so
// that support counting treats "Brain fog", "brain-fog", and "foggy brain"
// as one symptom. All state (synonym table, compiled patterns) lives on the
// Normalizer; there is no package-level mutable state.
package normalize

import (
	"regexp"
	"strings"
)

// Normalizer cleans and canonicalizes symptom phrases.
type Normalizer struct {
	synonyms   map[string]string
	strip      *regexp.Regexp
	whitespace *regexp.Regexp
}

// New creates a Normalizer with the given synonym table mapping cleaned
// phrases to canonical tags. A nil table uses DefaultSynonyms.
func New(synonyms map[string]string) *Normalizer {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	return &Normalizer{
		synonyms:   synonyms,
		strip:      regexp.MustCompile(`[^a-z0-9\s_-]+`),
		whitespace: regexp.MustCompile(`[\s-]+`),
	}
}

// DefaultSynonyms returns the built-in synonym table covering the phrasing
// variants most common in the collected corpora.
func DefaultSynonyms() map[string]string {
	return map[string]string{
		"foggy_brain":          "brain_fog",
		"mental_fog":           "brain_fog",
		"low_libido":           "libido_loss",
		"decreased_libido":     "libido_loss",
		"loss_of_libido":       "libido_loss",
		"ed":                   "erectile_dysfunction",
		"cant_sleep":           "insomnia",
		"sleeplessness":        "insomnia",
		"trouble_sleeping":     "insomnia",
		"tiredness":            "fatigue",
		"exhaustion":           "fatigue",
		"hairloss":             "hair_loss",
		"hair_shedding":        "hair_loss",
		"shedding":             "hair_loss",
		"depressed":            "depression",
		"low_mood":             "depression",
		"anxious":              "anxiety",
		"panic_attacks":        "anxiety",
		"breakouts":            "acne",
		"pimples":              "acne",
		"weight_gain":          "weight_gain",
		"gained_weight":        "weight_gain",
		"headaches":            "headache",
		"migraines":            "headache",
		"dizzy":                "dizziness",
		"lightheadedness":      "dizziness",
		"joint_pain":           "joint_pain",
		"aching_joints":        "joint_pain",
		"dry_skin":             "dry_skin",
		"skin_dryness":         "dry_skin",
		"ringing_in_ears":      "tinnitus",
		"ear_ringing":          "tinnitus",
		"nauseous":             "nausea",
		"stomach_upset":        "nausea",
	}
}

// Normalize cleans a raw phrase into a canonical tag. The second return is
// false when nothing usable remains after cleaning.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	tag = n.strip.ReplaceAllString(tag, "")
	tag = n.whitespace.ReplaceAllString(tag, "_")
	tag = strings.Trim(tag, "_")
	if tag == "" {
		return "", false
	}
	if canonical, ok := n.synonyms[tag]; ok {
		return canonical, true
	}
	return tag, true
}

// NormalizeAll canonicalizes a batch of raw phrases and returns per-tag
// mention counts. Phrases that clean down to nothing are dropped.
func (n *Normalizer) NormalizeAll(raws []string) map[string]int {
	counts := make(map[string]int, len(raws))
	for _, raw := range raws {
		if tag, ok := n.Normalize(raw); ok {
			counts[tag]++
		}
	}
	return counts
}
