package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCleaning(t *testing.T) {
	n := New(nil)
	cases := []struct {
		raw  string
		want string
	}{
		{"Brain Fog", "brain_fog"},
		{"brain-fog", "brain_fog"},
		{"  Insomnia!! ", "insomnia"},
		{"joint pain", "joint_pain"},
		{"Hair  loss", "hair_loss"},
	}
	for _, tc := range cases {
		got, ok := n.Normalize(tc.raw)
		assert.True(t, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestNormalizeSynonyms(t *testing.T) {
	n := New(nil)
	cases := []struct {
		raw  string
		want string
	}{
		{"Foggy brain", "brain_fog"},
		{"low libido", "libido_loss"},
		{"ED", "erectile_dysfunction"},
		{"tiredness", "fatigue"},
		{"Ringing in ears", "tinnitus"},
	}
	for _, tc := range cases {
		got, ok := n.Normalize(tc.raw)
		assert.True(t, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	n := New(nil)
	for _, raw := range []string{"", "   ", "!!!", "---"} {
		_, ok := n.Normalize(raw)
		assert.False(t, ok, "%q should normalize to nothing", raw)
	}
}

func TestNormalizeCustomSynonyms(t *testing.T) {
	n := New(map[string]string{"md_flare": "flare"})
	got, ok := n.Normalize("MD Flare")
	assert.True(t, ok)
	assert.Equal(t, "flare", got)

	// Custom table replaces the default one entirely.
	got, ok = n.Normalize("tiredness")
	assert.True(t, ok)
	assert.Equal(t, "tiredness", got)
}

func TestNormalizeAllCounts(t *testing.T) {
	n := New(nil)
	counts := n.NormalizeAll([]string{"Brain fog", "foggy brain", "insomnia", "???"})
	assert.Equal(t, map[string]int{"brain_fog": 2, "insomnia": 1}, counts)
}
