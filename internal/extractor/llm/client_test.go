package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tags, err := ParsePayload(`{"symptoms": ["brain fog", "insomnia"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"brain fog", "insomnia"}, tags)
}

func TestParsePayloadFencedJSON(t *testing.T) {
	raw := "```json\n{\"symptoms\": [\"fatigue\"]}\n```"
	tags, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"fatigue"}, tags)
}

func TestParsePayloadBareFence(t *testing.T) {
	raw := "```\n{\"symptoms\": []}\n```"
	tags, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestParsePayloadNoSymptomsKey(t *testing.T) {
	tags, err := ParsePayload(`{}`)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestParsePayloadInvalidJSON(t *testing.T) {
	_, err := ParsePayload(`the patient reports fatigue`)
	assert.Error(t, err)
}
