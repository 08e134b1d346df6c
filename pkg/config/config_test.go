package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "posts-raw", cfg.Kafka.Topics.PostsRaw)
	assert.Equal(t, "symptom-mentions", cfg.Kafka.Topics.SymptomMentions)
	assert.InDelta(t, 3.0, cfg.Mining.MinSupport, 1e-9)
	assert.InDelta(t, 0.5, cfg.Mining.MinConfidence, 1e-9)
	assert.Equal(t, 5, cfg.Mining.MaxItemsetSize)
	assert.Equal(t, 3, cfg.Validation.MinReports)
	assert.NotEmpty(t, cfg.Reddit.Subreddits)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9999
mining:
  minSupport: 0.05
  minConfidence: 0.7
reddit:
  subreddits:
    - tressless
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.InDelta(t, 0.05, cfg.Mining.MinSupport, 1e-9)
	assert.InDelta(t, 0.7, cfg.Mining.MinConfidence, 1e-9)
	assert.Equal(t, []string{"tressless"}, cfg.Reddit.Subreddits)
	// Untouched sections keep their defaults.
	assert.InDelta(t, 1.2, cfg.Mining.MinLift, 1e-9)
	assert.Equal(t, "symptom-mentions", cfg.Kafka.Topics.SymptomMentions)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesWinOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o600))

	t.Setenv("SS_SERVER_PORT", "7777")
	t.Setenv("SS_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("SS_LLM_API_KEY", "test-key")
	t.Setenv("SS_REDDIT_SUBREDDITS", "tressless,FinasterideSyndrome")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, []string{"tressless", "FinasterideSyndrome"}, cfg.Reddit.Subreddits)
}

func TestEnvOverridesIgnoreUnparsable(t *testing.T) {
	t.Setenv("SS_SERVER_PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestPostgresDSN(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	dsn := cfg.Postgres.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=symptomsignal")
	assert.Contains(t, dsn, "sslmode=disable")
}
