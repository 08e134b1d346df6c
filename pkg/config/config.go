// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Reddit, PubMed, LLM, Mining, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Reddit     RedditConfig     `yaml:"reddit"`
	PubMed     PubMedConfig     `yaml:"pubmed"`
	LLM        LLMConfig        `yaml:"llm"`
	Mining     MiningConfig     `yaml:"mining"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	PostsRaw        string `yaml:"postsRaw"`
	SymptomMentions string `yaml:"symptomMentions"`
}

// RedisConfig holds Redis connection and rule-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// RedditConfig controls the Reddit listing fetcher: which subreddits to poll,
// how often, and how many posts per request.
type RedditConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	UserAgent    string        `yaml:"userAgent"`
	Subreddits   []string      `yaml:"subreddits"`
	PageSize     int           `yaml:"pageSize"`
	PollInterval time.Duration `yaml:"pollInterval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// PubMedConfig controls the NCBI E-utilities client: search queries, page
// size, and the courtesy delay between consecutive requests.
type PubMedConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	Queries      []string      `yaml:"queries"`
	PageSize     int           `yaml:"pageSize"`
	PollInterval time.Duration `yaml:"pollInterval"`
	RequestDelay time.Duration `yaml:"requestDelay"`
	Timeout      time.Duration `yaml:"timeout"`
	APIKey       string        `yaml:"apiKey"`
}

// LLMConfig holds the Gemini extraction model settings.
type LLMConfig struct {
	APIKey      string        `yaml:"apiKey"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

// MiningConfig holds the default association-mining thresholds served by the
// analyzer API when the caller does not override them. MinSupport above 1 is
// an absolute transaction count; values in (0, 1] are a fraction of the
// transaction total.
type MiningConfig struct {
	MinSupport     float64 `yaml:"minSupport"`
	MinConfidence  float64 `yaml:"minConfidence"`
	MinLift        float64 `yaml:"minLift"`
	MaxItemsetSize int     `yaml:"maxItemsetSize"`
}

// ValidationConfig holds evidence-tier thresholds: the minimum number of
// patient reports before a tag is scored at all, and the literature-coverage
// cut points between tiers.
type ValidationConfig struct {
	MinReports          int `yaml:"minReports"`
	EmergingLitCount    int `yaml:"emergingLitCount"`
	SupportedLitCount   int `yaml:"supportedLitCount"`
	EstablishedLitCount int `yaml:"establishedLitCount"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. A .env file in the working directory is honoured before the
// environment is read. It returns a Config populated with sensible defaults
// for any missing values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "symptomsignal",
			User:            "symptomsignal",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "symptomsignal-group",
			Topics: KafkaTopics{
				PostsRaw:        "posts-raw",
				SymptomMentions: "symptom-mentions",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Reddit: RedditConfig{
			BaseURL:      "https://www.reddit.com",
			UserAgent:    "symptom-signal-platform/1.0",
			Subreddits:   []string{"tressless", "HairlossResearch"},
			PageSize:     100,
			PollInterval: 15 * time.Minute,
			Timeout:      30 * time.Second,
		},
		PubMed: PubMedConfig{
			BaseURL:      "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			Queries:      []string{"finasteride adverse effects"},
			PageSize:     100,
			PollInterval: 6 * time.Hour,
			RequestDelay: 350 * time.Millisecond,
			Timeout:      30 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     60 * time.Second,
			MaxAttempts: 3,
		},
		Mining: MiningConfig{
			MinSupport:     3,
			MinConfidence:  0.5,
			MinLift:        1.2,
			MaxItemsetSize: 5,
		},
		Validation: ValidationConfig{
			MinReports:          3,
			EmergingLitCount:    1,
			SupportedLitCount:   5,
			EstablishedLitCount: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SS_* environment variables and overrides the
// corresponding config fields. Secrets (API keys, passwords) are expected to
// arrive this way rather than through the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SS_REDDIT_SUBREDDITS"); v != "" {
		cfg.Reddit.Subreddits = strings.Split(v, ",")
	}
	if v := os.Getenv("SS_REDDIT_USER_AGENT"); v != "" {
		cfg.Reddit.UserAgent = v
	}
	if v := os.Getenv("SS_PUBMED_QUERIES"); v != "" {
		cfg.PubMed.Queries = strings.Split(v, ",")
	}
	if v := os.Getenv("SS_PUBMED_API_KEY"); v != "" {
		cfg.PubMed.APIKey = v
	}
	if v := os.Getenv("SS_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SS_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
