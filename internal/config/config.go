package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all daemon configuration. Once Load (or a mode constructor)
// has validated a Config it is treated as immutable; runtime changes produce
// a fresh value rather than mutating an existing one.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Pipeline Pipeline       `yaml:"pipeline"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path,omitempty"`
}

// LookupConfig holds lookup service client settings.
type LookupConfig struct {
	BaseURL        string `yaml:"base_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the hard per-lookup timeout.
func (l LookupConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// SimilarityWeights is the weight triple for the hybrid string metric.
// The three weights must sum to 1.0 within a small tolerance.
type SimilarityWeights struct {
	Levenshtein float64 `yaml:"levenshtein"`
	Jaccard     float64 `yaml:"jaccard"`
	Phonetic    float64 `yaml:"phonetic"`
}

// weightTolerance is the allowed deviation of the similarity weight sum from 1.0.
const weightTolerance = 0.01

// Validate checks that the weights are non-negative and sum to ~1.0.
func (w SimilarityWeights) Validate() error {
	if w.Levenshtein < 0 || w.Jaccard < 0 || w.Phonetic < 0 {
		return fmt.Errorf("similarity weights must be non-negative: %+v", w)
	}
	sum := w.Levenshtein + w.Jaccard + w.Phonetic
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("similarity weights must sum to 1.0 (got %.3f)", sum)
	}
	return nil
}

// Pipeline holds every knob governing scoring and enrichment.
type Pipeline struct {
	Mode Mode `yaml:"mode"`

	// Scoring thresholds.
	VerifiedThreshold int `yaml:"verified_threshold"`
	PartialThreshold  int `yaml:"partial_threshold"`

	// Similarity.
	SimilarityWeights   SimilarityWeights `yaml:"similarity_weights"`
	TitleSimilarityMin  float64           `yaml:"title_similarity_min"`
	ArtistSimilarityMin float64           `yaml:"artist_similarity_min"`

	// Enrichment paths.
	EnrichOnPlay       bool `yaml:"enrich_on_play"`
	EnrichInBackground bool `yaml:"enrich_in_background"`

	// Batch and throttling.
	BatchSize            int `yaml:"batch_size"`
	BatchIntervalMinutes int `yaml:"batch_interval_minutes"`
	RequestsPerMinute    int `yaml:"requests_per_minute"`
	Workers              int `yaml:"workers"`

	// Retry policy.
	MaxAttempts        int `yaml:"max_attempts"`
	RetryNotFoundDays  int `yaml:"retry_not_found_days"`
	BackoffBaseSeconds int `yaml:"backoff_base_seconds"`
	BackoffMaxSeconds  int `yaml:"backoff_max_seconds"`

	// Interactive (on-play) cooldowns.
	TrackCooldownSeconds  int `yaml:"track_cooldown_seconds"`
	GlobalCooldownSeconds int `yaml:"global_cooldown_seconds"`

	// Snapshots of a track's previous metadata before overwriting it.
	SnapshotsRequired bool `yaml:"snapshots_required"`
}

// BackoffBase returns the initial transient-failure backoff delay.
func (p Pipeline) BackoffBase() time.Duration {
	return time.Duration(p.BackoffBaseSeconds) * time.Second
}

// BackoffMax returns the backoff delay cap.
func (p Pipeline) BackoffMax() time.Duration {
	return time.Duration(p.BackoffMaxSeconds) * time.Second
}

// TrackCooldown returns the per-track interactive cooldown.
func (p Pipeline) TrackCooldown() time.Duration {
	return time.Duration(p.TrackCooldownSeconds) * time.Second
}

// GlobalCooldown returns the general interactive cooldown.
func (p Pipeline) GlobalCooldown() time.Duration {
	return time.Duration(p.GlobalCooldownSeconds) * time.Second
}

// BatchInterval returns how often the background scheduler runs a batch.
func (p Pipeline) BatchInterval() time.Duration {
	return time.Duration(p.BatchIntervalMinutes) * time.Minute
}

// RetryNotFound returns how long an api_not_found track stays on cooldown.
func (p Pipeline) RetryNotFound() time.Duration {
	return time.Duration(p.RetryNotFoundDays) * 24 * time.Hour
}

// Validate checks the pipeline configuration, failing fast on anything that
// would silently degrade scoring quality.
func (p Pipeline) Validate() error {
	if err := p.SimilarityWeights.Validate(); err != nil {
		return err
	}
	if p.VerifiedThreshold < 0 || p.VerifiedThreshold > 100 {
		return fmt.Errorf("verified_threshold out of range: %d", p.VerifiedThreshold)
	}
	if p.PartialThreshold < 0 || p.PartialThreshold > p.VerifiedThreshold {
		return fmt.Errorf("partial_threshold must be in [0, verified_threshold]: %d", p.PartialThreshold)
	}
	if p.TitleSimilarityMin < 0 || p.TitleSimilarityMin > 1 {
		return fmt.Errorf("title_similarity_min out of range: %f", p.TitleSimilarityMin)
	}
	if p.ArtistSimilarityMin < 0 || p.ArtistSimilarityMin > 1 {
		return fmt.Errorf("artist_similarity_min out of range: %f", p.ArtistSimilarityMin)
	}
	if p.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive: %d", p.BatchSize)
	}
	if p.BatchIntervalMinutes < 1 {
		return fmt.Errorf("batch_interval_minutes must be positive: %d", p.BatchIntervalMinutes)
	}
	if p.RequestsPerMinute < 1 {
		return fmt.Errorf("requests_per_minute must be positive: %d", p.RequestsPerMinute)
	}
	if p.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", p.Workers)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive: %d", p.MaxAttempts)
	}
	if p.RetryNotFoundDays < 0 {
		return fmt.Errorf("retry_not_found_days must be non-negative: %d", p.RetryNotFoundDays)
	}
	if p.BackoffBaseSeconds < 1 {
		return fmt.Errorf("backoff_base_seconds must be positive: %d", p.BackoffBaseSeconds)
	}
	if p.BackoffMaxSeconds < p.BackoffBaseSeconds {
		return fmt.Errorf("backoff_max_seconds must be >= backoff_base_seconds: %d", p.BackoffMaxSeconds)
	}
	return nil
}

// Default returns a Config with balanced-mode defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "/data/clearwater.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Lookup: LookupConfig{
			BaseURL:        "https://musicbrainz.org/ws/2",
			UserAgent:      "clearwater/1.0 (https://github.com/quillon/clearwater)",
			TimeoutSeconds: 10,
		},
		Pipeline: ModeBalanced.Pipeline(),
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. A mode declared in the file is expanded to its
// preset first, so explicit per-knob values in the file win over the preset.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Expand a declared mode into its preset before applying the file's own
	// knob overrides. Partial application of a mode is a defect; the preset
	// always lands whole.
	var probe struct {
		Pipeline struct {
			Mode Mode `yaml:"mode"`
		} `yaml:"pipeline"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Pipeline.Mode != "" {
		mode, err := ParseMode(string(probe.Pipeline.Mode))
		if err != nil {
			return err
		}
		c.Pipeline = mode.Pipeline()
	}

	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("CW_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CW_LOOKUP_BASE_URL"); v != "" {
		c.Lookup.BaseURL = v
	}
	if v := os.Getenv("CW_MODE"); v != "" {
		if mode, err := ParseMode(v); err == nil {
			c.Pipeline = mode.Pipeline()
		}
	}
	if v := os.Getenv("CW_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("CW_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.BatchSize = n
		}
	}
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Lookup.BaseURL == "" {
		return fmt.Errorf("lookup base_url is required")
	}
	if c.Lookup.TimeoutSeconds < 1 {
		return fmt.Errorf("lookup timeout_seconds must be positive: %d", c.Lookup.TimeoutSeconds)
	}
	return c.Pipeline.Validate()
}
