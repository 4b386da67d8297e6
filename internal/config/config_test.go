package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestSimilarityWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights SimilarityWeights
		wantErr bool
	}{
		{"balanced defaults", SimilarityWeights{0.5, 0.3, 0.2}, false},
		{"within tolerance", SimilarityWeights{0.5, 0.3, 0.205}, false},
		{"sum too low", SimilarityWeights{0.5, 0.3, 0.1}, true},
		{"sum too high", SimilarityWeights{0.6, 0.4, 0.2}, true},
		{"negative weight", SimilarityWeights{1.2, -0.1, -0.1}, true},
		{"all zero", SimilarityWeights{}, true},
		{"single weight carries everything", SimilarityWeights{1, 0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPipelineValidateRejectsBadKnobs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Pipeline)
	}{
		{"verified threshold above 100", func(p *Pipeline) { p.VerifiedThreshold = 101 }},
		{"partial above verified", func(p *Pipeline) { p.PartialThreshold = 90 }},
		{"zero batch size", func(p *Pipeline) { p.BatchSize = 0 }},
		{"zero requests per minute", func(p *Pipeline) { p.RequestsPerMinute = 0 }},
		{"zero workers", func(p *Pipeline) { p.Workers = 0 }},
		{"zero max attempts", func(p *Pipeline) { p.MaxAttempts = 0 }},
		{"backoff cap below base", func(p *Pipeline) { p.BackoffMaxSeconds = 5 }},
		{"title similarity min above 1", func(p *Pipeline) { p.TitleSimilarityMin = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePipeline()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() accepted an invalid pipeline")
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeFastLocalOnly, ModeBalanced, ModeFullEnrichment, ModeConservative} {
		got, err := ParseMode(string(m))
		if err != nil {
			t.Errorf("ParseMode(%q) error: %v", m, err)
		}
		if got != m {
			t.Errorf("ParseMode(%q) = %q", m, got)
		}
	}
	if _, err := ParseMode("turbo"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}

func TestModePresetsAreComplete(t *testing.T) {
	// Every preset must be a valid, self-contained pipeline.
	for _, m := range []Mode{ModeFastLocalOnly, ModeBalanced, ModeFullEnrichment, ModeConservative} {
		p := m.Pipeline()
		if p.Mode != m {
			t.Errorf("%s preset carries mode %q", m, p.Mode)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("%s preset failed validation: %v", m, err)
		}
	}
}

func TestModePresetKnobs(t *testing.T) {
	fast := ModeFastLocalOnly.Pipeline()
	if fast.EnrichOnPlay || fast.EnrichInBackground {
		t.Error("fast_local_only must disable both enrichment paths")
	}
	if fast.VerifiedThreshold != 60 || fast.PartialThreshold != 50 {
		t.Errorf("fast_local_only thresholds = %d/%d, want 60/50", fast.VerifiedThreshold, fast.PartialThreshold)
	}

	conservative := ModeConservative.Pipeline()
	if conservative.TitleSimilarityMin != 0.7 || conservative.ArtistSimilarityMin != 0.6 {
		t.Errorf("conservative similarity mins = %v/%v, want 0.7/0.6", conservative.TitleSimilarityMin, conservative.ArtistSimilarityMin)
	}
	if conservative.VerifiedThreshold != 90 {
		t.Errorf("conservative verified threshold = %d, want 90", conservative.VerifiedThreshold)
	}
	if !conservative.SnapshotsRequired {
		t.Error("conservative mode must require snapshots")
	}

	full := ModeFullEnrichment.Pipeline()
	if full.BatchSize <= ModeBalanced.Pipeline().BatchSize {
		t.Error("full_enrichment should use a larger batch size than balanced")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Pipeline.Mode != ModeBalanced {
		t.Errorf("mode = %q, want balanced", cfg.Pipeline.Mode)
	}
}

func TestLoadFileKnobsWinOverModePreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /tmp/test.db
pipeline:
  mode: conservative
  batch_size: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	// The preset lands whole, then the file's explicit knobs override it.
	if cfg.Pipeline.Mode != ModeConservative {
		t.Errorf("mode = %q, want conservative", cfg.Pipeline.Mode)
	}
	if cfg.Pipeline.VerifiedThreshold != 90 {
		t.Errorf("verified threshold = %d, want the conservative preset's 90", cfg.Pipeline.VerifiedThreshold)
	}
	if cfg.Pipeline.BatchSize != 7 {
		t.Errorf("batch size = %d, want the file's 7", cfg.Pipeline.BatchSize)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  mode: warp\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() accepted an unknown mode")
	}
	if !strings.Contains(err.Error(), "unknown processing mode") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadRejectsInvalidPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
pipeline:
  similarity_weights:
    levenshtein: 0.9
    jaccard: 0.9
    phonetic: 0.9
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted weights that do not sum to 1.0")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CW_DB_PATH", "/env/override.db")
	t.Setenv("CW_MODE", "full_enrichment")
	t.Setenv("CW_REQUESTS_PER_MINUTE", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Path != "/env/override.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Pipeline.Mode != ModeFullEnrichment {
		t.Errorf("mode = %q, want full_enrichment", cfg.Pipeline.Mode)
	}
	if cfg.Pipeline.RequestsPerMinute != 3 {
		t.Errorf("requests per minute = %d, want 3", cfg.Pipeline.RequestsPerMinute)
	}
}

func TestDurationAccessors(t *testing.T) {
	p := basePipeline()
	if p.BackoffBase().Seconds() != 30 {
		t.Errorf("BackoffBase = %v", p.BackoffBase())
	}
	if p.BatchInterval().Minutes() != 15 {
		t.Errorf("BatchInterval = %v", p.BatchInterval())
	}
	if p.RetryNotFound().Hours() != 30*24 {
		t.Errorf("RetryNotFound = %v", p.RetryNotFound())
	}
}
