package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type GraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// ResolutionConfig carries the policy constants of the engine. The 0.9
// and 0.7 thresholds are load-bearing: the human-approval UX depends on
// the 0.7-0.9 "ask the user" band, so override them deliberately.
type ResolutionConfig struct {
	MergeThreshold       float64 `toml:"merge_threshold"`
	ApprovalThreshold    float64 `toml:"approval_threshold"`
	ContextThreshold     float64 `toml:"context_threshold"`
	InferenceThreshold   float64 `toml:"inference_threshold"`
	MaxCandidates        int     `toml:"max_candidates"`
	EnrichmentWindowDays int     `toml:"enrichment_window_days"`
	ArbiterTimeoutSecs   int     `toml:"arbiter_timeout_seconds"`
	EmbedTimeoutSecs     int     `toml:"embed_timeout_seconds"`
}

func (r ResolutionConfig) ArbiterTimeout() time.Duration {
	return time.Duration(r.ArbiterTimeoutSecs) * time.Second
}

func (r ResolutionConfig) EmbedTimeout() time.Duration {
	return time.Duration(r.EmbedTimeoutSecs) * time.Second
}

func (r ResolutionConfig) EnrichmentWindow() time.Duration {
	return time.Duration(r.EnrichmentWindowDays) * 24 * time.Hour
}

// ArbiterPrompts are fmt templates for the two LLM judgments. Empty
// fields fall back to the compiled-in defaults in core/arbiter.
type ArbiterPrompts struct {
	Duplicate string `toml:"duplicate"`
	Synthesis string `toml:"synthesis"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type Config struct {
	LLM        LLMConfig        `toml:"llm"`
	Graph      GraphConfig      `toml:"graph"`
	Resolution ResolutionConfig `toml:"resolution"`
	Prompts    ArbiterPrompts   `toml:"prompts"`
	Log        LogConfig        `toml:"log"`
}

func Default() *Config {
	return &Config{
		Resolution: ResolutionConfig{
			MergeThreshold:       0.9,
			ApprovalThreshold:    0.7,
			ContextThreshold:     0.5,
			InferenceThreshold:   0.7,
			MaxCandidates:        5,
			EnrichmentWindowDays: 7,
			ArbiterTimeoutSecs:   30,
			EmbedTimeoutSecs:     10,
		},
		Graph: GraphConfig{
			URI: "bolt://localhost:7687",
		},
		Log: LogConfig{Level: "info"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// ApplyEnv overrides config fields from environment variables, so secrets
// never have to live in the TOML file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		c.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("GRAPH_URI"); v != "" {
		c.Graph.URI = v
	}
	if v := os.Getenv("GRAPH_USER"); v != "" {
		c.Graph.User = v
	}
	if v := os.Getenv("GRAPH_PASSWORD"); v != "" {
		c.Graph.Password = v
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Resolution.MergeThreshold == 0 {
		c.Resolution.MergeThreshold = d.Resolution.MergeThreshold
	}
	if c.Resolution.ApprovalThreshold == 0 {
		c.Resolution.ApprovalThreshold = d.Resolution.ApprovalThreshold
	}
	if c.Resolution.ContextThreshold == 0 {
		c.Resolution.ContextThreshold = d.Resolution.ContextThreshold
	}
	if c.Resolution.InferenceThreshold == 0 {
		c.Resolution.InferenceThreshold = d.Resolution.InferenceThreshold
	}
	if c.Resolution.MaxCandidates == 0 {
		c.Resolution.MaxCandidates = d.Resolution.MaxCandidates
	}
	if c.Resolution.EnrichmentWindowDays == 0 {
		c.Resolution.EnrichmentWindowDays = d.Resolution.EnrichmentWindowDays
	}
	if c.Resolution.ArbiterTimeoutSecs == 0 {
		c.Resolution.ArbiterTimeoutSecs = d.Resolution.ArbiterTimeoutSecs
	}
	if c.Resolution.EmbedTimeoutSecs == 0 {
		c.Resolution.EmbedTimeoutSecs = d.Resolution.EmbedTimeoutSecs
	}
	if c.Graph.URI == "" {
		c.Graph.URI = d.Graph.URI
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}
