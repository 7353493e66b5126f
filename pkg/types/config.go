// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by backends that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "affiliation-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Path is the database file (default "affiliation.db").
	Path string `json:"path" yaml:"path"`
}

// HeuristicsConfig holds settings for the heuristic stage.
type HeuristicsConfig struct {
	// Keywords mark an affiliation as internal. Empty means the built-in list.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// MatchThreshold is the inclusive Jaro-Winkler threshold (default 0.85).
	MatchThreshold float64 `json:"match_threshold" yaml:"match_threshold"`

	// BatchSize is the number of records loaded per batch (default 200).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Provider identifies a generative backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
)

// AIConfig holds connection settings for one generative backend.
type AIConfig struct {
	// BaseURL is the API root (e.g. "https://api.openai.com/v1",
	// "http://localhost:11434"). Unused by the Anthropic SDK backend.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// Configured reports whether the backend has enough settings to be tried.
func (c AIConfig) Configured(needsKey bool) bool {
	if c.Model == "" {
		return false
	}
	return !needsKey || c.APIKey != ""
}

// LLMConfig holds settings for the LLM stage.
type LLMConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider is the preferred backend: openai, ollama or anthropic.
	Provider Provider `json:"provider" yaml:"provider"`

	Ollama    AIConfig `json:"ollama" yaml:"ollama"`
	OpenAI    AIConfig `json:"openai" yaml:"openai"`
	Anthropic AIConfig `json:"anthropic" yaml:"anthropic"`

	// BatchSize is the number of records loaded per batch (default 20).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// MaxRetries is the number of retries for transient failures. Zero
	// disables retries; a negative value uses the default (3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the first backoff delay, doubled per retry (default 1.5s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// MaxCandidates caps the whitelist sent in one prompt (default 50).
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// BatchPause is the courtesy delay between batches (default 1s).
	BatchPause time.Duration `json:"batch_pause" yaml:"batch_pause"`

	// Workers is the number of records processed concurrently (default 1).
	Workers int `json:"workers" yaml:"workers"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Store      StoreConfig      `json:"store" yaml:"store"`
	Heuristics HeuristicsConfig `json:"heuristics" yaml:"heuristics"`
	LLM        LLMConfig        `json:"llm" yaml:"llm"`
}
