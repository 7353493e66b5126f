// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the affiliation-engine CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/affiliation"
	"github.com/pdiddy/affiliation-engine/internal/backend"
	"github.com/pdiddy/affiliation-engine/internal/secrets"
	"github.com/pdiddy/affiliation-engine/internal/store"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	logger = zap.NewNop()
)

// rootCmd is the base command for the affiliation-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "affiliation-engine",
	Short: "Attribute publications to internal authors, faculties and departments",
	Long: `affiliation-engine resolves which authors of a harvested publication belong
to Tomas Bata University in Zlin and which faculties and departments they
represent.

Records are imported into a local SQLite store, processed by the heuristic
stage (affiliation parsing, fuzzy author matching, faculty resolution) and,
where that stage is not confident, by the LLM stage, whose answers are
validated against the internal author registry.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		l, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./affiliation-engine.yaml or ~/.config/affiliation-engine/affiliation-engine.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides store.path)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("store.path", store.DefaultPath)
	viper.SetDefault("heuristics.keywords", affiliation.DefaultKeywords)
	viper.SetDefault("heuristics.match_threshold", 0.85)
	viper.SetDefault("heuristics.batch_size", 200)
	viper.SetDefault("llm.provider", string(types.ProviderOpenAI))
	viper.SetDefault("llm.ollama.base_url", backend.DefaultOllamaBaseURL)
	viper.SetDefault("llm.openai.base_url", backend.DefaultOpenAIBaseURL)
	viper.SetDefault("llm.openai.model", "gpt-4o-mini")
	viper.SetDefault("llm.anthropic.model", backend.DefaultAnthropicModel)
	viper.SetDefault("llm.batch_size", 20)
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("llm.max_retries", 3)
	viper.SetDefault("llm.retry_base_delay", "1.5s")
	viper.SetDefault("llm.max_candidates", 50)
	viper.SetDefault("llm.batch_pause", "1s")
	viper.SetDefault("llm.workers", 1)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("affiliation-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "affiliation-engine"))
		}
	}

	viper.SetEnvPrefix("AFFILIATION_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig maps the viper settings into the pipeline configuration. API
// keys missing from the config fall back to .secrets/.
func loadConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Store: types.StoreConfig{Path: viper.GetString("store.path")},
		Heuristics: types.HeuristicsConfig{
			Keywords:       viper.GetStringSlice("heuristics.keywords"),
			MatchThreshold: viper.GetFloat64("heuristics.match_threshold"),
			BatchSize:      viper.GetInt("heuristics.batch_size"),
		},
		LLM: types.LLMConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("llm.timeout"),
				UserAgent: "affiliation-engine/" + version,
			},
			Provider: types.Provider(viper.GetString("llm.provider")),
			Ollama: types.AIConfig{
				BaseURL: viper.GetString("llm.ollama.base_url"),
				Model:   viper.GetString("llm.ollama.model"),
			},
			OpenAI: types.AIConfig{
				BaseURL: viper.GetString("llm.openai.base_url"),
				Model:   viper.GetString("llm.openai.model"),
				APIKey:  secrets.Lookup(loadedSecrets, secrets.OpenAIKey, viper.GetString("llm.openai.api_key")),
			},
			Anthropic: types.AIConfig{
				Model:  viper.GetString("llm.anthropic.model"),
				APIKey: secrets.Lookup(loadedSecrets, secrets.AnthropicKey, viper.GetString("llm.anthropic.api_key")),
			},
			BatchSize:      viper.GetInt("llm.batch_size"),
			MaxRetries:     viper.GetInt("llm.max_retries"),
			RetryBaseDelay: viper.GetDuration("llm.retry_base_delay"),
			MaxCandidates:  viper.GetInt("llm.max_candidates"),
			BatchPause:     viper.GetDuration("llm.batch_pause"),
			Workers:        viper.GetInt("llm.workers"),
		},
	}
}

func openStore(cfg types.PipelineConfig) (*store.Store, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", zap.String("path", cfg.Store.Path))
	return st, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
