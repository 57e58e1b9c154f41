package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/skill-ranker/internal/ai/gemini"
	"github.com/spigell/skill-ranker/internal/filtering"
	"github.com/spigell/skill-ranker/internal/matching"
)

const (
	app = "skill-ranker"

	providerDictionary = "dictionary"
	providerGemini     = "gemini"
)

type Config struct {
	Ranking   *RankingConfig    `mapstructure:"ranking" validate:"required"`
	Extractor *ExtractorConfig  `mapstructure:"extractor" validate:"required"`
	Filters   *filtering.Config `mapstructure:"filters" validate:"required"`
	AI        *AIConfig         `mapstructure:"ai" validate:"required"`
}

type RankingConfig struct {
	FuzzyThreshold  float64                  `mapstructure:"fuzzy-threshold" validate:"gte=0,lte=100"`
	Concurrency     int                      `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	IncludeAnalysis bool                     `mapstructure:"include-analysis"`
	Weights         matching.WeightOverrides `mapstructure:"weights"`
}

type ExtractorConfig struct {
	Provider       string `mapstructure:"provider" validate:"oneof=dictionary gemini"`
	VocabularyFile string `mapstructure:"vocabulary-file"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini" validate:"required"`
}

type GeminiConfig struct {
	APIKey        string `mapstructure:"api-key" json:"-"`
	APIKeyFile    string `mapstructure:"api-key-file"`
	gemini.Config `mapstructure:",squash"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skill-ranker ranks candidates against a job posting by skills and semantic similarity",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skill-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ranking.fuzzy-threshold", 80.0)
	v.SetDefault("ranking.concurrency", 4)
	v.SetDefault("ranking.include-analysis", false)

	v.SetDefault("extractor.provider", providerDictionary)
	v.SetDefault("extractor.vocabulary-file", "")

	v.SetDefault("filters.minimum-score", 0.0)
	v.SetDefault("filters.max-missing-skills", -1)
	v.SetDefault("filters.top", 0)
	v.SetDefault("filters.exclude-file", "")

	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", gemini.DefaultModel)
	v.SetDefault("ai.gemini.embedding-model", gemini.DefaultEmbeddingModel)
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("ai.gemini.requests-per-second", 5.0)
	v.SetDefault("ai.gemini.circuit-breaker.enabled", true)
	v.SetDefault("ai.gemini.circuit-breaker.max-requests", 1)
	v.SetDefault("ai.gemini.circuit-breaker.interval", "60s")
	v.SetDefault("ai.gemini.circuit-breaker.timeout", "30s")
	v.SetDefault("ai.gemini.circuit-breaker.min-requests", 5)
	v.SetDefault("ai.gemini.circuit-breaker.failure-threshold", 0.6)
}

func initConfig() {
	// Config needed only for rank command. Skip initialization for the rest.
	if rankCmd.CalledAs() == "" {
		return
	}

	// .env is optional; variables already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults are enough when no config file is present, but an
		// explicit or broken config file is fatal.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	config.Extractor.Provider = strings.ToLower(strings.TrimSpace(config.Extractor.Provider))

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return config, nil
}
