// Package cfg holds the server's application configuration.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"time"

	"github.com/linnemanlabs/oasis/internal/advisory"
	"github.com/linnemanlabs/oasis/internal/classifier"
)

// Advisory providers.
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Advisory sampling defaults.
const (
	DefaultAdvisoryTemperature = 0.5
	DefaultAdvisoryMaxTokens   = 200
)

// defaultModels is used when AdvisoryModel is empty.
var defaultModels = map[string]string{
	ProviderClaude: "claude-sonnet-4-20250514",
	ProviderGemini: "gemini-2.0-flash",
	ProviderOpenAI: "gpt-4o-mini",
}

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string // comma-separated

	TrainingDataPath string
	ModelPath        string
	MaxDepth         int
	MinSamplesSplit  int
	HoldoutRatio     float64
	Seed             uint64

	AdvisoryProvider    string
	AdvisoryModel       string
	AdvisoryEndpoint    string
	AdvisoryTemperature float64
	AdvisoryMaxTokens   int
	AdvisoryTimeout     time.Duration
	AdvisoryRetries     uint
	ClaudeAPIKey        string
	GeminiAPIKey        string
	OpenAIAPIKey        string

	DatabaseURL     string
	DBMaxConns      int
	DBSlowQuery     time.Duration
	SlackWebhookURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	d := classifier.DefaultOptions()

	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "comma-separated bearer tokens accepted by the API")

	fs.StringVar(&c.TrainingDataPath, "training-data", "data/heat_cases.csv", "CSV of labelled vitals used to train the classifier")
	fs.StringVar(&c.ModelPath, "model-path", "", "trained model bundle to load instead of training at startup")
	fs.IntVar(&c.MaxDepth, "max-depth", d.MaxDepth, "decision tree max depth (>= 1)")
	fs.IntVar(&c.MinSamplesSplit, "min-samples-split", d.MinSamplesSplit, "minimum samples to split a node (>= 2)")
	fs.Float64Var(&c.HoldoutRatio, "holdout-ratio", d.HoldoutRatio, "fraction of examples held out for evaluation [0,1)")
	fs.Uint64Var(&c.Seed, "seed", d.Seed, "seed for the train/holdout shuffle")

	fs.StringVar(&c.AdvisoryProvider, "advisory-provider", ProviderClaude, "advisory LLM provider (claude|gemini|openai|none)")
	fs.StringVar(&c.AdvisoryModel, "advisory-model", "", "advisory model name (empty = provider default)")
	fs.StringVar(&c.AdvisoryEndpoint, "advisory-endpoint", "", "override the provider base URL")
	fs.Float64Var(&c.AdvisoryTemperature, "advisory-temperature", DefaultAdvisoryTemperature, "sampling temperature [0,1]")
	fs.IntVar(&c.AdvisoryMaxTokens, "advisory-max-tokens", DefaultAdvisoryMaxTokens, "maximum tokens in the advice")
	fs.DurationVar(&c.AdvisoryTimeout, "advisory-timeout", 30*time.Second, "deadline for one advisory call")
	fs.UintVar(&c.AdvisoryRetries, "advisory-retries", 1, "advisory attempts including the first (1 = no retry)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude provider")
	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", "", "API key for the Gemini provider")
	fs.StringVar(&c.OpenAIAPIKey, "openai-api-key", "", "API key for the OpenAI provider")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.IntVar(&c.DBMaxConns, "db-max-conns", 10, "maximum PostgreSQL pool connections (1..1000)")
	fs.DurationVar(&c.DBSlowQuery, "db-slow-query", 200*time.Millisecond, "log queries slower than this")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for high urgency notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}
	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	// Classifier: either a bundle to load or data to train from
	if c.ModelPath == "" && c.TrainingDataPath == "" {
		errs = append(errs, errors.New("one of MODEL_PATH or TRAINING_DATA is required"))
	}
	if c.ModelPath == "" {
		if err := c.TrainOptions().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("invalid training options: %w", err))
		}
	}

	errs = append(errs, c.validateAdvisory()...)

	if c.DatabaseURL != "" {
		if c.DBMaxConns <= 0 || c.DBMaxConns > 1000 {
			errs = append(errs, fmt.Errorf("invalid DB_MAX_CONNS %d (must be 1..1000)", c.DBMaxConns))
		}
		if c.DBSlowQuery < 0 {
			errs = append(errs, fmt.Errorf("invalid DB_SLOW_QUERY %v (must be >= 0)", c.DBSlowQuery))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c *Config) validateAdvisory() []error {
	var errs []error
	switch c.AdvisoryProvider {
	case ProviderNone:
		return nil
	case ProviderClaude:
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required for the claude provider"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		return []error{fmt.Errorf("invalid ADVISORY_PROVIDER %q (must be claude, gemini, openai or none)", c.AdvisoryProvider)}
	}

	if c.AdvisoryTemperature < 0 || c.AdvisoryTemperature > 1 || math.IsNaN(c.AdvisoryTemperature) {
		errs = append(errs, fmt.Errorf("invalid ADVISORY_TEMPERATURE %v (must be 0..1)", c.AdvisoryTemperature))
	}
	if c.AdvisoryMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("invalid ADVISORY_MAX_TOKENS %d (must be > 0)", c.AdvisoryMaxTokens))
	}
	if c.AdvisoryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid ADVISORY_TIMEOUT %v (must be > 0)", c.AdvisoryTimeout))
	}
	if c.AdvisoryRetries < 1 || c.AdvisoryRetries > 10 {
		errs = append(errs, fmt.Errorf("invalid ADVISORY_RETRIES %d (must be 1..10)", c.AdvisoryRetries))
	}
	return errs
}

// AdviceEnabled reports whether an advisory provider is configured.
func (c *Config) AdviceEnabled() bool {
	return c.AdvisoryProvider != ProviderNone && c.AdvisoryProvider != ""
}

// TrainOptions returns the classifier options.
func (c *Config) TrainOptions() classifier.Options {
	return classifier.Options{
		MaxDepth:        c.MaxDepth,
		MinSamplesSplit: c.MinSamplesSplit,
		HoldoutRatio:    c.HoldoutRatio,
		Seed:            c.Seed,
	}
}

// Advisory returns the per-request advisory config, resolving the provider
// default model when none is set.
func (c *Config) Advisory() advisory.Config {
	name := c.AdvisoryModel
	if name == "" {
		name = defaultModels[c.AdvisoryProvider]
	}
	return advisory.Config{
		ModelName:   name,
		Temperature: c.AdvisoryTemperature,
		MaxTokens:   c.AdvisoryMaxTokens,
		Timeout:     c.AdvisoryTimeout,
	}
}
