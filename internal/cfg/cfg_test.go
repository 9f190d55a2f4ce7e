package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
	"time"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		APIToken:              "test-token-123",
		TrainingDataPath:      "data/heat_cases.csv",
		MaxDepth:              3,
		MinSamplesSplit:       2,
		HoldoutRatio:          0.3,
		Seed:                  42,
		AdvisoryProvider:      ProviderClaude,
		AdvisoryTemperature:   0.5,
		AdvisoryMaxTokens:     200,
		AdvisoryTimeout:       30 * time.Second,
		AdvisoryRetries:       1,
		ClaudeAPIKey:          "sk-test-key",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.MaxDepth != 3 || c.MinSamplesSplit != 2 || c.HoldoutRatio != 0.3 || c.Seed != 42 {
		t.Errorf("training defaults = %+v", c.TrainOptions())
	}
	if c.AdvisoryProvider != ProviderClaude {
		t.Errorf("AdvisoryProvider = %q, want claude", c.AdvisoryProvider)
	}
	if c.AdvisoryRetries != 1 {
		t.Errorf("AdvisoryRetries = %d, want 1", c.AdvisoryRetries)
	}
	if c.AdvisoryTimeout != 30*time.Second {
		t.Errorf("AdvisoryTimeout = %v, want 30s", c.AdvisoryTimeout)
	}
	if c.AdvisoryTemperature != 0.5 || c.AdvisoryMaxTokens != 200 {
		t.Errorf("temperature/max tokens = %v/%d, want 0.5/200", c.AdvisoryTemperature, c.AdvisoryMaxTokens)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-http-port", "9090",
		"-advisory-provider", "gemini",
		"-gemini-api-key", "g-key",
		"-advisory-model", "gemini-1.5-pro",
		"-advisory-timeout", "5s",
		"-advisory-retries", "3",
		"-max-depth", "5",
		"-seed", "7",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.AdvisoryProvider != ProviderGemini || c.GeminiAPIKey != "g-key" {
		t.Errorf("provider = %q key = %q", c.AdvisoryProvider, c.GeminiAPIKey)
	}
	if c.AdvisoryRetries != 3 {
		t.Errorf("AdvisoryRetries = %d, want 3", c.AdvisoryRetries)
	}
	if got := c.Advisory(); got.ModelName != "gemini-1.5-pro" || got.Timeout != 5*time.Second {
		t.Errorf("Advisory() = %+v", got)
	}
	if got := c.TrainOptions(); got.MaxDepth != 5 || got.Seed != 7 {
		t.Errorf("TrainOptions() = %+v", got)
	}
}

func TestAdvisory_DefaultModel(t *testing.T) {
	t.Parallel()

	for _, p := range []string{ProviderClaude, ProviderGemini, ProviderOpenAI} {
		c := validBase()
		c.AdvisoryProvider = p
		if got := c.Advisory(); got.ModelName == "" {
			t.Errorf("%s: no default model", p)
		}
		if err := c.Advisory().Validate(); err != nil {
			t.Errorf("%s: advisory config invalid: %v", p, err)
		}
	}
}

func TestAdviceEnabled(t *testing.T) {
	t.Parallel()

	c := validBase()
	if !c.AdviceEnabled() {
		t.Error("claude provider should enable advice")
	}
	c.AdvisoryProvider = ProviderNone
	if c.AdviceEnabled() {
		t.Error("none provider should disable advice")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	with := func(mut func(*Config)) Config {
		c := validBase()
		mut(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name:    "minimum valid values",
			cfg:     with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 1, 2, 1 }),
			wantErr: false,
		},
		{
			name:    "maximum valid values",
			cfg:     with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 299, 300, 65535 }),
			wantErr: false,
		},
		{
			name:      "drain zero",
			cfg:       with(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "budget equals drain",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 60 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "budget above max",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "port above max",
			cfg:       with(func(c *Config) { c.APIPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "empty api token",
			cfg:       with(func(c *Config) { c.APIToken = "" }),
			wantErr:   true,
			errSubstr: []string{"API_TOKEN"},
		},
		{
			name:      "no model source",
			cfg:       with(func(c *Config) { c.TrainingDataPath = "" }),
			wantErr:   true,
			errSubstr: []string{"MODEL_PATH"},
		},
		{
			name: "model path skips training options",
			cfg: with(func(c *Config) {
				c.TrainingDataPath, c.ModelPath, c.MaxDepth = "", "model.json", 0
			}),
			wantErr: false,
		},
		{
			name:      "bad max depth",
			cfg:       with(func(c *Config) { c.MaxDepth = 0 }),
			wantErr:   true,
			errSubstr: []string{"max depth"},
		},
		{
			name:      "bad holdout",
			cfg:       with(func(c *Config) { c.HoldoutRatio = 1 }),
			wantErr:   true,
			errSubstr: []string{"holdout"},
		},
		{
			name:      "unknown provider",
			cfg:       with(func(c *Config) { c.AdvisoryProvider = "bard" }),
			wantErr:   true,
			errSubstr: []string{"ADVISORY_PROVIDER"},
		},
		{
			name:      "claude without key",
			cfg:       with(func(c *Config) { c.ClaudeAPIKey = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name:      "gemini without key",
			cfg:       with(func(c *Config) { c.AdvisoryProvider = ProviderGemini }),
			wantErr:   true,
			errSubstr: []string{"GEMINI_API_KEY"},
		},
		{
			name:      "openai without key",
			cfg:       with(func(c *Config) { c.AdvisoryProvider = ProviderOpenAI }),
			wantErr:   true,
			errSubstr: []string{"OPENAI_API_KEY"},
		},
		{
			name: "none provider ignores advisory fields",
			cfg: with(func(c *Config) {
				c.AdvisoryProvider, c.ClaudeAPIKey, c.AdvisoryTimeout, c.AdvisoryRetries = ProviderNone, "", 0, 0
			}),
			wantErr: false,
		},
		{
			name:      "temperature out of range",
			cfg:       with(func(c *Config) { c.AdvisoryTemperature = 1.5 }),
			wantErr:   true,
			errSubstr: []string{"ADVISORY_TEMPERATURE"},
		},
		{
			name:      "temperature NaN",
			cfg:       with(func(c *Config) { c.AdvisoryTemperature = math.NaN() }),
			wantErr:   true,
			errSubstr: []string{"ADVISORY_TEMPERATURE"},
		},
		{
			name:      "zero timeout",
			cfg:       with(func(c *Config) { c.AdvisoryTimeout = 0 }),
			wantErr:   true,
			errSubstr: []string{"ADVISORY_TIMEOUT"},
		},
		{
			name:      "zero retries",
			cfg:       with(func(c *Config) { c.AdvisoryRetries = 0 }),
			wantErr:   true,
			errSubstr: []string{"ADVISORY_RETRIES"},
		},
		{
			name:      "bad db pool size",
			cfg:       with(func(c *Config) { c.DatabaseURL, c.DBMaxConns = "postgres://x", 0 }),
			wantErr:   true,
			errSubstr: []string{"DB_MAX_CONNS"},
		},
		{
			name:      "all fields invalid",
			cfg:       Config{AdvisoryProvider: ProviderClaude},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "API_TOKEN", "MODEL_PATH", "CLAUDE_API_KEY", "ADVISORY_TIMEOUT"},
		},
		{
			name:      "extreme negative values",
			cfg:       with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = math.MinInt32, math.MinInt32, math.MinInt32 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	seeds := []struct {
		drain, budget, port int
		token, key          string
	}{
		{60, 90, 8080, "tok", "sk-test"},
		{1, 2, 1, "t", "k"},
		{299, 300, 65535, "t", "k"},
		{0, 0, 0, "", ""},
		{-1, -1, -1, "", ""},
		{300, 300, 65535, "t", "k"},
		{301, 302, 65536, "", ""},
		{150, 100, 8080, "t", "k"},
		{math.MinInt32, math.MinInt32, math.MinInt32, "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.token, s.key)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port int, token, key string) {
		c := validBase()
		c.DrainSeconds = drain
		c.ShutdownBudgetSeconds = budget
		c.APIPort = port
		c.APIToken = token
		c.ClaudeAPIKey = key
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		allValid := drainOK && budgetOK && portOK && crossOK && token != "" && key != ""

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
