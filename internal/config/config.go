// Package config loads checking configuration from three layers with
// increasing precedence: built-in defaults, an optional TOML file, and
// ARTISAN_* environment variables. Environment variables are the only
// place API keys are read from.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration unmarshals from TOML strings like "5s" or "1500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration.
type Config struct {
	Checking  CheckingConfig  `toml:"checking"`
	Rule      RuleConfig      `toml:"rule"`
	Inference InferenceConfig `toml:"inference"`
	Logging   LoggingConfig   `toml:"logging"`
}

// CheckingConfig controls the orchestrator.
type CheckingConfig struct {
	// Mode selects participating engines: "disabled", "rule-only",
	// "inference-only", or "hybrid".
	Mode string `toml:"mode"`

	// Profile selects checking cadence: "fast", "balanced", or
	// "thorough".
	Profile string `toml:"profile"`
}

// RuleConfig controls the rule engine adapter.
type RuleConfig struct {
	// Endpoint is the base URL of the rule checking service.
	Endpoint string `toml:"endpoint"`

	// Language is the document language code, e.g. "en-US".
	Language string `toml:"language"`

	// DisabledRules lists rule IDs to suppress server-side.
	DisabledRules []string `toml:"disabled_rules"`

	// CacheSize is the result cache capacity in documents.
	CacheSize int `toml:"cache_size"`

	// Timeout is the per-call deadline.
	Timeout Duration `toml:"timeout"`
}

// InferenceConfig controls the inference engine adapter.
type InferenceConfig struct {
	// Provider is "openai" or "anthropic".
	Provider string `toml:"provider"`

	// Model is the provider model identifier.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint. Empty means the
	// provider default.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates with the provider. Set it through
	// ARTISAN_OPENAI_KEY or ARTISAN_ANTHROPIC_KEY, not the file.
	APIKey string `toml:"-"`

	// Template names the prompt template, e.g. "proofread" or "style".
	Template string `toml:"template"`

	// Temperature is the sampling temperature.
	Temperature float64 `toml:"temperature"`

	// MaxTokens caps the response length.
	MaxTokens int `toml:"max_tokens"`

	// CacheSize is the result cache capacity in documents.
	CacheSize int `toml:"cache_size"`

	// Timeout is the per-call deadline.
	Timeout Duration `toml:"timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `toml:"level"`

	// File is the log file path. Empty means stderr.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Checking: CheckingConfig{
			Mode:    "hybrid",
			Profile: "balanced",
		},
		Rule: RuleConfig{
			Endpoint:  "http://localhost:8010",
			Language:  "en-US",
			CacheSize: 32,
			Timeout:   Duration(5 * time.Second),
		},
		Inference: InferenceConfig{
			Provider:    "anthropic",
			Model:       "claude-3-5-haiku-latest",
			Template:    "proofread",
			Temperature: 0.2,
			MaxTokens:   1024,
			CacheSize:   8,
			Timeout:     Duration(60 * time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path
// (skipped when path is empty or the file does not exist), and the
// environment, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Missing file is not an error; defaults apply.
		case err != nil:
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays ARTISAN_* environment variables. lookup is
// parameterized for tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	setString("ARTISAN_CHECK_MODE", &c.Checking.Mode)
	setString("ARTISAN_CHECK_PROFILE", &c.Checking.Profile)
	setString("ARTISAN_RULE_ENDPOINT", &c.Rule.Endpoint)
	setString("ARTISAN_RULE_LANGUAGE", &c.Rule.Language)
	setString("ARTISAN_INFERENCE_PROVIDER", &c.Inference.Provider)
	setString("ARTISAN_INFERENCE_MODEL", &c.Inference.Model)
	setString("ARTISAN_INFERENCE_BASE_URL", &c.Inference.BaseURL)
	setString("ARTISAN_INFERENCE_TEMPLATE", &c.Inference.Template)
	setString("ARTISAN_LOG_LEVEL", &c.Logging.Level)
	setString("ARTISAN_LOG_FILE", &c.Logging.File)

	if v, ok := lookup("ARTISAN_INFERENCE_MAX_TOKENS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Inference.MaxTokens = n
		}
	}

	// Sensitive settings live only in the environment.
	switch c.Inference.Provider {
	case "openai":
		setString("ARTISAN_OPENAI_KEY", &c.Inference.APIKey)
	default:
		setString("ARTISAN_ANTHROPIC_KEY", &c.Inference.APIKey)
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Checking.Mode {
	case "disabled", "rule-only", "inference-only", "hybrid":
	default:
		return fmt.Errorf("invalid checking mode %q", c.Checking.Mode)
	}
	switch c.Checking.Profile {
	case "fast", "balanced", "thorough":
	default:
		return fmt.Errorf("invalid checking profile %q", c.Checking.Profile)
	}
	switch c.Inference.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("invalid inference provider %q", c.Inference.Provider)
	}
	if c.Rule.Endpoint == "" {
		return fmt.Errorf("rule endpoint must not be empty")
	}
	if c.Rule.CacheSize <= 0 || c.Inference.CacheSize <= 0 {
		return fmt.Errorf("cache sizes must be positive")
	}
	if c.Rule.Timeout <= 0 || c.Inference.Timeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
