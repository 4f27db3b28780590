// Package app wires configuration, logging, the engine adapters, and
// the check manager into a running application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/check"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/config"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/engine/infer"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/engine/rule"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/logging"
	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/suggest"
)

// Options come from command-line flags and override file configuration.
type Options struct {
	// ConfigPath is the TOML configuration file. Empty means defaults
	// plus environment.
	ConfigPath string

	// Mode overrides the configured checking mode when non-empty.
	Mode string

	// Profile overrides the configured profile when non-empty.
	Profile string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
}

// App owns the assembled checking stack.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	manager *check.Manager
	logFile *os.File
}

// New loads configuration and assembles the checking stack. The
// inference engine is left out when no API key is configured; the
// manager then runs rule-only regardless of mode.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Mode != "" {
		cfg.Checking.Mode = opts.Mode
	}
	if opts.Profile != "" {
		cfg.Checking.Profile = opts.Profile
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg}
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		a.logFile = f
		logCfg.Output = f
	}
	a.logger = logging.New(logCfg)

	mode := check.ParseMode(cfg.Checking.Mode)

	ruleCfg := rule.DefaultConfig()
	ruleCfg.Language = cfg.Rule.Language
	ruleCfg.DisabledRules = cfg.Rule.DisabledRules
	ruleCfg.CacheSize = cfg.Rule.CacheSize
	ruleCfg.Timeout = cfg.Rule.Timeout.Std()
	ruleEngine := rule.NewAdapter(rule.NewHTTPClient(cfg.Rule.Endpoint), ruleCfg, a.logger)

	mgrCfg := check.Config{
		Mode:    mode,
		Profile: check.ProfileByName(cfg.Checking.Profile),
		Rule:    ruleEngine,
		Logger:  a.logger,
	}

	if cfg.Inference.APIKey != "" {
		client, err := infer.NewClient(infer.ClientConfig{
			Provider: cfg.Inference.Provider,
			Model:    cfg.Inference.Model,
			APIKey:   cfg.Inference.APIKey,
			BaseURL:  cfg.Inference.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		inferCfg := infer.DefaultConfig()
		inferCfg.Template = cfg.Inference.Template
		inferCfg.Sampling = infer.SamplingParams{
			Temperature: cfg.Inference.Temperature,
			MaxTokens:   cfg.Inference.MaxTokens,
		}
		inferCfg.CacheSize = cfg.Inference.CacheSize
		inferCfg.Timeout = cfg.Inference.Timeout.Std()
		mgrCfg.Inference = infer.NewAdapter(client, inferCfg, a.logger)
	} else if mode == check.ModeHybrid || mode == check.ModeInferenceOnly {
		a.logger.Warn("no inference API key configured; running without the inference engine")
	}

	a.manager = check.New(mgrCfg)
	return a, nil
}

// Manager exposes the check manager for embedding hosts.
func (a *App) Manager() *check.Manager { return a.manager }

// Config returns the effective configuration.
func (a *App) Config() config.Config { return a.cfg }

// CheckFile checks one document and writes its findings to w, one line
// per suggestion. It returns the number of findings.
func (a *App) CheckFile(ctx context.Context, path string, w io.Writer) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	result, err := a.manager.CheckNow(ctx, string(data))
	if err != nil {
		return 0, err
	}
	if !result.RuleResult.Success && !result.InferenceResult.Success {
		return 0, errors.New("all engines failed")
	}

	for _, s := range result.Suggestions {
		line, col := locate(string(data), s.Span.Start)
		fmt.Fprintf(w, "%s:%d:%d: %s\n", path, line, col, suggest.Format(s))
	}
	return len(result.Suggestions), nil
}

// Shutdown releases the manager and the log file.
func (a *App) Shutdown() {
	a.manager.Shutdown()
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// locate converts a byte offset to 1-based line and column numbers.
func locate(text string, offset int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
