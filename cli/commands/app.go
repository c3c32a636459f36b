// Package commands implements the instruct command line with Cobra.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/instructor/cli/config"
	"github.com/petal-labs/instructor/cli/keystore"
	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/middleware"
	"github.com/petal-labs/instructor/providers"

	// Transports register themselves with the providers registry.
	_ "github.com/petal-labs/instructor/providers/goopenai"
	_ "github.com/petal-labs/instructor/providers/openai"
	_ "github.com/petal-labs/instructor/providers/openaigo"
)

// DefaultTransport is used when neither flag nor config names one.
const DefaultTransport = "openai"

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// TransportFactory creates a registered transport by name.
type TransportFactory func(name string, cfg providers.Config) (core.Transport, error)

// KeystoreFactory opens the key store.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig   ConfigLoader
	newTransport TransportFactory
	newKeystore  KeystoreFactory
	getenv       func(string) string
	isTerminal   func(w io.Writer) bool
	stdin        io.Reader
	stdout       io.Writer
	stderr       io.Writer

	cfgFile    string
	transport  string
	model      string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger *slog.Logger

	extract  extractFlags
	initOpts initFlags
}

// WithConfigLoader injects a config loader.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithTransportFactory injects a transport factory.
func WithTransportFactory(factory TransportFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newTransport = factory
		}
	}
}

// WithKeystoreFactory injects a keystore factory.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithEnv replaces os.Getenv for API key lookup.
func WithEnv(getenv func(string) string) AppOption {
	return func(a *App) {
		if getenv != nil {
			a.getenv = getenv
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:   config.LoadConfig,
		newTransport: providers.Create,
		newKeystore: func() (keystore.Keystore, error) {
			return keystore.Open(keystore.DefaultKeystorePath(config.Dir()))
		},
		getenv:     os.Getenv,
		isTerminal: isTerminal,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "instruct",
		Short: "Structured extraction from chat-completion models",
		Long: `instruct asks a chat-completion model for output matching a JSON Schema,
validates it and retries with the validation errors until it conforms.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default $"+config.EnvConfigPath+" or ~/.instructor/config.yaml)")
	root.PersistentFlags().StringVar(&a.transport, "transport", "", "registered transport ("+strings.Join(providers.List(), ", ")+")")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model ID (e.g. gpt-4o)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")

	root.AddCommand(a.newExtractCommand())
	root.AddCommand(a.newDetectCommand())
	root.AddCommand(a.newModesCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newInitCommand())
	root.AddCommand(a.newVersionCommand())
	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	err := a.root.Execute()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return err
}

// SetArgs overrides os.Args for the next Execute.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

func (a *App) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	return config.DefaultConfigPath()
}

func (a *App) initConfig() error {
	cfg, err := a.loadConfig(a.configPath())
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}
	a.cfg = cfg

	if a.transport == "" {
		a.transport = cfg.DefaultTransport
	}
	if a.transport == "" {
		a.transport = DefaultTransport
	}
	if a.model == "" {
		a.model = cfg.DefaultModel
	}
	if a.logLevel == "" {
		a.logLevel = cfg.LogLevel
	}

	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{
		Level: parseLevel(a.logLevel),
	}))
	return nil
}

// parseLevel maps a level name to slog. Unknown names mean warn.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// apiKey resolves the key for a transport: the configured or registered
// environment variable first, then the keystore.
func (a *App) apiKey(name string) (string, error) {
	envName := ""
	if tc := a.cfg.Transport(name); tc != nil {
		envName = tc.APIKeyEnv
	}
	if envName == "" {
		if r, ok := providers.Lookup(name); ok {
			envName = r.APIKeyEnv
		}
	}
	if envName != "" {
		if k := a.getenv(envName); k != "" {
			return k, nil
		}
	}

	ks, err := a.newKeystore()
	if err == nil {
		if k, kerr := ks.Get(name); kerr == nil {
			return k, nil
		}
	}
	return "", exitWithCode(ExitValidation, fmt.Errorf(
		"no API key for %s: set $%s or run 'instruct keys set %s'", name, envName, name))
}

// buildTransport creates the selected transport with its key and base URL.
func (a *App) buildTransport(baseURL string) (core.Transport, error) {
	name := strings.ToLower(a.transport)
	if !providers.IsRegistered(name) {
		return nil, exitWithCode(ExitValidation, fmt.Errorf(
			"unknown transport %q (available: %s)", a.transport, strings.Join(providers.List(), ", ")))
	}
	key, err := a.apiKey(name)
	if err != nil {
		return nil, err
	}
	tc := a.cfg.Transport(name)
	if tc == nil {
		tc = &config.TransportConfig{}
	}
	if baseURL == "" {
		baseURL = tc.BaseURL
	}
	tr, err := a.newTransport(name, providers.Config{APIKey: key, BaseURL: baseURL})
	if err != nil {
		return nil, exitWithCode(ExitValidation, err)
	}

	mws := []middleware.Middleware{middleware.WithLogging(a.logger)}
	if tc.Retries > 0 {
		mws = append(mws, middleware.WithRetry(middleware.RetryConfig{
			MaxRetries: uint64(tc.Retries),
			OnRetry: func(err error, wait time.Duration) {
				a.logger.Info("transport retry", "transport", name, "wait", wait, "error", err)
			},
		}))
	}
	if tc.BreakerThreshold > 0 {
		mws = append(mws, middleware.WithCircuitBreaker(middleware.BreakerConfig{
			FailureThreshold: tc.BreakerThreshold,
			OpenDuration:     tc.BreakerCooldown,
		}))
	}
	if tc.RateLimit > 0 {
		mws = append(mws, middleware.WithRateLimit(tc.RateLimit, 1))
	}
	mws = append(mws, middleware.WithTimeout(tc.Timeout))

	a.logger.Debug("transport ready", "transport", name, "base_url", tr.BaseURL(),
		"timeout", tc.Timeout, "rate_limit", tc.RateLimit, "retries", tc.Retries,
		"breaker_threshold", tc.BreakerThreshold)
	return middleware.Chain(tr, mws...), nil
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

var defaultApp = NewApp()

// Execute runs the default app.
func Execute() error {
	return defaultApp.Execute()
}
