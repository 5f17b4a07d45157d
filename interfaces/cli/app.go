// Package cli provides the command-line interface for the legisflow stage engine.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	legisflow "github.com/legisflow/legisflow"
	domainconfig "github.com/legisflow/legisflow/domain/config"
	infraconfig "github.com/legisflow/legisflow/infrastructure/config"
	"github.com/legisflow/legisflow/infrastructure/logging"
)

// Version information set at build time.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ConfigEnv names the environment variable consulted when --config is absent.
const ConfigEnv = "LEGISFLOW_CONFIG"

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	jsonOutput bool

	builderOpts []infraconfig.BuilderOption
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "legisflow",
		Short: "Stage engine for legislative proposals",
		Long: `legisflow routes legislative proposals through the stages of their
tramitation. Each proposal moves between organizational units following
configured routing rules, with business-day deadlines, an audit history and
webhook notifications for every transition.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file (default: $"+ConfigEnv+")")
	app.root.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "Output results as JSON")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newExportSchemaCmd(),
		app.newStageCmd(),
		app.newOverdueCmd(),
		app.newDueCmd(),
		app.newRulesCmd(),
		app.newCatalogCmd(),
		app.newNotificationsCmd(),
		app.newExportCmd(),
		app.newImportCmd(),
		app.newDispatchCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithBuilderOptions passes options to the runtime builder.
func (a *App) WithBuilderOptions(opts ...infraconfig.BuilderOption) *App {
	a.builderOpts = append(a.builderOpts, opts...)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "legisflow version %s\n", legisflow.GetVersion())
			_, _ = fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}

func (a *App) resolveConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	if p := os.Getenv(ConfigEnv); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("configuration file path is required (-c flag or $%s)", ConfigEnv)
}

func (a *App) loadConfig(opts ...infraconfig.LoaderOption) (*domainconfig.Config, string, error) {
	path, err := a.resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := infraconfig.NewLoaderWithOptions(opts...).LoadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, path, nil
}

func (a *App) initLogging(cfg *domainconfig.Config) {
	lc := logging.ProductionConfig()
	if cfg.Logging.Level != "" {
		lc.Level = cfg.Logging.Level
	}
	if cfg.Logging.Format != "" {
		lc.Format = cfg.Logging.Format
	}
	lc.Output = a.stderr
	logging.Init(lc)
}

// openRuntime loads the configuration and builds the runtime. The caller
// closes the returned runtime.
func (a *App) openRuntime(ctx context.Context) (*infraconfig.Runtime, *domainconfig.Config, string, error) {
	cfg, path, err := a.loadConfig(infraconfig.WithValidation(true))
	if err != nil {
		return nil, nil, "", err
	}
	a.initLogging(cfg)

	rt, err := infraconfig.NewBuilder(cfg, a.builderOpts...).Build(ctx)
	if err != nil {
		return nil, nil, "", err
	}
	return rt, cfg, path, nil
}

// withRuntime runs fn against a freshly built runtime and closes it afterwards.
func (a *App) withRuntime(ctx context.Context, fn func(rt *infraconfig.Runtime) error) error {
	rt, _, _, err := a.openRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logging.Warn().Add(logging.ErrorField(cerr)).Msg("runtime close failed")
		}
	}()
	return fn(rt)
}
