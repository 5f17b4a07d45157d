package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/legisflow/legisflow/infrastructure/config"
)

type validateOptions struct {
	strict bool
	build  bool
}

func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file for correctness.

This command checks:
  - File format (YAML or JSON) and unknown fields
  - Required fields (name, version)
  - Backend selections and their connection settings
  - Catalog and rule declarations
  - Environment variable references (in strict mode)

With --build the runtime is also built, which opens the configured backends
and seeds the catalog and rules.

Examples:
  legisflow validate -c legisflow.yaml
  legisflow validate -c legisflow.yaml --strict --build`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on undefined environment variables")
	cmd.Flags().BoolVar(&opts.build, "build", false, "Also build the runtime against the configured backends")

	return cmd
}

func (a *App) validateConfig(ctx context.Context, opts *validateOptions) error {
	config, _, err := a.loadConfig(
		infraconfig.WithValidation(true),
		infraconfig.WithStrictEnv(opts.strict),
	)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if opts.build {
		a.initLogging(config)
		rt, err := infraconfig.NewBuilder(config, a.builderOpts...).Build(ctx)
		if err != nil {
			return fmt.Errorf("configuration build failed: %w", err)
		}
		if err := rt.Close(); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	_, _ = fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	_, _ = fmt.Fprintf(a.stdout, "  Version: %s\n", config.Version)

	backend := config.Storage.Backend
	if backend == "" {
		backend = "memory"
	}
	_, _ = fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(a.stdout, "  Storage: %s\n", backend)
	if config.Lock.Backend != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Lock: %s\n", config.Lock.Backend)
	}
	if config.Engine.Lenient {
		_, _ = fmt.Fprintf(a.stdout, "  Transitions: lenient\n")
	}
	_, _ = fmt.Fprintf(a.stdout, "  Catalog: %d proposal types, %d units, %d stage types\n",
		len(config.Catalog.ProposalTypes), len(config.Catalog.Units), len(config.Catalog.StageTypes))
	_, _ = fmt.Fprintf(a.stdout, "  Rules: %d\n", len(config.Rules))
	for _, r := range config.Rules {
		_, _ = fmt.Fprintf(a.stdout, "    - %s (%d steps)\n", r.ID, len(r.Steps))
	}
	if config.Notification.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Notifications: enabled (%d endpoints)\n", len(config.Notification.Endpoints))
	}
	if config.Archive.Backend != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Archive: %s\n", config.Archive.Backend)
	}

	return nil
}
