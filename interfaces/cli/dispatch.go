package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainconfig "github.com/legisflow/legisflow/domain/config"
	infraconfig "github.com/legisflow/legisflow/infrastructure/config"
	"github.com/legisflow/legisflow/infrastructure/logging"
)

type dispatchOptions struct {
	interval time.Duration
	watch    bool
}

func (a *App) newDispatchCmd() *cobra.Command {
	opts := &dispatchOptions{}

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Deliver pending notifications to webhook endpoints",
		Long: `Deliver pending notifications to the webhook endpoint configured for
their channel. Without --interval a single pass runs. With --interval the
dispatcher keeps running until interrupted; --watch then reloads the endpoint
table whenever the configuration file changes.

Examples:
  legisflow dispatch
  legisflow dispatch --interval 30s --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch && opts.interval <= 0 {
				return errors.New("--watch requires --interval")
			}
			return a.dispatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Run continuously with this pass interval")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload endpoints when the configuration file changes")

	return cmd
}

func (a *App) dispatch(ctx context.Context, opts *dispatchOptions) error {
	rt, _, path, err := a.openRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logging.Warn().Add(logging.ErrorField(cerr)).Msg("runtime close failed")
		}
	}()

	if rt.Dispatcher == nil {
		return errors.New("notification dispatch is disabled in the configuration")
	}

	if opts.interval <= 0 {
		report, err := rt.Dispatcher.DispatchPending(ctx)
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return a.printJSON(report)
		}
		_, _ = fmt.Fprintf(a.stdout, "Sent %d, failed %d, skipped %d\n", report.Sent, report.Failed, report.Skipped)
		return nil
	}

	if opts.watch {
		w, err := infraconfig.NewWatcher(path, func(cfg *domainconfig.Config) {
			rt.Dispatcher.SetEndpoints(infraconfig.Endpoints(cfg.Notification))
		})
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
	}

	err = rt.Dispatcher.Run(ctx, opts.interval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
