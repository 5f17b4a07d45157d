package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/legisflow/legisflow/application"
	"github.com/legisflow/legisflow/domain/stage"
	infraconfig "github.com/legisflow/legisflow/infrastructure/config"
)

func (a *App) newStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Create, transition and inspect stage instances",
	}

	cmd.AddCommand(
		a.newStageCreateCmd(),
		a.newStageAdvanceCmd(),
		a.newStageFinalizeCmd(),
		a.newStageReopenCmd(),
		a.newStageCancelCmd(),
		a.newStageShowCmd(),
		a.newStageCurrentCmd(),
		a.newStageHistoryCmd(),
	)
	return cmd
}

func (a *App) newStageCreateCmd() *cobra.Command {
	var (
		stageTypeID string
		unitID      string
		opts        application.CreateOptions
	)

	cmd := &cobra.Command{
		Use:     "create <proposal-id>",
		Short:   "Open the first stage of a proposal",
		Example: `  legisflow stage create PL-12/2025 --stage-type received --unit board`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				created, err := rt.Engine.CreateInitialStage(cmd.Context(), args[0], stageTypeID, unitID, opts)
				if err != nil {
					return err
				}
				return a.printStage(created)
			})
		},
	}

	cmd.Flags().StringVar(&stageTypeID, "stage-type", "", "Stage type ID (required)")
	cmd.Flags().StringVar(&unitID, "unit", "", "Unit ID (required)")
	cmd.Flags().StringVar(&opts.ActorID, "actor", "", "Acting user")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&opts.ResponsibleID, "responsible", "", "Responsible party")
	cmd.Flags().IntVar(&opts.DeadlineDays, "deadline-days", 0, "Business-day deadline overriding the stage type")
	_ = cmd.MarkFlagRequired("stage-type")
	_ = cmd.MarkFlagRequired("unit")

	return cmd
}

func (a *App) newStageAdvanceCmd() *cobra.Command {
	var opts application.AdvanceOptions

	cmd := &cobra.Command{
		Use:   "advance <stage-id>",
		Short: "Complete a stage and open the next one",
		Long: `Complete an in-progress stage and open the stage of the next routing step.

The routing rule is matched against the stage unless --rule is given. The
stage's position within the rule is derived from its stage type and unit
unless --step pins it. When no step follows, the workflow ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				result, err := rt.Engine.Advance(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(result)
				}

				_, _ = fmt.Fprintf(a.stdout, "Completed %s\n", result.Completed.ID)
				if result.NewStage == nil {
					_, _ = fmt.Fprintln(a.stdout, "Workflow ended")
				} else {
					a.printStages([]*stage.Instance{result.NewStage})
				}
				if len(result.Notifications) > 0 {
					a.printNotifications(result.Notifications)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.ActorID, "actor", "", "Acting user")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "Comment recorded on the transition")
	cmd.Flags().StringVar(&opts.RuleID, "rule", "", "Routing rule to follow instead of matching")
	cmd.Flags().StringVar(&opts.StepID, "step", "", "Current step within the rule")
	cmd.Flags().StringVar(&opts.FallbackUnitID, "fallback-unit", "", "Unit used when the next step names none")

	return cmd
}

func (a *App) newStageFinalizeCmd() *cobra.Command {
	var (
		outcome string
		opts    application.FinalizeOptions
	)

	cmd := &cobra.Command{
		Use:   "finalize <stage-id>",
		Short: "Complete a stage with an optional outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := stage.ParseOutcome(outcome)
			if err != nil {
				return err
			}
			opts.Outcome = parsed

			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				done, err := rt.Engine.Finalize(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return a.printStage(done)
			})
		},
	}

	cmd.Flags().StringVar(&outcome, "outcome", "", "Decision recorded on the stage")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&opts.ActorID, "actor", "", "Acting user")

	return cmd
}

func (a *App) newStageReopenCmd() *cobra.Command {
	var opts application.ReopenOptions

	cmd := &cobra.Command{
		Use:   "reopen <stage-id>",
		Short: "Return a completed stage to in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				reopened, err := rt.Engine.Reopen(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return a.printStage(reopened)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&opts.ActorID, "actor", "", "Acting user")

	return cmd
}

func (a *App) newStageCancelCmd() *cobra.Command {
	var opts application.CancelOptions

	cmd := &cobra.Command{
		Use:   "cancel <stage-id>",
		Short: "Cancel an in-progress stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				cancelled, err := rt.Engine.Cancel(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return a.printStage(cancelled)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&opts.ActorID, "actor", "", "Acting user")

	return cmd
}

func (a *App) newStageShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <stage-id>",
		Short: "Show a stage instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				s, err := rt.Engine.GetStage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printStage(s)
			})
		},
	}
}

func (a *App) newStageCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current <proposal-id>",
		Short: "Show the current stage of a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				s, err := rt.Engine.CurrentStage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printStage(s)
			})
		},
	}
}

func (a *App) newStageHistoryCmd() *cobra.Command {
	var entries bool

	cmd := &cobra.Command{
		Use:   "history <proposal-id>",
		Short: "List the stages of a proposal",
		Long: `List every stage a proposal went through, oldest first. With --entries
the audit log of transitions is listed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				if entries {
					list, err := rt.Engine.Entries(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if a.jsonOutput {
						return a.printJSON(list)
					}
					a.printEntries(list)
					return nil
				}

				stages, err := rt.Engine.StageHistory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(stages)
				}
				a.printStages(stages)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&entries, "entries", false, "List audit entries instead of stages")

	return cmd
}
