package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/legisflow/legisflow/domain/catalog"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/stage"
	infraconfig "github.com/legisflow/legisflow/infrastructure/config"
)

func (a *App) printStageList(stages []*stage.Instance) error {
	if a.jsonOutput {
		return a.printJSON(stages)
	}
	a.printStages(stages)
	return nil
}

func (a *App) newOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List in-progress stages past their deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				stages, err := rt.Engine.ListOverdue(cmd.Context())
				if err != nil {
					return err
				}
				return a.printStageList(stages)
			})
		},
	}
}

func (a *App) newDueCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List in-progress stages due within a number of days",
		Long: `List in-progress stages whose deadline falls within the given number of
days. Without --days the alert_lead_days setting is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				stages, err := rt.Engine.ListDueWithin(cmd.Context(), days)
				if err != nil {
					return err
				}
				return a.printStageList(stages)
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Look-ahead window in days (default: alert_lead_days setting)")

	return cmd
}

func (a *App) newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect routing rules",
	}

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List routing rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				rules, err := rt.Engine.ListRules(cmd.Context(), activeOnly)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(rules)
				}
				rows := make([][]string, 0, len(rules))
				for _, r := range rules {
					rows = append(rows, []string{
						r.ID,
						r.Name,
						strconv.Itoa(r.Order),
						strconv.FormatBool(r.Active),
						strconv.Itoa(len(r.Conditions)),
					})
				}
				a.printTable([]string{"ID", "NAME", "ORDER", "ACTIVE", "CONDITIONS"}, rows)
				return nil
			})
		},
	}
	list.Flags().BoolVar(&activeOnly, "active", false, "Only active rules")

	steps := &cobra.Command{
		Use:   "steps <rule-id>",
		Short: "List the ordered steps of a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				list, err := rt.Engine.ListSteps(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(list)
				}
				rows := make([][]string, 0, len(list))
				for _, s := range list {
					rows = append(rows, []string{
						strconv.Itoa(s.Order),
						s.ID,
						s.Name,
						s.StageTypeID,
						s.UnitID,
						strconv.Itoa(s.DeadlineDays),
						strconv.Itoa(len(s.Notifications) + len(s.Alerts)),
					})
				}
				a.printTable([]string{"ORDER", "ID", "NAME", "STAGE TYPE", "UNIT", "DEADLINE DAYS", "PAYLOADS"}, rows)
				return nil
			})
		},
	}

	cmd.AddCommand(list, steps)
	return cmd
}

func (a *App) newCatalogCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:       "catalog <proposal_types|units|stage_types>",
		Short:     "List a catalog registry in display order",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(catalog.KindProposalTypes), string(catalog.KindUnits), string(catalog.KindStageTypes)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := catalog.ParseKind(args[0])
			if err != nil {
				return err
			}
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				entries, err := rt.Engine.ListCatalog(cmd.Context(), kind, !all)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(entries)
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{e.EntryID(), e.EntryName(), strconv.Itoa(e.DisplayOrder())})
				}
				a.printTable([]string{"ID", "NAME", "ORDER"}, rows)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive entries")

	return cmd
}

func (a *App) newNotificationsCmd() *cobra.Command {
	var (
		filter   notification.ListFilter
		statuses []string
	)

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List recorded notifications and alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range statuses {
				filter.Status = append(filter.Status, notification.Status(s))
			}
			return a.withRuntime(cmd.Context(), func(rt *infraconfig.Runtime) error {
				list, err := rt.Engine.Notifications(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(list)
				}
				a.printNotifications(list)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.ProposalID, "proposal", "", "Filter by proposal")
	cmd.Flags().StringVar(&filter.StageID, "stage", "", "Filter by stage instance")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, sent, failed)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum results")

	return cmd
}
