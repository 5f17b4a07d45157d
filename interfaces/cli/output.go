package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/stage"
)

const dateLayout = "2006-01-02 15:04"

func (a *App) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, _ = fmt.Fprintln(a.stdout, string(data))
	return nil
}

func (a *App) printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "(none)")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, _ = fmt.Fprintln(a.stdout, t.String())
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func formatOverdue(days *int) string {
	if days == nil {
		return "-"
	}
	return strconv.Itoa(*days)
}

func (a *App) printStage(s *stage.Instance) error {
	if a.jsonOutput {
		return a.printJSON(s)
	}
	a.printStages([]*stage.Instance{s})
	return nil
}

func (a *App) printStages(stages []*stage.Instance) {
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, []string{
			s.ID,
			s.ProposalID,
			s.StageTypeID,
			s.UnitID,
			string(s.Status),
			string(s.Outcome),
			s.EnteredAt.Format(dateLayout),
			formatTime(s.Deadline),
			formatOverdue(s.DaysOverdue),
		})
	}
	a.printTable([]string{"ID", "PROPOSAL", "STAGE TYPE", "UNIT", "STATUS", "OUTCOME", "ENTERED", "DEADLINE", "OVERDUE"}, rows)
}

func (a *App) printEntries(entries []*history.Entry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Format(dateLayout),
			string(e.Action),
			e.StageID,
			e.ActorID,
			e.Description,
		})
	}
	a.printTable([]string{"AT", "ACTION", "STAGE", "ACTOR", "DESCRIPTION"}, rows)
}

func (a *App) printNotifications(ns []*notification.Notification) {
	rows := make([][]string, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, []string{
			n.ID,
			string(n.Kind),
			n.Channel,
			n.Recipient,
			string(n.Status),
			strconv.Itoa(n.Attempts),
			n.Message,
		})
	}
	a.printTable([]string{"ID", "KIND", "CHANNEL", "RECIPIENT", "STATUS", "ATTEMPTS", "MESSAGE"}, rows)
}
