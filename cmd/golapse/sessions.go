package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/GoLapse/internal/config"
	"github.com/cjeanneret/GoLapse/internal/storage/journal"
)

func newSessionsCmd(d deps, opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent time lapse sessions from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Journal.Disabled {
				cmd.Println("journal disabled")
				return nil
			}
			j, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer j.Close()

			sessions, err := j.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				cmd.Println("no sessions recorded")
				return nil
			}
			cmd.Println(renderSessions(sessions))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to show (0 = all)")
	return cmd
}

func renderSessions(sessions []journal.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		outcome := s.Outcome
		if outcome == "" {
			outcome = "running?"
		}
		rows = append(rows, []string{
			s.StartedAt.Local().Format(time.DateTime),
			s.Plan.Window.String(),
			fmt.Sprintf("%d min", s.Plan.IntervalMinutes),
			fmt.Sprintf("%d / ~%.0f", s.Captures, s.Expected.ExpectedCaptureCount),
			outcome,
			s.Dir,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Started", "Window", "Delay", "Captures", "Outcome", "Directory").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

