package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cjeanneret/GoLapse/internal/logic/plan"
)

var (
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Width(18)
)

// RenderPlan formats the plan and its estimate for the pre-run confirmation.
func RenderPlan(p plan.Plan, est plan.Estimate) string {
	rows := [][2]string{
		{"Window", p.Window.String()},
		{"Delay", fmt.Sprintf("%d min", p.IntervalMinutes)},
		{"Duration", fmt.Sprintf("%d h", est.DurationHours)},
		{"Captures", fmt.Sprintf("~%.1f", est.ExpectedCaptureCount)},
		{"Storage", fmt.Sprintf("~%.2f GB (%.4g MB each)", est.ExpectedStorageGB, p.CaptureSizeMB)},
	}
	if p.StartOffsetMinutes > 0 || p.EndOffsetMinutes > 0 {
		rows = append(rows, [2]string{"Offsets", fmt.Sprintf("+%d / -%d min (not applied)", p.StartOffsetMinutes, p.EndOffsetMinutes)})
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Time lapse plan"))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(r[0]))
		b.WriteString(r[1])
	}
	return boxStyle.Render(b.String())
}
