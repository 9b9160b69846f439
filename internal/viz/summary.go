package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/membrane/internal/trajectory"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Summary renders a one-panel report of a finished run.
func Summary(meta *trajectory.RunMetadata) string {
	status := okStyle.Render(meta.Status)
	if meta.Status == "failed" {
		status = failedStyle.Render(meta.Status)
	}
	lines := []string{
		titleStyle.Render(meta.ID),
		fmt.Sprintf("integrator  %s", meta.Integrator),
		fmt.Sprintf("status      %s", status),
		fmt.Sprintf("reason      %s", meta.Reason),
		fmt.Sprintf("iterations  %d", meta.Iterations),
		fmt.Sprintf("final time  %.4f", meta.FinalTime),
		fmt.Sprintf("mesh        %d vertices, %d faces", meta.NVertices, meta.NFaces),
		fmt.Sprintf("frames      %d", meta.Frames),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// EnergyPlot renders one column of a run's energy series as an ASCII graph.
func EnergyPlot(series map[string][]float64, column string, width, height int) (string, error) {
	values, ok := series[column]
	if !ok {
		return "", fmt.Errorf("viz: no column %q in energy series", column)
	}
	if len(values) < 2 {
		return "", fmt.Errorf("viz: column %q has fewer than two samples", column)
	}
	plot := asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(column))
	return plot, nil
}
