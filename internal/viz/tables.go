package viz

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/roverdyn/internal/rover"
	"github.com/san-kum/roverdyn/internal/sweep"
)

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerCell  = cellStyle.Bold(true).Foreground(lipgloss.Color("#00ffff"))
	missingCell = cellStyle.Foreground(lipgloss.Color("#ff4444"))
)

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444466")))
}

// MassTable lists each mass contribution and the total.
func MassTable(b rover.MassBreakdown) string {
	each := func(v float64) string { return fmt.Sprintf("%g", v) }
	times := func(v float64) string { return fmt.Sprintf("%g", v*float64(b.Wheels)) }

	t := newTable().
		Headers("component", "each [kg]", "total [kg]").
		Row("chassis", each(b.Chassis), each(b.Chassis)).
		Row("science payload", each(b.SciencePayload), each(b.SciencePayload)).
		Row("power subsystem", each(b.PowerSubsystem), each(b.PowerSubsystem)).
		Row(fmt.Sprintf("motor ×%d", b.Wheels), each(b.Motor), times(b.Motor)).
		Row(fmt.Sprintf("speed reducer ×%d", b.Wheels), each(b.Reducer), times(b.Reducer)).
		Row(fmt.Sprintf("wheel ×%d", b.Wheels), each(b.Wheel), times(b.Wheel)).
		Row("total", "", each(b.Total)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return cellStyle
		})
	return t.String()
}

// SurfaceTable renders terminal speed with one row per slope and one column
// per Crr. Infeasible cells show as a dash.
func SurfaceTable(s *sweep.Surface) string {
	headers := make([]string, 0, len(s.Crrs)+1)
	headers = append(headers, "slope\\Crr")
	for _, c := range s.Crrs {
		headers = append(headers, fmt.Sprintf("%.3g", c))
	}

	speeds := s.Speeds()
	t := newTable().Headers(headers...)
	for i, row := range speeds {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, fmt.Sprintf("%.3g", s.Slopes[i]))
		for _, v := range row {
			if math.IsNaN(v) {
				cells = append(cells, "—")
				continue
			}
			cells = append(cells, fmt.Sprintf("%.3f", v))
		}
		t.Row(cells...)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow || col == 0:
			return headerCell
		case row >= 0 && row < len(speeds) && col-1 < len(speeds[row]) && math.IsNaN(speeds[row][col-1]):
			return missingCell
		}
		return cellStyle
	})
	return t.String()
}
