package viz

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/roverdyn/internal/rover"
	"github.com/san-kum/roverdyn/internal/solver"
)

const (
	slopeStep     = 1.0
	slopeBigStep  = 5.0
	crrStep       = 0.01
	crrMin        = 0.01
	profilePoints = 61
	sceneWidth    = 36
	sceneHeight   = 12
)

// Explorer is a Bubble Tea model that re-solves terminal speed whenever the
// slope or Crr changes.
type Explorer struct {
	solver solver.Solver

	slope, crr   float64
	slope0, crr0 float64
	result       solver.Result
	err          error
	profile      []float64 // speed over the full slope range at the current Crr
	width        int
	quitting     bool
}

func NewExplorer(s solver.Solver, slope, crr float64) Explorer {
	e := Explorer{
		solver: s,
		slope:  clampSlope(slope),
		crr:    math.Max(crr, crrMin),
		width:  60,
	}
	e.slope0, e.crr0 = e.slope, e.crr
	e.resolve()
	e.reprofile()
	return e
}

func (e Explorer) Slope() float64        { return e.slope }
func (e Explorer) Crr() float64          { return e.crr }
func (e Explorer) Result() solver.Result { return e.result }

func (e Explorer) Init() tea.Cmd { return nil }

func (e Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.width = max(30, msg.Width-sceneWidth-12)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			e.quitting = true
			return e, tea.Quit
		case "right", "l":
			e.setSlope(e.slope + slopeStep)
		case "left", "h":
			e.setSlope(e.slope - slopeStep)
		case "]":
			e.setSlope(e.slope + slopeBigStep)
		case "[":
			e.setSlope(e.slope - slopeBigStep)
		case "up", "k":
			e.setCrr(e.crr + crrStep)
		case "down", "j":
			e.setCrr(e.crr - crrStep)
		case "r":
			e.slope, e.crr = e.slope0, e.crr0
			e.resolve()
			e.reprofile()
		}
	}
	return e, nil
}

func (e *Explorer) setSlope(v float64) {
	e.slope = clampSlope(v)
	e.resolve()
}

func (e *Explorer) setCrr(v float64) {
	// Round to the step grid so repeated presses do not drift.
	e.crr = math.Max(crrMin, math.Round(v/crrStep)*crrStep)
	e.resolve()
	e.reprofile()
}

func (e *Explorer) resolve() {
	e.result, e.err = e.solver.Solve(e.slope, e.crr)
}

func (e *Explorer) reprofile() {
	e.profile = make([]float64, 0, profilePoints)
	for i := 0; i < profilePoints; i++ {
		s := -rover.MaxTerrainAngle + 2*rover.MaxTerrainAngle*float64(i)/float64(profilePoints-1)
		r, err := e.solver.Solve(s, e.crr)
		if err != nil {
			e.profile = append(e.profile, math.NaN())
			continue
		}
		e.profile = append(e.profile, r.Speed)
	}
}

func clampSlope(v float64) float64 {
	return math.Max(-rover.MaxTerrainAngle, math.Min(rover.MaxTerrainAngle, v))
}

func (e Explorer) View() string {
	if e.quitting {
		return ""
	}

	model := e.solver.Model()
	var s strings.Builder
	s.WriteString(HeaderStyle.Render("roverdyn explorer") + "\n\n")
	s.WriteString(Metric("slope", fmt.Sprintf("%+.1f deg", e.slope)) + "\n")
	s.WriteString(Metric("Crr", fmt.Sprintf("%.2f", e.crr)) + "\n")
	s.WriteString(Metric("mass", fmt.Sprintf("%.1f kg", model.Mass())) + "\n")
	s.WriteString(Metric("gravity", fmt.Sprintf("%.2f m/s²", model.Planet().Gravity)) + "\n\n")

	switch {
	case e.err != nil:
		s.WriteString(StatusInfeasible.Render("error: "+e.err.Error()) + "\n")
	case !e.result.Feasible:
		s.WriteString(StatusInfeasible.Render("no terminal speed: rover keeps accelerating") + "\n")
		s.WriteString(ProgressBar(math.NaN(), 24) + "\n")
	default:
		s.WriteString(StatusFeasible.Render("terminal speed") + "\n")
		s.WriteString(Metric("speed", fmt.Sprintf("%.4f m/s", e.result.Speed)) + "\n")
		s.WriteString(Metric("motor ω", fmt.Sprintf("%.4f rad/s", e.result.Omega)) + "\n")
		s.WriteString(Metric("residual", fmt.Sprintf("%.2e N", e.result.Residual)) + "\n")
		s.WriteString(ProgressBar(e.result.Speed/model.FreeRollingSpeed(), 24) + " " +
			Subtle.Render("of free rolling") + "\n")
	}

	s.WriteString("\n" + Subtle.Render(fmt.Sprintf("speed over slope ±%g deg at this Crr", rover.MaxTerrainAngle)) + "\n")
	s.WriteString(Sparkline(e.profile, e.width) + "\n")

	scene := NewCanvas(sceneWidth, sceneHeight)
	scene.DrawTerrain(e.slope)

	body := lipgloss.JoinHorizontal(lipgloss.Top, Panel.Render(s.String()), Panel.Render(scene.String()))
	return body + "\n" + KeyHint.Render("←/→ slope  [/] slope ×5  ↑/↓ Crr  r reset  q quit") + "\n"
}

// RunExplorer starts the explorer on the alternate screen.
func RunExplorer(s solver.Solver, slope, crr float64) error {
	_, err := tea.NewProgram(NewExplorer(s, slope, crr), tea.WithAltScreen()).Run()
	return err
}
