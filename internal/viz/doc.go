// Package viz renders rover results in the terminal.
//
// Curves are drawn with asciigraph, tables and panels with lipgloss, and the
// interactive explorer runs on Bubble Tea:
//
//   - [CurvePlot]: terminal speed against the swept parameter
//   - [Canvas]: Braille canvas used to sketch the rover on its slope
//   - [Explorer]: live slope and Crr adjustment with immediate re-solve
//
// # Key Bindings
//
//	←/→   - Slope down/up by 1 deg
//	↑/↓   - Crr up/down by 0.01
//	[/]   - Slope down/up by 5 deg
//	R     - Reset to the starting point
//	Q     - Quit
package viz
