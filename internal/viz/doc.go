// Package viz renders systems and sweeps for the terminal.
//
//   - [Styles.RenderSystem]: lipgloss panel listing variables and equations
//   - [PlotColumn]: asciigraph plot of one sweep column
//   - [Theme]: color schemes selectable by name
package viz
