// Package viz renders simulation runs in the terminal.
//
// Time series and homotopy convergence are drawn with asciigraph, phase
// portraits of two state components on a braille [Canvas], and headings and
// status lines with lipgloss styles.
package viz
