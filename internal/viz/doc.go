// Package viz renders simulation output for the terminal.
//
// It has two halves:
//
//   - static rendering: validation tables, wait summaries and asciigraph
//     plots of sampled series, used by the one-shot commands
//   - [Model]: a Bubble Tea program that integrates a scenario live and
//     draws the bodies on a Braille [Canvas]
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the initial state
//	+/-   - Zoom
//	X/Z   - Tilt and spin the view
//	Tab   - Center on the next body
//	T     - Cycle color themes
//	Q     - Quit
package viz
