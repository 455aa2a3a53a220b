package util

// ANSI control sequences used by the in-place feed renderer.
const (
	EnterAltScreen = "\033[?1049h"
	ExitAltScreen  = "\033[?1049l"

	ClearScreen    = "\033[2J"
	ClearToEnd     = "\033[J"
	ClearLine      = "\033[2K"
	MoveCursorHome = "\033[H"

	HideCursor = "\033[?25l"
	ShowCursor = "\033[?25h"
)
