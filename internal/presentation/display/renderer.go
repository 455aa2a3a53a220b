package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/penwyp/go-x-monitor/internal/core/model"
	"github.com/penwyp/go-x-monitor/internal/util"
)

const (
	fallbackWidth = 100
	maxFeedRows   = 20
)

// MonitorRow is one monitor with its live connection flags.
type MonitorRow struct {
	Monitor    model.Monitor
	Active     bool
	Initiating bool
}

// Snapshot is everything the renderer needs for one frame. It is built from
// store snapshots; the renderer never touches shared state.
type Snapshot struct {
	Monitors        []MonitorRow
	Feed            []model.FeedItem
	StreamConnected bool
	Selected        int
}

// Renderer draws the monitor table and recent activity in place.
type Renderer struct {
	out         io.Writer
	width       func() int
	inAltScreen bool
}

// NewRenderer creates a renderer on stdout sized from the terminal.
func NewRenderer() *Renderer {
	return &Renderer{
		out:   os.Stdout,
		width: terminalWidth,
	}
}

// NewRendererWithWriter creates a renderer against a fixed width, for tests.
func NewRendererWithWriter(out io.Writer, width int) *Renderer {
	return &Renderer{
		out:   out,
		width: func() int { return width },
	}
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallbackWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

// EnterAltScreen switches to the alternate screen buffer.
func (r *Renderer) EnterAltScreen() {
	if r.inAltScreen {
		return
	}
	fmt.Fprint(r.out, util.EnterAltScreen, util.ClearScreen, util.MoveCursorHome, util.HideCursor)
	r.inAltScreen = true
}

// ExitAltScreen restores the normal screen buffer.
func (r *Renderer) ExitAltScreen() {
	if !r.inAltScreen {
		return
	}
	fmt.Fprint(r.out, util.ShowCursor, util.ExitAltScreen)
	r.inAltScreen = false
}

// Render draws one frame in place.
func (r *Renderer) Render(s Snapshot) {
	width := r.width()
	var b strings.Builder

	if r.inAltScreen {
		b.WriteString(util.MoveCursorHome)
	}

	streamState := "offline"
	if s.StreamConnected {
		streamState = "connected"
	}
	writeLine(&b, width, fmt.Sprintf("x-monitor | stream: %s | monitors: %d", streamState, len(s.Monitors)))
	writeLine(&b, width, strings.Repeat("─", min(width, 80)))

	if len(s.Monitors) == 0 {
		writeLine(&b, width, "no monitors yet. Drop a YAML file into the targets directory to add one.")
	}
	for i, row := range s.Monitors {
		marker := "  "
		if i == s.Selected {
			marker = "> "
		}
		writeLine(&b, width, fmt.Sprintf("%s%s %-20s %-8s %s",
			marker, monitorState(row), clip(row.Monitor.Label, 20), row.Monitor.Kind.Display(), row.Monitor.Query))
	}

	writeLine(&b, width, "")
	writeLine(&b, width, "recent activity:")
	rows := s.Feed
	if len(rows) > maxFeedRows {
		rows = rows[:maxFeedRows]
	}
	if len(rows) == 0 {
		writeLine(&b, width, "  (empty)")
	}
	for _, item := range rows {
		writeLine(&b, width, "  "+item.Summary())
	}

	writeLine(&b, width, "")
	writeLine(&b, width, "[s]toggle [d]elete [r]econnect [x]terminate [c]lear [↑/↓]select [q]uit")

	if r.inAltScreen {
		b.WriteString(util.ClearToEnd)
	}
	fmt.Fprint(r.out, b.String())
}

func monitorState(row MonitorRow) string {
	switch {
	case row.Initiating:
		return "…"
	case row.Active:
		return "●"
	case row.Monitor.Enabled:
		return "◌"
	default:
		return "○"
	}
}

// writeLine truncates to the display width so in-place redraws never wrap.
func writeLine(b *strings.Builder, width int, text string) {
	b.WriteString(runewidth.Truncate(flattenLine(text), width, "…"))
	b.WriteString("\n")
}

func clip(text string, width int) string {
	return runewidth.Truncate(flattenLine(text), width, "…")
}

func flattenLine(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}
