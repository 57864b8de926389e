// Package dashboard renders optimizer state in the terminal and lets the
// operator switch the load level.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/optimizer"
	"github.com/snow-ghost/era/pkg/logging"
)

const (
	DefaultRefresh = 500 * time.Millisecond
	barWidth       = 30
)

var sparks = []rune(" ▁▂▃▄▅▆▇█")

// Line is one rendered row.
type Line struct {
	Text  string
	Style tcell.Style
}

var (
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleInfo  = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleOK    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleOver  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleSpark = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleHelp  = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Lines lays out a frame for the given state and history at width columns.
func Lines(snap optimizer.Snapshot, points []core.HistoryPoint, width int) []Line {
	lines := []Line{
		{Text: "ERA adaptive threshold optimizer", Style: styleTitle},
		{Text: fmt.Sprintf("Load: %-6s  Generation: %d  Fitness: %.4f", snap.LoadLevel, snap.Generation, snap.Fitness), Style: styleInfo},
		{},
	}

	rows := []struct {
		name      string
		usage     float64
		threshold float64
		scale     float64
		unit      string
	}{
		{"CPU", snap.Resources.CPUUsage, snap.Params.CPUThreshold, 100, "%"},
		{"Memory", snap.Resources.MemoryUsage, snap.Params.MemoryThreshold, 100, "%"},
		{"Power", snap.Resources.PowerUsage, snap.Params.PowerThreshold, 15, "W"},
	}
	for _, r := range rows {
		style := styleOK
		if r.usage > r.threshold {
			style = styleOver
		}
		lines = append(lines, Line{
			Text: fmt.Sprintf("%-7s %6.1f%s / %6.1f%s  %s",
				r.name, r.usage, r.unit, r.threshold, r.unit, bar(r.usage, r.threshold, r.scale)),
			Style: style,
		})
	}

	lines = append(lines,
		Line{},
		Line{Text: "CPU history", Style: styleInfo},
		Line{Text: spark(points, width), Style: styleSpark},
		Line{},
		Line{Text: "0/1/2 load level   q quit", Style: styleHelp},
	)
	return lines
}

// bar draws usage as filled cells with the threshold marked by '|'.
func bar(usage, threshold, scale float64) string {
	filled := cells(usage, scale)
	mark := cells(threshold, scale)
	if mark >= barWidth {
		mark = barWidth - 1
	}

	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < barWidth; i++ {
		switch {
		case i == mark:
			b.WriteByte('|')
		case i < filled:
			b.WriteRune('█')
		default:
			b.WriteByte(' ')
		}
	}
	b.WriteByte(']')
	return b.String()
}

func cells(v, scale float64) int {
	n := int(v / scale * barWidth)
	if n < 0 {
		return 0
	}
	if n > barWidth {
		return barWidth
	}
	return n
}

// spark renders the newest CPU usages that fit in width.
func spark(points []core.HistoryPoint, width int) string {
	if width < 1 {
		return ""
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}

	out := make([]rune, len(points))
	for i, p := range points {
		idx := int(p.CPUUsage / 100 * float64(len(sparks)-1))
		idx = max(0, min(idx, len(sparks)-1))
		out[i] = sparks[idx]
	}
	return string(out)
}

// Dashboard draws State and History onto a tcell screen.
type Dashboard struct {
	screen  tcell.Screen
	state   *optimizer.State
	history *optimizer.History
	refresh time.Duration
	logger  *logging.Logger
}

// New creates a dashboard. The screen must not be initialized yet; Run
// owns its lifecycle.
func New(screen tcell.Screen, state *optimizer.State, history *optimizer.History, refresh time.Duration, logger *logging.Logger) *Dashboard {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dashboard{
		screen:  screen,
		state:   state,
		history: history,
		refresh: refresh,
		logger:  logger.WithComponent("dashboard"),
	}
}

// NewTerminal creates a dashboard on the process terminal.
func NewTerminal(state *optimizer.State, history *optimizer.History, refresh time.Duration, logger *logging.Logger) (*Dashboard, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	return New(screen, state, history, refresh, logger), nil
}

// Draw renders one frame.
func (d *Dashboard) Draw() {
	width, height := d.screen.Size()
	d.screen.Clear()

	for y, line := range Lines(d.state.Snapshot(), d.history.Points(), width) {
		if y >= height {
			break
		}
		x := 0
		for _, r := range line.Text {
			if x >= width {
				break
			}
			d.screen.SetContent(x, y, r, nil, line.Style)
			x++
		}
	}

	d.screen.Show()
}

// Run redraws every refresh interval until ctx is done or the user quits.
// It returns nil in both cases.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := d.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer d.screen.Fini()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := d.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(d.refresh)
	defer ticker.Stop()

	d.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Draw()
		case ev := <-events:
			if !d.handle(ev) {
				return nil
			}
			d.Draw()
		}
	}
}

// handle applies one event and reports whether to keep running.
func (d *Dashboard) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch r := ev.Rune(); r {
		case 'q', 'Q':
			return false
		case '0', '1', '2':
			level := core.LoadLevel(r - '0')
			if err := d.state.SetLoadLevel(level); err == nil {
				d.logger.Info("Load level changed", "load_level", level.String())
			}
		}
	case *tcell.EventResize:
		d.screen.Sync()
	}
	return true
}
