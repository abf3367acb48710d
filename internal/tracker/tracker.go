// Package tracker renders a live, line-per-event activity trace of an
// agent turn, including subagent delegation depth.
package tracker

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nixlim/cc-trace/internal/events"
)

// Context holds the per-turn tracking state: current delegation depth, the
// active subagent, and a count of tool calls seen. The caller owns it and
// passes it to every Handle call; Reset must be called before each new
// turn or nesting state leaks into the next turn's output.
type Context struct {
	Depth     int
	Subagent  string
	ToolCalls int
}

// Reset returns the context to its initial state.
func (c *Context) Reset() {
	*c = Context{}
}

// kindStyles colors trace lines per event kind.
var kindStyles = map[events.Kind]lipgloss.Style{
	events.KindInit:            lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	events.KindText:            lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
	events.KindToolCall:        lipgloss.NewStyle().Foreground(lipgloss.Color("222")),
	events.KindToolResult:      lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	events.KindDelegationStart: lipgloss.NewStyle().Foreground(lipgloss.Color("183")),
	events.KindDelegationEnd:   lipgloss.NewStyle().Foreground(lipgloss.Color("183")),
	events.KindUnknown:         lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

// Tracker writes one human-readable line (occasionally two, for a
// delegation with a description) per event to its sink. Handle never
// fails: a write error is swallowed because live feedback must not
// interrupt the turn it is reporting on.
type Tracker struct {
	w        io.Writer
	styled   bool
	maxWidth int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStyling enables color on trace lines.
func WithStyling(on bool) Option {
	return func(t *Tracker) { t.styled = on }
}

// WithMaxWidth caps the display width of each trace line.
func WithMaxWidth(cells int) Option {
	return func(t *Tracker) { t.maxWidth = cells }
}

// New creates a Tracker writing to w. Styling is off by default.
func New(w io.Writer, opts ...Option) *Tracker {
	t := &Tracker{w: w, maxWidth: 120}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Handle renders one event and updates ctx. Every event except the
// terminal result produces output; an unrecognized or partially-populated
// event degrades to a generic activity line.
func (t *Tracker) Handle(ctx *Context, ev events.Event) {
	indent := strings.Repeat("   ", ctx.Depth)

	switch e := ev.(type) {
	case *events.InitEvent:
		if e.Model != "" {
			t.emit(ev.Kind(), fmt.Sprintf("⚙️  Session %s initialized (%s)", events.ShortID(e.SessionID), e.Model))
		} else {
			t.emit(ev.Kind(), fmt.Sprintf("⚙️  Session %s initialized", events.ShortID(e.SessionID)))
		}

	case *events.TextEvent:
		if ctx.Subagent != "" {
			t.emit(ev.Kind(), fmt.Sprintf("%s📎 [%s] Thinking...", indent, ctx.Subagent))
		} else {
			t.emit(ev.Kind(), "🤖 Thinking...")
		}

	case *events.ToolCallEvent:
		ctx.ToolCalls++
		call := events.FormatToolCall(e.Tool, e.Input)
		if ctx.Subagent != "" {
			t.emit(ev.Kind(), fmt.Sprintf("%s📎 [%s] Using: %s", indent, ctx.Subagent, call))
		} else {
			t.emit(ev.Kind(), fmt.Sprintf("🤖 Using: %s", call))
		}

	case *events.DelegationStartEvent:
		line := fmt.Sprintf("%s🚀 Delegating to subagent: %s", indent, e.Subagent)
		if e.Description != "" {
			line += fmt.Sprintf("\n%s   └─ Task: %s", indent, e.Description)
		}
		t.emit(ev.Kind(), line)
		ctx.Depth++
		ctx.Subagent = e.Subagent

	case *events.DelegationEndEvent:
		t.emit(ev.Kind(), fmt.Sprintf("%s✅ Subagent [%s] completed", indent, e.Subagent))
		if ctx.Depth > 0 {
			ctx.Depth--
		}
		if ctx.Depth == 0 {
			ctx.Subagent = ""
		}

	case *events.ToolResultEvent:
		ctx.ToolCalls++
		marker := "✓ Tool completed"
		if e.IsError {
			marker = "✗ Tool failed"
		}
		if n := len(e.Images); n > 0 {
			marker += fmt.Sprintf(" [image %s]", humanize.Bytes(imageBytes(e.Images)))
		}
		t.emit(ev.Kind(), indent+marker)

	case *events.ResultEvent:
		// Summary rendering belongs to the conversation renderer.

	case *events.UnknownEvent:
		t.emit(ev.Kind(), fmt.Sprintf("•  activity (%s)", e.RawKind))

	default:
		t.emit(events.KindUnknown, "•  activity")
	}
}

// emit writes one trace block, truncating each line to the configured
// width and applying the kind's style when styling is on.
func (t *Tracker) emit(kind events.Kind, block string) {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = events.Truncate(line, t.maxWidth)
	}
	out := strings.Join(lines, "\n")

	if t.styled {
		if style, ok := kindStyles[kind]; ok {
			out = style.Render(out)
		}
	}
	fmt.Fprintln(t.w, out)
}

// imageBytes estimates the decoded size of base64 image payloads.
func imageBytes(images []events.ImageBlock) uint64 {
	var n uint64
	for _, img := range images {
		n += uint64(len(img.Data)) * 3 / 4
	}
	return n
}
