package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/nixlim/cc-trace/internal/events"
)

const (
	defaultWidth    = 80
	defaultMaxLines = 14
)

// kindColors picks the document-mode border color per block kind.
var kindColors = map[events.Kind]lipgloss.Color{
	events.KindInit:            lipgloss.Color("245"),
	events.KindText:            lipgloss.Color("117"),
	events.KindToolCall:        lipgloss.Color("222"),
	events.KindToolResult:      lipgloss.Color("114"),
	events.KindDelegationStart: lipgloss.Color("183"),
	events.KindDelegationEnd:   lipgloss.Color("183"),
	events.KindResult:          lipgloss.Color("63"),
	events.KindUnknown:         lipgloss.Color("240"),
}

var titleStyle = lipgloss.NewStyle().Bold(true)

// Renderer produces the post-turn views of a collected transcript. All
// capabilities — output mode, width, markdown, table, and image
// strategies — are resolved once in New; the render methods are pure
// functions of the transcript and never fail.
type Renderer struct {
	mode     Mode
	width    int
	maxLines int
	mdStyle  string
	md       markdownFormatter
	tbl      tableFormatter
	img      imageFormatter
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMode overrides environment detection with an explicit output mode.
func WithMode(m Mode) Option {
	return func(r *Renderer) { r.mode = m }
}

// WithWidth overrides the detected terminal width.
func WithWidth(cells int) Option {
	return func(r *Renderer) {
		if cells > 20 {
			r.width = cells
		}
	}
}

// WithMaxBodyLines caps the lines shown per timeline block.
func WithMaxBodyLines(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxLines = n
		}
	}
}

// WithMarkdownStyle selects the glamour style: "dark", "light", or "auto".
func WithMarkdownStyle(style string) Option {
	return func(r *Renderer) { r.mdStyle = style }
}

// New builds a Renderer, resolving mode, width, and the per-content-type
// formatter strategies once. Every strategy has a plain fallback, so
// construction always succeeds.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		mode:     ModeAuto,
		maxLines: defaultMaxLines,
		md:       plainMarkdown{},
		tbl:      plainTable{},
		img:      plainImage{},
	}
	for _, o := range opts {
		o(r)
	}

	if r.mode == ModeAuto {
		r.mode = DetectMode()
	}
	if r.width == 0 {
		r.width = detectWidth(defaultWidth)
	}

	if r.mode == ModeDocument {
		if g := newGlamourMarkdown(r.width-8, r.mdStyle); g != nil {
			r.md = g
		}
		r.tbl = richTable{}
		r.img = inlineImage{}
	}
	return r
}

// Mode reports the resolved output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Transcript renders the full timeline of a collected turn: one visually
// distinct block per timeline entry, identical content in both modes.
// It never mutates evts and is deterministic for a given transcript.
func (r *Renderer) Transcript(evts []events.Event) string {
	blocks := buildBlocks(evts, r.bodyWidth(), r.maxLines)

	var sections []string
	sections = append(sections, r.header("🤖 AGENT CONVERSATION TIMELINE"))
	for _, b := range blocks {
		sections = append(sections, r.renderBlock(b))
	}
	return strings.Join(sections, "\n") + "\n"
}

// FinalCard renders the compact end-of-turn summary: final answer text
// plus cost, token, duration, and model figures from the terminal result
// event. A transcript with no result event yields an explicit incomplete
// indicator instead of zeroed figures.
func (r *Renderer) FinalCard(evts []events.Event, model string) string {
	res := events.TerminalResult(evts)
	text := events.LastAssistantText(evts)
	if model == "" {
		model = transcriptModel(evts)
	}

	if res == nil {
		body := "⚠️  Turn incomplete: no result event received"
		if text != "" {
			body += "\n\nLast response (partial):\n" + r.md.Format(text)
		}
		return r.card("Final Result", body, lipgloss.Color("208"))
	}

	var b strings.Builder
	answer := res.Result
	if answer == "" {
		answer = text
	}
	if answer != "" {
		b.WriteString("📝 Final Result:\n")
		b.WriteString(r.md.Format(answer))
		b.WriteString("\n\n")
	}

	stats := []string{
		"📊 Cost: " + events.FormatCost(res.TotalCost),
		fmt.Sprintf("Tokens: %s in / %s out",
			humanize.Comma(res.Usage.InputTokens),
			humanize.Comma(res.Usage.OutputTokens)),
		"⏱  Duration: " + events.FormatDurationMS(res.DurationMs),
	}
	if model != "" {
		stats = append(stats, "Model: "+model)
	}
	if res.IsError {
		stats = append(stats, "Status: "+res.Subtype)
	}
	b.WriteString(strings.Join(stats, " │ "))

	color := lipgloss.Color("63")
	if res.IsError {
		color = lipgloss.Color("196")
	}
	return r.card("Final Result", b.String(), color)
}

// ResponseCard renders only the last top-level assistant text, markdown-
// formatted, ignoring tool chatter and subagent-internal traffic.
func (r *Renderer) ResponseCard(evts []events.Event) string {
	text := events.LastAssistantText(evts)
	if text == "" {
		return r.card("Response", "⚠️  No assistant response in transcript", lipgloss.Color("208"))
	}
	return r.card("Response", r.md.Format(text), lipgloss.Color("117"))
}

// bodyWidth is the content width inside a block.
func (r *Renderer) bodyWidth() int {
	w := r.width - 8
	if w < 20 {
		w = 20
	}
	return w
}

// renderBlock renders one timeline block in the resolved mode.
func (r *Renderer) renderBlock(b block) string {
	body := b.body
	if b.markdown && body != "" {
		body = r.md.Format(body)
	}
	if len(b.columns) > 0 {
		body = r.tbl.Format(b.columns, b.rows)
	}
	for _, img := range b.images {
		if body != "" {
			body += "\n"
		}
		body += r.img.Format(img)
	}

	if r.mode == ModeDocument {
		return r.documentBlock(b, body)
	}
	return r.plainBlock(b, body)
}

// documentBlock wraps the block in a color-coded rounded border.
func (r *Renderer) documentBlock(b block, body string) string {
	content := titleStyle.Render(b.title)
	if body != "" {
		content += "\n" + body
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(kindColors[b.kind]).
		Padding(0, 1).
		Width(r.width - 4)
	if b.nested {
		style = style.MarginLeft(3).Width(r.width - 7)
	}
	return style.Render(content)
}

// plainBlock renders the block as indented text; delegation boundaries
// get the narrower corner-drawn box the timeline has always used.
func (r *Renderer) plainBlock(b block, body string) string {
	indent := ""
	if b.nested {
		indent = "   "
	}

	var out string
	switch b.kind {
	case events.KindDelegationStart, events.KindDelegationEnd:
		out = cornerBox(b.title, r.width-6, indent+"   ")
	default:
		out = indent + b.title
	}

	if body != "" {
		for _, line := range strings.Split(body, "\n") {
			out += "\n" + indent + "   " + line
		}
	}
	return out
}

// header renders the timeline banner.
func (r *Renderer) header(title string) string {
	if r.mode == ModeDocument {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Bold(true).
			Padding(0, 1).
			Width(r.width - 4).
			Render(title)
	}
	w := r.width - 4
	return "╭" + strings.Repeat("─", w) + "╮\n" +
		"│  " + padCells(title, w-2) + "│\n" +
		"╰" + strings.Repeat("─", w) + "╯"
}

// card renders a titled summary card.
func (r *Renderer) card(title, body string, color lipgloss.Color) string {
	if r.mode == ModeDocument {
		content := titleStyle.Render(title) + "\n" + body
		return lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(color).
			Padding(0, 1).
			Width(r.width - 4).
			Render(content) + "\n"
	}

	w := r.width - 4
	rule := strings.Repeat("─", w)
	return rule + "\n" + body + "\n" + rule + "\n"
}

// cornerBox draws the square-corner box used for delegation boundaries.
func cornerBox(title string, width int, indent string) string {
	if width < 20 {
		width = 20
	}
	inner := width - 2
	return indent + "┌" + strings.Repeat("─", inner) + "┐\n" +
		indent + "│  " + padCells(events.Truncate(title, inner-4), inner-2) + "│\n" +
		indent + "└" + strings.Repeat("─", inner) + "┘"
}

// padCells right-pads s with spaces to the given display-cell width.
func padCells(s string, cells int) string {
	gap := cells - runewidth.StringWidth(s)
	if gap < 0 {
		gap = 0
	}
	return s + strings.Repeat(" ", gap)
}

// transcriptModel pulls the model identifier from the init event, if any.
func transcriptModel(evts []events.Event) string {
	for _, ev := range evts {
		if ie, ok := ev.(*events.InitEvent); ok {
			return ie.Model
		}
	}
	return ""
}
