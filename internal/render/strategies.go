package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/nixlim/cc-trace/internal/events"
)

// Formatter strategies are resolved once, at renderer construction. Each
// optional capability has a trivial plain implementation that is always
// available, so a missing or failing rich backend changes fidelity but
// never correctness.

// markdownFormatter renders markdown text for display.
type markdownFormatter interface {
	Format(text string) string
}

// tableFormatter renders homogeneous rows of structured data.
type tableFormatter interface {
	Format(columns []string, rows [][]string) string
}

// imageFormatter renders a base64 image payload.
type imageFormatter interface {
	Format(img events.ImageBlock) string
}

// plainMarkdown indents markdown source unchanged.
type plainMarkdown struct{}

func (plainMarkdown) Format(text string) string {
	return text
}

// glamourMarkdown renders markdown through glamour's terminal renderer.
type glamourMarkdown struct {
	r *glamour.TermRenderer
}

// newGlamourMarkdown builds the rich markdown strategy, or nil when the
// renderer cannot be constructed (the caller then keeps the plain one).
func newGlamourMarkdown(width int, style string) *glamourMarkdown {
	opt := glamour.WithAutoStyle()
	switch style {
	case "dark", "light":
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return &glamourMarkdown{r: r}
}

func (g *glamourMarkdown) Format(text string) string {
	out, err := g.r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// plainTable renders rows as aligned, pipe-separated columns.
type plainTable struct{}

func (plainTable) Format(columns []string, rows [][]string) string {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], cell)
		}
		b.WriteByte('\n')
	}
	writeRow(columns)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteByte('\n')
	for _, row := range rows {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

// richTable renders rows with lipgloss table borders.
type richTable struct{}

func (richTable) Format(columns []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("63"))).
		Headers(columns...).
		Rows(rows...)
	return t.Render()
}

// plainImage replaces an image payload with a size placeholder.
type plainImage struct{}

func (plainImage) Format(img events.ImageBlock) string {
	size := uint64(len(img.Data)) * 3 / 4
	return fmt.Sprintf("[image: %s]", humanize.Bytes(size))
}

// inlineImage embeds the payload with the iTerm2 inline-image sequence,
// understood by document-capable terminals. The base64 data travels
// as-is.
type inlineImage struct{}

func (inlineImage) Format(img events.ImageBlock) string {
	return fmt.Sprintf("\x1b]1337;File=inline=1;size=%d:%s\a", len(img.Data), img.Data)
}

// tabular reports whether v is a non-empty array of objects sharing the
// same keys, and if so returns it as column names and string rows.
// Column order is deterministic (sorted) because JSON objects arrive
// unordered.
func tabular(v any) ([]string, [][]string, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, nil, false
	}

	first, ok := arr[0].(map[string]any)
	if !ok || len(first) == 0 {
		return nil, nil, false
	}
	columns := make([]string, 0, len(first))
	for k := range first {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok || len(obj) != len(columns) {
			return nil, nil, false
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			cell, ok := obj[col]
			if !ok {
				return nil, nil, false
			}
			row[i] = cellString(cell)
		}
		rows = append(rows, row)
	}
	return columns, rows, true
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprintf("%t", x)
	case nil:
		return ""
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

// prettyPrint renders an arbitrary structured value as an indented text
// block. encoding/json emits object keys sorted, which keeps the output
// deterministic.
func prettyPrint(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
