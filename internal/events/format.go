package events

import (
	"fmt"
	"path"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
)

// FormatTokenCount converts a token count to a human-readable form.
// Counts of 1000 and above display as Xk (e.g. 2100 -> "2.1k").
func FormatTokenCount(count int64) string {
	if count >= 1000 {
		return fmt.Sprintf("%.1fk", float64(count)/1000)
	}
	return fmt.Sprintf("%d", count)
}

// FormatDurationMS converts milliseconds to seconds with 1 decimal,
// e.g. 1200 -> "1.2s".
func FormatDurationMS(ms int64) string {
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// FormatCost renders a cost in dollars at the precision it arrived with,
// e.g. "$0.0042". Costs parsed from the wire keep their exact digits.
func FormatCost(cost decimal.Decimal) string {
	return "$" + cost.String()
}

// ShortID returns a shortened session ID for display.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

// Truncate shortens s to at most maxCells display cells, appending an
// ellipsis when content was dropped. Widths are measured in terminal
// cells, not bytes, so wide runes truncate correctly.
func Truncate(s string, maxCells int) string {
	if runewidth.StringWidth(s) <= maxCells {
		return s
	}
	if maxCells <= 1 {
		return runewidth.Truncate(s, maxCells, "")
	}
	return runewidth.Truncate(s, maxCells, "…")
}

// FormatToolCall renders a tool invocation with its most relevant argument
// abbreviated: the query for WebSearch, the command for Bash, the file
// basename for Read and Write. Other tools show just the name.
func FormatToolCall(tool string, input map[string]any) string {
	switch tool {
	case "WebSearch":
		if q := stringInput(input, "query"); q != "" {
			return fmt.Sprintf("%s → %q", tool, q)
		}
	case "Bash":
		if cmd := stringInput(input, "command"); cmd != "" {
			return fmt.Sprintf("%s → %s", tool, firstLine(cmd))
		}
	case "Read", "Write":
		if p := stringInput(input, "file_path"); p != "" {
			return fmt.Sprintf("%s → %s", tool, path.Base(p))
		}
	}
	return tool
}

// stringInput returns input[key] when it is a string, "" otherwise.
func stringInput(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	s, _ := input[key].(string)
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
