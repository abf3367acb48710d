package render

import (
	"fmt"
	"strings"

	"github.com/nixlim/cc-trace/internal/events"
)

// block is the mode-independent form of one timeline entry. Both output
// modes render the same ordered block list; document mode only adds
// styling on top, so the two modes cannot disagree on content or order.
type block struct {
	kind     events.Kind
	title    string
	body     string
	markdown bool
	columns  []string
	rows     [][]string
	images   []events.ImageBlock
	nested   bool // inside a subagent delegation
}

// buildBlocks converts a transcript into ordered timeline blocks.
// Consecutive plain tool calls collapse into one compact block; tool
// results produce a block only when they carry a payload worth showing
// (errors, images, tabular or structured data). Delegation start and end
// are visually bracketed sections.
func buildBlocks(evts []events.Event, bodyWidth, maxBodyLines int) []block {
	var out []block
	var pendingTools []string
	var subagents []string // delegation stack

	nested := func() bool { return len(subagents) > 0 }
	current := func() string {
		if len(subagents) == 0 {
			return ""
		}
		return subagents[len(subagents)-1]
	}

	flushTools := func() {
		if len(pendingTools) == 0 {
			return
		}
		title := "🔧 " + pendingTools[0]
		if len(pendingTools) > 1 {
			title = "🔧 Tools: " + strings.Join(pendingTools, ", ")
		}
		out = append(out, block{
			kind:   events.KindToolCall,
			title:  events.Truncate(title, bodyWidth),
			nested: nested(),
		})
		pendingTools = nil
	}

	for _, ev := range evts {
		switch e := ev.(type) {
		case *events.InitEvent:
			flushTools()
			body := "Session " + events.ShortID(e.SessionID)
			if e.Model != "" {
				body += " · " + e.Model
			}
			if len(e.MCPServers) > 0 {
				body += " · MCP: " + strings.Join(e.MCPServers, ", ")
			}
			out = append(out, block{
				kind:  events.KindInit,
				title: "⚙️  System Initialized",
				body:  events.Truncate(body, bodyWidth),
			})

		case *events.TextEvent:
			if e.Text == "" {
				continue
			}
			flushTools()
			title := "🤖 Assistant"
			if nested() {
				title = fmt.Sprintf("📎 [%s] Response", current())
			}
			out = append(out, block{
				kind:     events.KindText,
				title:    title,
				body:     clipBody(e.Text, bodyWidth, maxBodyLines),
				markdown: true,
				nested:   nested(),
			})

		case *events.ToolCallEvent:
			pendingTools = append(pendingTools, events.FormatToolCall(e.Tool, e.Input))

		case *events.DelegationStartEvent:
			flushTools()
			b := block{
				kind:   events.KindDelegationStart,
				title:  fmt.Sprintf("🚀 DELEGATING TO: %s", strings.ToUpper(e.Subagent)),
				nested: nested(),
			}
			var parts []string
			if e.Description != "" {
				parts = append(parts, "📋 "+e.Description)
			}
			if e.Prompt != "" {
				parts = append(parts, "📝 "+e.Prompt)
			}
			b.body = clipBody(strings.Join(parts, "\n"), bodyWidth, maxBodyLines)
			out = append(out, b)
			subagents = append(subagents, e.Subagent)

		case *events.DelegationEndEvent:
			flushTools()
			if len(subagents) > 0 {
				subagents = subagents[:len(subagents)-1]
			}
			out = append(out, block{
				kind:   events.KindDelegationEnd,
				title:  fmt.Sprintf("✅ SUBAGENT [%s] COMPLETE", strings.ToUpper(e.Subagent)),
				body:   clipBody(e.Summary, bodyWidth, maxBodyLines),
				nested: nested(),
			})

		case *events.ToolResultEvent:
			b, ok := resultBlock(e, bodyWidth, maxBodyLines)
			if !ok {
				continue
			}
			flushTools()
			b.nested = nested()
			out = append(out, b)

		case *events.ResultEvent:
			flushTools()
			// Delegations the stream never closed.
			for i := len(subagents) - 1; i >= 0; i-- {
				out = append(out, block{
					kind:  events.KindDelegationEnd,
					title: fmt.Sprintf("✅ SUBAGENT [%s] COMPLETE", strings.ToUpper(subagents[i])),
				})
			}
			subagents = nil
			out = append(out, block{
				kind:  events.KindResult,
				title: "✅ Complete",
				body:  statsLine(e),
			})

		case *events.UnknownEvent:
			flushTools()
			out = append(out, block{
				kind:   events.KindUnknown,
				title:  fmt.Sprintf("•  Activity (%s)", e.RawKind),
				nested: nested(),
			})
		}
	}
	flushTools()
	return out
}

// resultBlock decides whether a tool result deserves its own timeline
// entry. Plain text echoes are already covered by the live trace; errors
// and rich payloads are not.
func resultBlock(e *events.ToolResultEvent, bodyWidth, maxBodyLines int) (block, bool) {
	switch {
	case e.IsError:
		return block{
			kind:  events.KindToolResult,
			title: "✗ Tool Error",
			body:  clipBody(e.Text, bodyWidth, maxBodyLines),
		}, true
	case len(e.Images) > 0:
		return block{
			kind:   events.KindToolResult,
			title:  "🖼  Tool Result",
			images: e.Images,
		}, true
	case e.Structured != nil:
		if columns, rows, ok := tabular(e.Structured); ok {
			return block{
				kind:    events.KindToolResult,
				title:   "📊 Tool Result",
				columns: columns,
				rows:    rows,
			}, true
		}
		return block{
			kind:  events.KindToolResult,
			title: "📊 Tool Result",
			body:  clipBody(prettyPrint(e.Structured), bodyWidth, maxBodyLines),
		}, true
	}
	return block{}, false
}

// statsLine renders the terminal result figures as one short
// pipe-separated line.
func statsLine(e *events.ResultEvent) string {
	parts := []string{fmt.Sprintf("Turns: %d", e.NumTurns)}
	if !e.TotalCost.IsZero() {
		parts = append(parts, "Cost: "+events.FormatCost(e.TotalCost))
	}
	parts = append(parts,
		"Duration: "+events.FormatDurationMS(e.DurationMs),
		fmt.Sprintf("Tokens: %s in / %s out",
			events.FormatTokenCount(e.Usage.InputTokens),
			events.FormatTokenCount(e.Usage.OutputTokens)))
	if e.IsError {
		parts = append(parts, "Status: "+e.Subtype)
	}
	return strings.Join(parts, " │ ")
}

// clipBody truncates each line to the body width and caps the number of
// lines, noting how many were dropped.
func clipBody(s string, bodyWidth, maxLines int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = events.Truncate(strings.TrimRight(line, " \t"), bodyWidth)
	}
	if maxLines > 0 && len(lines) > maxLines {
		dropped := len(lines) - maxLines
		lines = append(lines[:maxLines], fmt.Sprintf("… (+%d lines)", dropped))
	}
	return strings.Join(lines, "\n")
}
