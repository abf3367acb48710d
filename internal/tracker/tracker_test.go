package tracker

import (
	"strings"
	"testing"

	"github.com/nixlim/cc-trace/internal/events"
)

// feed runs the events through a fresh tracker and returns the output
// lines.
func feed(t *testing.T, ctx *Context, evts []events.Event) []string {
	t.Helper()
	var buf strings.Builder
	tr := New(&buf)
	for _, ev := range evts {
		tr.Handle(ctx, ev)
	}
	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestTracker_DelegationSequence(t *testing.T) {
	evts := []events.Event{
		&events.InitEvent{SessionID: "sess-1"},
		&events.ToolCallEvent{Tool: "WebSearch", Input: map[string]any{"query": "ACME"}},
		&events.ToolResultEvent{},
		&events.DelegationStartEvent{Subagent: "financial-analyst"},
		&events.ToolCallEvent{Tool: "Read", Input: map[string]any{"file_path": "q3.pdf"}},
		&events.ToolResultEvent{},
		&events.DelegationEndEvent{Subagent: "financial-analyst"},
		&events.ResultEvent{Subtype: "success"},
	}

	ctx := &Context{}
	ctx.Reset()
	lines := feed(t, ctx, evts)

	if len(lines) != 7 {
		t.Fatalf("want 7 live lines (result emits none), got %d:\n%s", len(lines), strings.Join(lines, "\n"))
	}

	if !strings.Contains(lines[0], "Session sess-1 initialized") {
		t.Errorf("line 0: got %q", lines[0])
	}
	if lines[1] != `🤖 Using: WebSearch → "ACME"` {
		t.Errorf("line 1: got %q", lines[1])
	}
	if lines[2] != "✓ Tool completed" {
		t.Errorf("line 2: got %q", lines[2])
	}
	if lines[3] != "🚀 Delegating to subagent: financial-analyst" {
		t.Errorf("line 3: got %q", lines[3])
	}
	// The subagent's tool call renders at depth 1, tagged with its name.
	if lines[4] != "   📎 [financial-analyst] Using: Read → q3.pdf" {
		t.Errorf("line 4: got %q", lines[4])
	}
	if lines[5] != "   ✓ Tool completed" {
		t.Errorf("line 5: got %q", lines[5])
	}
	if lines[6] != "   ✅ Subagent [financial-analyst] completed" {
		t.Errorf("line 6: got %q", lines[6])
	}

	if ctx.Depth != 0 {
		t.Errorf("depth must return to 0 after delegation end, got %d", ctx.Depth)
	}
	if ctx.Subagent != "" {
		t.Errorf("subagent must clear at depth 0, got %q", ctx.Subagent)
	}
}

func TestTracker_DelegationWithDescription(t *testing.T) {
	ctx := &Context{}
	lines := feed(t, ctx, []events.Event{
		&events.DelegationStartEvent{Subagent: "researcher", Description: "Find sources"},
	})

	if len(lines) != 2 {
		t.Fatalf("want 2 lines for delegation with description, got %d", len(lines))
	}
	if lines[1] != "   └─ Task: Find sources" {
		t.Errorf("description line: got %q", lines[1])
	}
}

func TestTracker_UnknownEventProducesGenericLine(t *testing.T) {
	ctx := &Context{}
	lines := feed(t, ctx, []events.Event{&events.UnknownEvent{RawKind: "future_kind"}})

	if len(lines) != 1 {
		t.Fatalf("want 1 generic line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "activity") || !strings.Contains(lines[0], "future_kind") {
		t.Errorf("generic line: got %q", lines[0])
	}
}

func TestTracker_DepthNeverNegative(t *testing.T) {
	ctx := &Context{}
	feed(t, ctx, []events.Event{
		&events.DelegationEndEvent{Subagent: "ghost"},
		&events.DelegationEndEvent{Subagent: "ghost"},
	})

	if ctx.Depth != 0 {
		t.Errorf("depth must stay at 0, got %d", ctx.Depth)
	}
}

func TestTracker_NestedDelegations(t *testing.T) {
	ctx := &Context{}
	lines := feed(t, ctx, []events.Event{
		&events.DelegationStartEvent{Subagent: "outer"},
		&events.DelegationStartEvent{Subagent: "inner"},
		&events.ToolCallEvent{Tool: "Grep"},
	})

	if ctx.Depth != 2 {
		t.Fatalf("want depth 2, got %d", ctx.Depth)
	}
	if lines[1] != "   🚀 Delegating to subagent: inner" {
		t.Errorf("inner delegation indents once: got %q", lines[1])
	}
	if lines[2] != "      📎 [inner] Using: Grep" {
		t.Errorf("nested tool call indents twice: got %q", lines[2])
	}
}

func TestTracker_ResetClearsLeakedState(t *testing.T) {
	ctx := &Context{}
	feed(t, ctx, []events.Event{&events.DelegationStartEvent{Subagent: "leaky"}})
	if ctx.Depth != 1 {
		t.Fatalf("precondition: want depth 1, got %d", ctx.Depth)
	}

	ctx.Reset()
	lines := feed(t, ctx, []events.Event{&events.ToolCallEvent{Tool: "Bash", Input: map[string]any{"command": "ls"}}})

	if lines[0] != "🤖 Using: Bash → ls" {
		t.Errorf("after reset the call must render at top level: got %q", lines[0])
	}
}

func TestTracker_ToolResultMarkers(t *testing.T) {
	ctx := &Context{}
	lines := feed(t, ctx, []events.Event{
		&events.ToolResultEvent{IsError: true},
		&events.ToolResultEvent{Images: []events.ImageBlock{{MediaType: "image/png", Data: strings.Repeat("A", 4000)}}},
	})

	if lines[0] != "✗ Tool failed" {
		t.Errorf("error marker: got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[image") {
		t.Errorf("image payload must collapse to a placeholder: got %q", lines[1])
	}
	if strings.Contains(lines[1], "AAAA") {
		t.Errorf("raw image bytes leaked into the trace: got %q", lines[1])
	}
}

func TestTracker_TextEvents(t *testing.T) {
	ctx := &Context{}
	lines := feed(t, ctx, []events.Event{
		&events.TextEvent{Text: "thinking out loud"},
		&events.DelegationStartEvent{Subagent: "analyst"},
		&events.TextEvent{Text: "inner thought"},
	})

	if lines[0] != "🤖 Thinking..." {
		t.Errorf("top-level text marker: got %q", lines[0])
	}
	if lines[2] != "   📎 [analyst] Thinking..." {
		t.Errorf("subagent text marker: got %q", lines[2])
	}
}

func TestTracker_LongLinesTruncated(t *testing.T) {
	var buf strings.Builder
	tr := New(&buf, WithMaxWidth(40))
	ctx := &Context{}
	tr.Handle(ctx, &events.ToolCallEvent{
		Tool:  "Bash",
		Input: map[string]any{"command": strings.Repeat("x", 200)},
	})

	line := strings.TrimRight(buf.String(), "\n")
	if !strings.HasSuffix(line, "…") {
		t.Errorf("long line must end in ellipsis, got %q", line)
	}
}
