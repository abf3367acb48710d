package render

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nixlim/cc-trace/internal/events"
)

func plainRenderer() *Renderer {
	return New(WithMode(ModePlain), WithWidth(80))
}

func documentRenderer() *Renderer {
	return New(WithMode(ModeDocument), WithWidth(80))
}

// sampleTranscript covers every event kind once, with a delegation.
func sampleTranscript() []events.Event {
	return []events.Event{
		&events.InitEvent{SessionID: "sess-1234567890ab", Model: "claude-sonnet-4-5"},
		&events.TextEvent{Text: "Let me research that."},
		&events.ToolCallEvent{Tool: "WebSearch", Input: map[string]any{"query": "ACME earnings"}},
		&events.ToolResultEvent{Text: "10 results"},
		&events.DelegationStartEvent{Subagent: "financial-analyst", Description: "Analyze Q3"},
		&events.ToolCallEvent{Tool: "Read", Input: map[string]any{"file_path": "q3.pdf"}},
		&events.ToolResultEvent{Text: "file contents"},
		&events.DelegationEndEvent{Subagent: "financial-analyst", Summary: "Revenue grew 12%."},
		&events.TextEvent{Text: "Revenue grew 12% in Q3."},
		&events.ResultEvent{
			Subtype:    "success",
			NumTurns:   3,
			DurationMs: 2500,
			TotalCost:  decimal.RequireFromString("0.0042"),
			Usage:      events.Usage{InputTokens: 120, OutputTokens: 340},
			Result:     "Revenue grew 12% in Q3.",
		},
	}
}

func TestFinalCard_VerbatimFigures(t *testing.T) {
	out := plainRenderer().FinalCard(sampleTranscript(), "claude-sonnet-4-5")

	for _, want := range []string{"0.0042", "120", "340", "claude-sonnet-4-5"} {
		if !strings.Contains(out, want) {
			t.Errorf("final card must contain %q verbatim:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "Revenue grew 12% in Q3.") {
		t.Errorf("final card must contain the answer text:\n%s", out)
	}
	if !strings.Contains(out, "2.5s") {
		t.Errorf("final card must contain the duration:\n%s", out)
	}
}

func TestFinalCard_IncompleteTurn(t *testing.T) {
	evts := []events.Event{
		&events.InitEvent{SessionID: "s"},
		&events.TextEvent{Text: "partial answer"},
	}
	out := plainRenderer().FinalCard(evts, "")

	if !strings.Contains(out, "incomplete") {
		t.Errorf("want an explicit incomplete indicator:\n%s", out)
	}
	if strings.Contains(out, "$0") {
		t.Errorf("incomplete card must not fabricate zero figures:\n%s", out)
	}
	if !strings.Contains(out, "partial answer") {
		t.Errorf("incomplete card should still show the partial response:\n%s", out)
	}
}

func TestFinalCard_ErrorSubtype(t *testing.T) {
	evts := []events.Event{
		&events.ResultEvent{
			Subtype:  "error_max_turns",
			IsError:  true,
			NumTurns: 10,
		},
	}
	out := plainRenderer().FinalCard(evts, "")
	if !strings.Contains(out, "error_max_turns") {
		t.Errorf("error outcome must surface its subtype:\n%s", out)
	}
}

func TestTranscript_Deterministic(t *testing.T) {
	r := plainRenderer()
	evts := sampleTranscript()

	first := r.Transcript(evts)
	second := r.Transcript(evts)
	if first != second {
		t.Error("repeated renders of the same transcript must be identical")
	}
}

func TestTranscript_DoesNotMutateInput(t *testing.T) {
	evts := sampleTranscript()
	before := make([]events.Event, len(evts))
	copy(before, evts)

	plainRenderer().Transcript(evts)

	for i := range evts {
		if evts[i] != before[i] {
			t.Fatalf("transcript mutated the input slice at %d", i)
		}
	}
}

// orderedTitles is the content both modes must agree on.
var orderedTitles = []string{
	"System Initialized",
	"Assistant",
	"DELEGATING TO: FINANCIAL-ANALYST",
	"SUBAGENT [FINANCIAL-ANALYST] COMPLETE",
	"Complete",
}

func assertOrdered(t *testing.T, out string, wants []string) {
	t.Helper()
	pos := 0
	for _, want := range wants {
		i := strings.Index(out[pos:], want)
		if i < 0 {
			t.Fatalf("missing or out of order: %q\nin output:\n%s", want, out)
		}
		pos += i + len(want)
	}
}

func TestTranscript_ModesAgreeOnContentOrder(t *testing.T) {
	evts := sampleTranscript()

	plain := plainRenderer().Transcript(evts)
	document := documentRenderer().Transcript(evts)

	assertOrdered(t, plain, orderedTitles)
	assertOrdered(t, document, orderedTitles)
}

func TestTranscript_GroupsConsecutiveToolCalls(t *testing.T) {
	evts := []events.Event{
		&events.ToolCallEvent{Tool: "WebSearch", Input: map[string]any{"query": "a"}},
		&events.ToolCallEvent{Tool: "Read", Input: map[string]any{"file_path": "b.txt"}},
		&events.TextEvent{Text: "done"},
	}
	out := plainRenderer().Transcript(evts)

	if !strings.Contains(out, "Tools: ") {
		t.Errorf("consecutive calls must group into one compact entry:\n%s", out)
	}
	if !strings.Contains(out, "Read → b.txt") {
		t.Errorf("grouped entry must keep each call's summary:\n%s", out)
	}
}

func TestTranscript_TabularResult(t *testing.T) {
	evts := []events.Event{
		&events.ToolResultEvent{
			Structured: []any{
				map[string]any{"ticker": "ACME", "price": float64(42)},
				map[string]any{"ticker": "GLOBEX", "price": float64(17)},
			},
		},
	}
	out := plainRenderer().Transcript(evts)

	// Columns are emitted in deterministic sorted order.
	assertOrdered(t, out, []string{"price", "ticker", "42", "ACME", "17", "GLOBEX"})
}

func TestTranscript_ImagePlaceholderInPlainMode(t *testing.T) {
	evts := []events.Event{
		&events.ToolResultEvent{
			Images: []events.ImageBlock{{MediaType: "image/png", Data: strings.Repeat("A", 4000)}},
		},
	}
	out := plainRenderer().Transcript(evts)

	if !strings.Contains(out, "[image:") {
		t.Errorf("plain mode must show a size placeholder:\n%s", out)
	}
	if strings.Contains(out, "AAAA") {
		t.Errorf("plain mode must not dump raw image bytes:\n%s", out)
	}
}

func TestTranscript_UnknownEventRendersGenericBlock(t *testing.T) {
	evts := []events.Event{&events.UnknownEvent{RawKind: "future_kind"}}
	out := plainRenderer().Transcript(evts)

	if !strings.Contains(out, "future_kind") {
		t.Errorf("unknown events must appear as generic activity:\n%s", out)
	}
}

func TestTranscript_ClosesDanglingDelegation(t *testing.T) {
	evts := []events.Event{
		&events.DelegationStartEvent{Subagent: "researcher"},
		&events.ResultEvent{Subtype: "success"},
	}
	out := plainRenderer().Transcript(evts)

	assertOrdered(t, out, []string{"DELEGATING TO: RESEARCHER", "SUBAGENT [RESEARCHER] COMPLETE", "Complete"})
}

func TestResponseCard_LastTopLevelText(t *testing.T) {
	evts := []events.Event{
		&events.TextEvent{Text: "first thought"},
		&events.TextEvent{Text: "inner detail", ParentToolUseID: "tu_1"},
		&events.TextEvent{Text: "final answer"},
		&events.ToolCallEvent{Tool: "Bash"},
	}
	out := plainRenderer().ResponseCard(evts)

	if !strings.Contains(out, "final answer") {
		t.Errorf("want the last top-level text:\n%s", out)
	}
	if strings.Contains(out, "inner detail") {
		t.Errorf("subagent-internal text must be ignored:\n%s", out)
	}
}

func TestResponseCard_NoResponse(t *testing.T) {
	out := plainRenderer().ResponseCard([]events.Event{&events.ToolCallEvent{Tool: "Bash"}})
	if !strings.Contains(out, "No assistant response") {
		t.Errorf("want an explicit no-response indicator:\n%s", out)
	}
}

func TestFinalCard_ModelFallsBackToInitEvent(t *testing.T) {
	evts := []events.Event{
		&events.InitEvent{SessionID: "s", Model: "claude-opus-4"},
		&events.ResultEvent{Subtype: "success"},
	}
	out := plainRenderer().FinalCard(evts, "")
	if !strings.Contains(out, "claude-opus-4") {
		t.Errorf("model should fall back to the init event:\n%s", out)
	}
}
