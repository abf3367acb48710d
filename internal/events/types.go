// Package events defines the closed set of events a Claude agent runtime
// emits while working through one turn, a decoder that parses the
// stream-json wire format into that set, and a bounded collector for
// accumulating a turn's transcript.
package events

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant of an Event.
type Kind string

const (
	KindInit            Kind = "init"
	KindText            Kind = "text"
	KindToolCall        Kind = "tool_call"
	KindToolResult      Kind = "tool_result"
	KindDelegationStart Kind = "delegation_start"
	KindDelegationEnd   Kind = "delegation_end"
	KindResult          Kind = "result"
	KindUnknown         Kind = "unknown"
)

// Event is the interface implemented by all event variants. The set of
// variants is closed; only the decoder constructs UnknownEvent, for wire
// records it does not recognize.
type Event interface {
	Kind() Kind
}

// InitEvent is emitted once at the start of a turn with session info.
type InitEvent struct {
	SessionID  string
	Model      string
	Tools      []string
	MCPServers []string
}

func (*InitEvent) Kind() Kind { return KindInit }

// TextEvent carries one assistant text block. ParentToolUseID is non-empty
// when the text was produced inside a subagent delegation.
type TextEvent struct {
	Text            string
	ParentToolUseID string
}

func (*TextEvent) Kind() Kind { return KindText }

// ToolCallEvent carries one tool invocation by the assistant.
type ToolCallEvent struct {
	ID              string
	Tool            string
	Input           map[string]any
	ParentToolUseID string
}

func (*ToolCallEvent) Kind() Kind { return KindToolCall }

// ImageBlock is a base64-encoded image payload attached to a tool result.
type ImageBlock struct {
	MediaType string
	Data      string
}

// ToolResultEvent carries the outcome of one tool invocation. Text holds
// the flattened text content; Structured is set when that text decodes as
// a JSON object or array.
type ToolResultEvent struct {
	ToolUseID  string
	IsError    bool
	Text       string
	Images     []ImageBlock
	Structured any
}

func (*ToolResultEvent) Kind() Kind { return KindToolResult }

// DelegationStartEvent marks the assistant handing a sub-task to a named
// subagent.
type DelegationStartEvent struct {
	ID          string
	Subagent    string
	Description string
	Prompt      string
}

func (*DelegationStartEvent) Kind() Kind { return KindDelegationStart }

// DelegationEndEvent marks a subagent finishing its sub-task.
type DelegationEndEvent struct {
	ToolUseID string
	Subagent  string
	Summary   string
}

func (*DelegationEndEvent) Kind() Kind { return KindDelegationEnd }

// Usage tracks token consumption for a turn.
type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheReadInputTokens     int64
	CacheCreationInputTokens int64
}

// ResultEvent is emitted once at the end of a turn with summary figures.
// A transcript with no ResultEvent means the turn ended without completing.
type ResultEvent struct {
	// Subtype indicates the outcome: "success", "error_max_turns", or
	// "error_during_execution".
	Subtype       string
	SessionID     string
	IsError       bool
	NumTurns      int
	DurationMs    int64
	DurationAPIMs int64
	TotalCost     decimal.Decimal
	Usage         Usage
	Result        string
}

func (*ResultEvent) Kind() Kind { return KindResult }

// UnknownEvent is the boundary catch-all for wire records whose type the
// decoder does not recognize, or recognizes but cannot fully parse.
// Consumers render it as generic activity, never as an error.
type UnknownEvent struct {
	RawKind string
	Raw     json.RawMessage
}

func (*UnknownEvent) Kind() Kind { return KindUnknown }
