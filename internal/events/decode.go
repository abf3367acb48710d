package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// Decoder reads newline-delimited stream-json records and yields Events.
// One wire record may yield several events (an assistant message carries a
// list of content blocks). The decoder pairs Task tool calls with their
// results so that delegations surface as start/end events rather than as
// ordinary tool traffic.
//
// This is the only place raw wire data is interpreted: a record of an
// unrecognized type, or a recognized type missing the fields it needs,
// becomes an UnknownEvent rather than an error.
type Decoder struct {
	sc    *bufio.Scanner
	queue []Event

	// pendingTasks maps a Task tool_use id to its subagent type so the
	// matching tool_result can be surfaced as a DelegationEndEvent.
	pendingTasks map[string]string
}

// NewDecoder wraps r, which must produce one JSON record per line.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Decoder{
		sc:           sc,
		pendingTasks: make(map[string]string),
	}
}

// Next returns the next event, or io.EOF when the stream is exhausted.
// A non-EOF error means the underlying reader failed; malformed records
// never produce an error.
func (d *Decoder) Next() (Event, error) {
	for len(d.queue) == 0 {
		if !d.sc.Scan() {
			if err := d.sc.Err(); err != nil {
				return nil, fmt.Errorf("reading event stream: %w", err)
			}
			return nil, io.EOF
		}
		line := strings.TrimSpace(d.sc.Text())
		if line == "" {
			continue
		}
		d.queue = append(d.queue, d.decodeLine([]byte(line))...)
	}

	ev := d.queue[0]
	d.queue = d.queue[1:]
	return ev, nil
}

// rawRecord is the first-pass discrimination shape for a wire record.
type rawRecord struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`

	// system/init fields
	SessionID  string `json:"session_id"`
	Model      string `json:"model"`
	Tools      []string `json:"tools"`
	MCPServers []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"mcp_servers"`

	// assistant/user fields
	ParentToolUseID *string `json:"parent_tool_use_id"`
	Message         *struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`

	// result fields
	IsError       bool        `json:"is_error"`
	NumTurns      int         `json:"num_turns"`
	DurationMs    int64       `json:"duration_ms"`
	DurationAPIMs int64       `json:"duration_api_ms"`
	TotalCostUSD  json.Number `json:"total_cost_usd"`
	Result        string      `json:"result"`
	Usage         *struct {
		InputTokens              int64 `json:"input_tokens"`
		OutputTokens             int64 `json:"output_tokens"`
		CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

// rawBlock is one content block inside an assistant or user message.
type rawBlock struct {
	Type string `json:"type"`

	// text block
	Text string `json:"text"`

	// tool_use block
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`

	// tool_result block
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

func (d *Decoder) decodeLine(line []byte) []Event {
	var rec rawRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return []Event{&UnknownEvent{RawKind: "malformed", Raw: append(json.RawMessage(nil), line...)}}
	}

	switch rec.Type {
	case "system":
		if rec.Subtype != "init" {
			return []Event{unknown(rec.Type+"/"+rec.Subtype, line)}
		}
		ev := &InitEvent{
			SessionID: rec.SessionID,
			Model:     rec.Model,
			Tools:     rec.Tools,
		}
		for _, s := range rec.MCPServers {
			ev.MCPServers = append(ev.MCPServers, s.Name)
		}
		return []Event{ev}

	case "assistant":
		return d.decodeAssistant(rec, line)

	case "user":
		return d.decodeUser(rec, line)

	case "result":
		ev := &ResultEvent{
			Subtype:       rec.Subtype,
			SessionID:     rec.SessionID,
			IsError:       rec.IsError,
			NumTurns:      rec.NumTurns,
			DurationMs:    rec.DurationMs,
			DurationAPIMs: rec.DurationAPIMs,
			Result:        rec.Result,
		}
		if cost, err := decimal.NewFromString(rec.TotalCostUSD.String()); err == nil {
			ev.TotalCost = cost
		}
		if rec.Usage != nil {
			ev.Usage = Usage{
				InputTokens:              rec.Usage.InputTokens,
				OutputTokens:             rec.Usage.OutputTokens,
				CacheReadInputTokens:     rec.Usage.CacheReadInputTokens,
				CacheCreationInputTokens: rec.Usage.CacheCreationInputTokens,
			}
		}
		return []Event{ev}

	default:
		return []Event{unknown(rec.Type, line)}
	}
}

func (d *Decoder) decodeAssistant(rec rawRecord, line []byte) []Event {
	blocks, ok := contentBlocks(rec)
	if !ok {
		return []Event{unknown(rec.Type, line)}
	}

	parent := ""
	if rec.ParentToolUseID != nil {
		parent = *rec.ParentToolUseID
	}

	var out []Event
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, &TextEvent{Text: b.Text, ParentToolUseID: parent})
		case "tool_use":
			if b.Name == "Task" {
				ev := &DelegationStartEvent{
					ID:       b.ID,
					Subagent: stringInput(b.Input, "subagent_type"),
				}
				if ev.Subagent == "" {
					ev.Subagent = "unknown"
				}
				ev.Description = stringInput(b.Input, "description")
				ev.Prompt = stringInput(b.Input, "prompt")
				d.pendingTasks[b.ID] = ev.Subagent
				out = append(out, ev)
				continue
			}
			out = append(out, &ToolCallEvent{
				ID:              b.ID,
				Tool:            b.Name,
				Input:           b.Input,
				ParentToolUseID: parent,
			})
		}
	}
	if len(out) == 0 {
		// An assistant record with no usable blocks still happened.
		return []Event{&TextEvent{ParentToolUseID: parent}}
	}
	return out
}

func (d *Decoder) decodeUser(rec rawRecord, line []byte) []Event {
	blocks, ok := contentBlocks(rec)
	if !ok {
		return []Event{unknown(rec.Type, line)}
	}

	var out []Event
	for _, b := range blocks {
		if b.Type != "tool_result" {
			continue
		}
		if subagent, isTask := d.pendingTasks[b.ToolUseID]; isTask {
			delete(d.pendingTasks, b.ToolUseID)
			text, _, _ := flattenResultContent(b.Content)
			out = append(out, &DelegationEndEvent{
				ToolUseID: b.ToolUseID,
				Subagent:  subagent,
				Summary:   text,
			})
			continue
		}

		text, images, structured := flattenResultContent(b.Content)
		out = append(out, &ToolResultEvent{
			ToolUseID:  b.ToolUseID,
			IsError:    b.IsError,
			Text:       text,
			Images:     images,
			Structured: structured,
		})
	}
	if len(out) == 0 {
		return []Event{unknown(rec.Type, line)}
	}
	return out
}

// contentBlocks extracts the message content as blocks. Wire content is
// either a plain string or an array of typed blocks.
func contentBlocks(rec rawRecord) ([]rawBlock, bool) {
	if rec.Message == nil || len(rec.Message.Content) == 0 {
		return nil, false
	}
	raw := rec.Message.Content
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		return []rawBlock{{Type: "text", Text: s}}, true
	}
	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, false
	}
	return blocks, true
}

// flattenResultContent flattens tool_result content, which is either a
// plain string or an array of text/image blocks. When the combined text
// decodes as a JSON object or array it is also returned in structured form
// so renderers can table or pretty-print it.
func flattenResultContent(raw json.RawMessage) (string, []ImageBlock, any) {
	if len(raw) == 0 {
		return "", nil, nil
	}

	var text string
	var images []ImageBlock

	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", nil, nil
		}
	} else {
		var blocks []struct {
			Type   string `json:"type"`
			Text   string `json:"text"`
			Source struct {
				Type      string `json:"type"`
				MediaType string `json:"media_type"`
				Data      string `json:"data"`
			} `json:"source"`
		}
		if err := json.Unmarshal(raw, &blocks); err != nil {
			return "", nil, nil
		}
		var parts []string
		for _, b := range blocks {
			switch b.Type {
			case "text":
				parts = append(parts, b.Text)
			case "image":
				images = append(images, ImageBlock{
					MediaType: b.Source.MediaType,
					Data:      b.Source.Data,
				})
			}
		}
		text = strings.Join(parts, "\n")
	}

	return text, images, decodeStructured(text)
}

// decodeStructured returns the decoded form of s when it is a JSON object
// or array, nil otherwise.
func decodeStructured(s string) any {
	t := strings.TrimSpace(s)
	if len(t) == 0 || (t[0] != '{' && t[0] != '[') {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(t), &v); err != nil {
		return nil
	}
	return v
}

func unknown(kind string, line []byte) *UnknownEvent {
	return &UnknownEvent{RawKind: kind, Raw: append(json.RawMessage(nil), line...)}
}
