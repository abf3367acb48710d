package events

import "sync"

// Collector accumulates the ordered events of one turn. It is bounded:
// when capacity is exceeded the oldest non-terminal event is dropped, but
// a ResultEvent is always retained so summary rendering survives long
// turns. All methods are safe for concurrent use, though normal use is a
// single writer feeding events in stream order.
type Collector struct {
	mu     sync.RWMutex
	items  []Event
	cap    int
	head   int // index of the oldest element
	count  int // number of elements currently stored
	result *ResultEvent
}

// NewCollector creates a Collector holding at most capacity non-terminal
// events. Capacity must be at least 1.
func NewCollector(capacity int) *Collector {
	if capacity < 1 {
		capacity = 1
	}
	return &Collector{
		items: make([]Event, capacity),
		cap:   capacity,
	}
}

// Add appends an event in stream order. When the collector is full the
// oldest event is overwritten.
func (c *Collector) Add(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := e.(*ResultEvent); ok {
		c.result = r
		return
	}

	writePos := (c.head + c.count) % c.cap
	if c.count == c.cap {
		c.items[c.head] = e
		c.head = (c.head + 1) % c.cap
	} else {
		c.items[writePos] = e
		c.count++
	}
}

// Events returns the collected transcript in stream order, with the
// terminal ResultEvent (if one arrived) last. The returned slice is a
// snapshot; callers may not see later additions.
func (c *Collector) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Event, 0, c.count+1)
	for i := 0; i < c.count; i++ {
		out = append(out, c.items[(c.head+i)%c.cap])
	}
	if c.result != nil {
		out = append(out, c.result)
	}
	return out
}

// Len returns the number of events currently held, including the terminal
// result if one arrived.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := c.count
	if c.result != nil {
		n++
	}
	return n
}

// Reset discards all collected events. Call it before feeding the events
// of a new turn.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = 0
	c.count = 0
	c.result = nil
	for i := range c.items {
		c.items[i] = nil
	}
}

// Result returns the terminal ResultEvent, or nil when the turn ended
// without one.
func (c *Collector) Result() *ResultEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// LastAssistantText returns the text of the last non-empty assistant text
// event at top level (tool chatter and subagent-internal text ignored),
// or "" when there is none.
func LastAssistantText(evts []Event) string {
	for i := len(evts) - 1; i >= 0; i-- {
		if t, ok := evts[i].(*TextEvent); ok && t.ParentToolUseID == "" && t.Text != "" {
			return t.Text
		}
	}
	return ""
}

// TerminalResult returns the transcript's ResultEvent, or nil. The result
// is normally last but a truncated stream may bury or omit it.
func TerminalResult(evts []Event) *ResultEvent {
	for i := len(evts) - 1; i >= 0; i-- {
		if r, ok := evts[i].(*ResultEvent); ok {
			return r
		}
	}
	return nil
}
