package logger

import (
	"sync"
	"time"
)

// ErrorEntry is one buffered error log line.
type ErrorEntry struct {
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	Seen    time.Time              `json:"seen"`
}

// ErrorBuffer keeps a bounded ring of recent error entries.
type ErrorBuffer struct {
	mu      sync.Mutex
	entries []ErrorEntry
	next    int
	full    bool
}

func NewErrorBuffer(size int) *ErrorBuffer {
	if size <= 0 {
		size = 64
	}
	return &ErrorBuffer{entries: make([]ErrorEntry, size)}
}

func (b *ErrorBuffer) Add(msg string, fields []Field) {
	var fm map[string]interface{}
	if len(fields) > 0 {
		fm = make(map[string]interface{}, len(fields))
		for _, f := range fields {
			k, v := f.GetKeyValue()
			fm[k] = v
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = ErrorEntry{Message: msg, Fields: fm, Seen: time.Now()}
	b.next++
	if b.next == len(b.entries) {
		b.next = 0
		b.full = true
	}
}

// Entries returns buffered entries in insertion order, oldest first.
func (b *ErrorBuffer) Entries() []ErrorEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]ErrorEntry, b.next)
		copy(out, b.entries[:b.next])
		return out
	}
	out := make([]ErrorEntry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	out = append(out, b.entries[:b.next]...)
	return out
}
