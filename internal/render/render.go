// Package render holds the append-only sink every message producer writes to.
package render

import (
	"fmt"
	"io"
	"sync"

	"msgboard/internal/model"
)

// Renderer accepts display records in order. Append is atomic per call.
type Renderer interface {
	Append(record model.DisplayRecord)
}

// Writer renders one line per record on an io.Writer
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Append(record model.DisplayRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// a failed terminal write has nowhere to be reported
	_, _ = fmt.Fprintln(w.out, record.String())
}

// Memory keeps every appended record
type Memory struct {
	mu      sync.Mutex
	records []model.DisplayRecord
	notify  chan struct{}
}

func NewMemory() *Memory {
	return &Memory{notify: make(chan struct{}, 1)}
}

func (m *Memory) Append(record model.DisplayRecord) {
	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Records returns a copy of the records appended so far.
func (m *Memory) Records() []model.DisplayRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DisplayRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Lines returns the rendered form of every record.
func (m *Memory) Lines() []string {
	records := m.Records()
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.String()
	}
	return lines
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Appended is signalled after an append. Signals coalesce, so callers
// re-check Len after each receive.
func (m *Memory) Appended() <-chan struct{} {
	return m.notify
}
