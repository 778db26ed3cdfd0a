package consistency

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Sink receives exported signals for out-of-process observers.
type Sink interface {
	Emit(s Signal[string]) error
}

// JSONLinesSink writes one JSON object per signal to w.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLinesSink returns a sink writing to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLinesSink{enc: enc}
}

func (s *JSONLinesSink) Emit(sig Signal[string]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(sig); err != nil {
		return fmt.Errorf("write signal: %w", err)
	}
	return nil
}

// Recorder is an in-memory Sink.
type Recorder struct {
	mu      sync.Mutex
	signals []Signal[string]
}

func (r *Recorder) Emit(sig Signal[string]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
	return nil
}

// Signals returns a copy of everything emitted so far.
func (r *Recorder) Signals() []Signal[string] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Signal[string], len(r.signals))
	copy(out, r.signals)
	return out
}
