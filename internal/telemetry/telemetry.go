// Package telemetry provides a JSONL event stream for a generation run. Run
// boundaries, every classified or failed module, written files and the
// validation outcome are recorded as structured JSON events so runs can be
// audited and replayed.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart         = "run_start"
	KindModuleClassified = "module_classified"
	KindModuleFailed     = "module_failed"
	KindManifestWritten  = "manifest_written"
	KindContextWritten   = "context_written"
	KindFileRemoved      = "file_removed"
	KindValidationDone   = "validation_done"
	KindRunDone          = "run_done"
)

// Event is a single telemetry record.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	Module    string    `json:"module,omitempty"` // module-lane key
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	runID string
	now   func() time.Time

	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates an Emitter that appends JSONL events for runID to the
// file at path, creating the file and its directory if needed.
func NewEmitter(path, runID string) (*Emitter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		runID: runID,
		now:   time.Now,
		file:  f,
		enc:   json.NewEncoder(f),
	}, nil
}

// PathFor returns the conventional event file for a run under dir.
func PathFor(dir, runID string) string {
	return filepath.Join(dir, runID+".jsonl")
}

// Emit writes a single event. Missing timestamps and run IDs are filled in.
// Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record emits an event of kind for module (which may be empty).
func (e *Emitter) Record(kind, module string, data any) error {
	return e.Emit(Event{Kind: kind, Module: module, Data: data})
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// ReadEvents decodes every event in a JSONL file. Data fields decode as
// generic JSON values.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			return nil, fmt.Errorf("telemetry: %s line %d: %w", path, line, err)
		}
		events = append(events, evt)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("telemetry: read %s: %w", path, err)
	}
	return events, nil
}
