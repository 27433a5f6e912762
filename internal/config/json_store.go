package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	planFileName  = "clockplan.json"
	debounceDelay = 500 * time.Millisecond
)

// JSONStore is an atomic JSON file store with debounced writes.
type JSONStore struct {
	mu      sync.Mutex
	path    string
	timer   *time.Timer
	pending *Plan
}

// NewJSONStore creates a new JSON store in the given config directory.
func NewJSONStore(configDir string) *JSONStore {
	return &JSONStore{
		path: filepath.Join(configDir, planFileName),
	}
}

// Path returns the file path used by this store.
func (s *JSONStore) Path() string { return s.path }

// Load reads the plan from disk. Returns DefaultPlan when the file does not
// exist; a file that does not parse is an error.
func (s *JSONStore) Load() (*Plan, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			def := DefaultPlan()
			return &def, nil
		}
		return nil, err
	}
	return parsePlan(data, s.path)
}

func parsePlan(data []byte, path string) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		slog.Warn("config: corrupt plan file", "path", path, "err", err)
		return nil, err
	}
	Migrate(&plan)
	return &plan, nil
}

// Save schedules a debounced write of the plan to disk.
// The actual write happens after 500ms of no further Save calls.
func (s *JSONStore) Save(plan *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := plan.DeepCopy()
	s.pending = &cp

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		p := s.pending
		s.mu.Unlock()
		if p != nil {
			if err := s.writeAtomic(p); err != nil {
				slog.Error("config: failed to write plan", "path", s.path, "err", err)
			}
		}
	})
	return nil
}

// Flush forces an immediate write of any pending plan.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	p := s.pending
	s.mu.Unlock()
	if p == nil {
		return nil
	}
	return s.writeAtomic(p)
}

func (s *JSONStore) writeAtomic(plan *Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	// Write to temp file, then rename (atomic on Linux)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
