// Package store persists fangnote state in a local key-value store.
//
// Two keys exist: "theme" holds the UI theme preference and "property_tasks"
// holds the durable task snapshot. Backends are interchangeable; the default
// is a plain file per key in the data directory.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuchen-w/fangnote/internal/metrics"
	"github.com/yuchen-w/fangnote/internal/models"
)

// Persisted keys.
const (
	KeyTheme = "theme"
	KeyTasks = "property_tasks"
)

// KV is a minimal key-value store.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close(ctx context.Context) error
}

// TaskStore reads and writes the durable task snapshot and the theme
// preference through a KV backend.
type TaskStore struct {
	kv      KV
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a TaskStore. logger and collector may be nil.
func New(kv KV, logger *slog.Logger, collector *metrics.Collector) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{kv: kv, logger: logger, metrics: collector}
}

// SaveTasks writes the durable snapshot: processing tasks are excluded
// entirely (they cannot be resumed, so a reload simply loses them) and failed
// tasks carry only their source text — media attachments live in the
// in-memory side table and are never serialized.
func (s *TaskStore) SaveTasks(ctx context.Context, tasks []models.Task) error {
	durable := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == models.StatusProcessing {
			continue
		}
		durable = append(durable, t)
	}

	data, err := json.Marshal(durable)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	start := time.Now()
	if err := s.kv.Put(ctx, KeyTasks, data); err != nil {
		return fmt.Errorf("persist tasks: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpStoreSave, time.Since(start))
	}
	return nil
}

// LoadTasks reads the persisted snapshot. A missing key or corrupt value
// yields an empty list; corruption is logged, never fatal.
func (s *TaskStore) LoadTasks(ctx context.Context) []models.Task {
	start := time.Now()
	data, ok, err := s.kv.Get(ctx, KeyTasks)
	if err != nil {
		s.logger.Warn("failed to read persisted tasks, starting empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpStoreLoad, time.Since(start))
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		s.logger.Warn("persisted tasks are corrupt, starting empty", "error", err)
		return nil
	}

	// A snapshot written by an interrupted process could still contain
	// entries that violate the status/payload pairing; drop those.
	kept := tasks[:0]
	for _, t := range tasks {
		if t.Status == models.StatusProcessing {
			continue
		}
		if !t.Valid() {
			s.logger.Warn("dropping inconsistent persisted task", "id", t.ID, "status", t.Status)
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// Theme returns the stored theme preference, if any.
func (s *TaskStore) Theme(ctx context.Context) (string, bool) {
	data, ok, err := s.kv.Get(ctx, KeyTheme)
	if err != nil || !ok {
		return "", false
	}
	theme := string(data)
	if theme != "light" && theme != "dark" {
		return "", false
	}
	return theme, true
}

// SetTheme stores the theme preference.
func (s *TaskStore) SetTheme(ctx context.Context, theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.kv.Put(ctx, KeyTheme, []byte(theme))
}

// Close closes the underlying backend.
func (s *TaskStore) Close(ctx context.Context) error {
	return s.kv.Close(ctx)
}
