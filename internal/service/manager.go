// Package service owns the task log and its lifecycle state machine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/yuchen-w/fangnote/internal/extract"
	"github.com/yuchen-w/fangnote/internal/models"
	"github.com/yuchen-w/fangnote/internal/store"
)

// NoListingsMessage is the failure message when extraction succeeds but
// recognizes nothing. Zero listings is deliberately an error, matching the
// product's behavior, not an empty success.
const NoListingsMessage = "未能识别到有效房源信息"

// defaultErrorMessage replaces an empty error string on a failed task.
const defaultErrorMessage = "未知错误"

var (
	ErrEmptyInput   = errors.New("submission needs text, an image or audio")
	ErrTaskNotFound = errors.New("task not found")
	ErrNotRetryable = errors.New("task is not a retryable failure")
	ErrNotEditable  = errors.New("task holds no extracted listing to edit")
)

// attachments are the session-only media of one task. They are never
// persisted: after a restart a failed task can only be retried with its text.
type attachments struct {
	image *extract.Media
	audio *extract.Media
}

// Manager holds the ordered task log (newest first), dispatches extraction
// calls and applies their completions. All state lives behind one mutex;
// each completion handler runs atomically with respect to other mutations,
// and completions find their task by id, so interleaved extractions cannot
// corrupt unrelated tasks.
type Manager struct {
	mu    sync.Mutex
	tasks []models.Task
	media map[string]attachments

	// Snapshots are numbered under mu and written under persistMu; a write
	// whose snapshot is older than the last one stored is dropped, so a
	// slow Put can never overwrite a newer snapshot.
	persistMu    sync.Mutex
	persistSeq   uint64 // next snapshot number, guarded by mu
	persistedSeq uint64 // last stored snapshot number, guarded by persistMu

	extractor extract.Extractor
	store     *store.TaskStore
	logger    *slog.Logger

	subsMu sync.Mutex
	subs   []chan struct{}

	inflight sync.WaitGroup
}

// NewManager creates a manager. store may be nil (nothing is persisted then).
func NewManager(extractor extract.Extractor, taskStore *store.TaskStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		media:     make(map[string]attachments),
		extractor: extractor,
		store:     taskStore,
		logger:    logger,
	}
}

// LoadPersisted reads the durable snapshot into the log. Called once at
// startup, before any submission.
func (m *Manager) LoadPersisted(ctx context.Context) {
	if m.store == nil {
		return
	}
	loaded := m.store.LoadTasks(ctx)

	m.mu.Lock()
	m.tasks = loaded
	m.mu.Unlock()

	m.logger.Info("task log loaded", "tasks", len(loaded))
	m.notify()
}

// Submit records one processing task at the head of the log and starts the
// extraction call. Returns the id of the new task. With no input at all this
// is a rejected no-op: nothing is created.
func (m *Manager) Submit(text string, image, audio *extract.Media) (string, error) {
	in := extract.Input{Text: text, Image: image, Audio: audio}
	if !in.HasContent() {
		return "", ErrEmptyInput
	}

	task := models.NewProcessingTask(models.DescribeInput(text, audio != nil, image != nil))

	m.mu.Lock()
	m.tasks = append([]models.Task{task}, m.tasks...)
	if image != nil || audio != nil {
		m.media[task.ID] = attachments{image: image, audio: audio}
	}
	m.persistAndUnlock()

	m.logger.Info("task submitted", "task_id", task.ID,
		"has_text", text != "", "has_image", image != nil, "has_audio", audio != nil)
	m.notify()

	m.inflight.Add(1)
	go m.runExtraction(task.ID, in)

	return task.ID, nil
}

// Retry removes a failed task and resubmits its retained input as a brand
// new processing task. Media attachments survive only within the session;
// after a reload the retry proceeds with text alone.
func (m *Manager) Retry(id string) (string, error) {
	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return "", ErrTaskNotFound
	}
	failed := m.tasks[idx]
	if failed.Status != models.StatusFailed || failed.Fail == nil {
		m.mu.Unlock()
		return "", ErrNotRetryable
	}

	att := m.media[id]
	in := extract.Input{Text: failed.Fail.SourceText, Image: att.image, Audio: att.audio}
	if !in.HasContent() {
		// Text-less failure whose media did not survive a reload.
		m.mu.Unlock()
		return "", ErrNotRetryable
	}

	m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
	delete(m.media, id)

	task := models.NewProcessingTask(models.DescribeInput(in.Text, in.Audio != nil, in.Image != nil))
	m.tasks = append([]models.Task{task}, m.tasks...)
	if in.Image != nil || in.Audio != nil {
		m.media[task.ID] = attachments{image: in.Image, audio: in.Audio}
	}
	m.persistAndUnlock()

	m.logger.Info("task retried", "failed_task_id", id, "task_id", task.ID)
	m.notify()

	m.inflight.Add(1)
	go m.runExtraction(task.ID, in)

	return task.ID, nil
}

// EditAndSave writes the edited listing back to a success task, refreshes its
// description, and marks it published (or stamps it as a template instead).
// The status never changes.
func (m *Manager) EditAndSave(id string, listing models.Listing, asTemplate bool) error {
	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	task := &m.tasks[idx]
	if task.Status != models.StatusSuccess || task.Result == nil {
		m.mu.Unlock()
		return ErrNotEditable
	}

	task.Result.Listing = listing
	task.Result.IsPublished = !asTemplate
	task.Result.IsTemplate = asTemplate
	task.Description = listing.Summary()
	m.persistAndUnlock()

	m.logger.Info("task saved", "task_id", id, "template", asTemplate)
	m.notify()
	return nil
}

// runExtraction performs one extraction call and applies its outcome. The
// originating processing task is identified by id, never by position.
func (m *Manager) runExtraction(id string, in extract.Input) {
	defer m.inflight.Done()

	// The call has no cancellation: once in flight it runs until the
	// service resolves or rejects it.
	listings, err := m.extractor.Extract(context.Background(), in)
	if err == nil && len(listings) == 0 {
		err = errors.New(NoListingsMessage)
	}

	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		// Task vanished while in flight; drop the result.
		m.mu.Unlock()
		m.logger.Warn("extraction completed for unknown task", "task_id", id)
		return
	}
	m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
	att := m.media[id]
	delete(m.media, id)

	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = defaultErrorMessage
		}
		failed := models.NewFailedTask(
			models.DescribeInput(in.Text, in.Audio != nil, in.Image != nil),
			in.Text, msg)
		m.tasks = append([]models.Task{failed}, m.tasks...)
		if att.image != nil || att.audio != nil {
			m.media[failed.ID] = att
		}
		m.persistAndUnlock()

		m.logger.Warn("extraction failed", "task_id", id, "error", msg)
		m.notify()
		return
	}

	// One success task per listing, response order preserved, all ahead of
	// the existing log.
	fresh := make([]models.Task, 0, len(listings))
	for _, l := range listings {
		fresh = append(fresh, models.NewSuccessTask(l))
	}
	m.tasks = append(fresh, m.tasks...)
	m.persistAndUnlock()

	m.logger.Info("extraction succeeded", "task_id", id, "listings", len(listings))
	m.notify()
}

// Snapshot returns a copy of the task log, newest first.
func (m *Manager) Snapshot() []models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// Task returns one task by id.
func (m *Manager) Task(id string) (models.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.indexOf(id); idx >= 0 {
		return m.tasks[idx], true
	}
	return models.Task{}, false
}

// MediaFor reports the session-only attachments retained for a task.
func (m *Manager) MediaFor(id string) (image, audio *extract.Media) {
	m.mu.Lock()
	defer m.mu.Unlock()
	att := m.media[id]
	return att.image, att.audio
}

// Tabs derives the three tab projections from the current log.
func (m *Manager) Tabs() Tabs {
	return ComputeTabs(m.Snapshot())
}

// Subscribe returns a channel that receives a signal after every change to
// the log. Signals are coalesced; receivers must re-read via Snapshot.
func (m *Manager) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

// Wait blocks until all in-flight extractions have completed or the context
// is done. Returns true if everything finished.
func (m *Manager) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// indexOf returns the position of a task id. Caller must hold mu.
func (m *Manager) indexOf(id string) int {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// persistAndUnlock captures the durable snapshot inside the critical section
// of the mutation it belongs to, releases mu, and writes the snapshot
// best-effort. Writes are serialized and stale snapshots dropped, so
// interleaved completions cannot overwrite a newer store state with an older
// one. Caller must hold mu.
func (m *Manager) persistAndUnlock() {
	if m.store == nil {
		m.mu.Unlock()
		return
	}
	m.persistSeq++
	seq := m.persistSeq
	snap := make([]models.Task, len(m.tasks))
	copy(snap, m.tasks)
	m.mu.Unlock()

	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	if seq <= m.persistedSeq {
		// A newer snapshot already reached the store.
		return
	}
	m.persistedSeq = seq

	if err := m.store.SaveTasks(context.Background(), snap); err != nil {
		m.logger.Warn("failed to persist tasks", "error", err)
	}
}

func (m *Manager) notify() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
