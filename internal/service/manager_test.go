package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuchen-w/fangnote/internal/extract"
	"github.com/yuchen-w/fangnote/internal/models"
	"github.com/yuchen-w/fangnote/internal/store"
)

// fakeExtractor returns whatever its fn produces and records every call.
type fakeExtractor struct {
	mu    sync.Mutex
	calls []extract.Input
	fn    func(in extract.Input) ([]models.Listing, error)
}

func (f *fakeExtractor) Extract(_ context.Context, in extract.Input) ([]models.Listing, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	if f.fn == nil {
		return nil, errors.New("no extractor behaviour configured")
	}
	return f.fn(in)
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeExtractor) lastCall(t *testing.T) extract.Input {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func waitAll(t *testing.T, mgr *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, mgr.Wait(ctx), "extractions did not settle in time")
}

func listing(community string) models.Listing {
	return models.Listing{
		CommunityName: community,
		Layout:        "2室1厅",
		Price:         models.NumericPrice(5000),
		RentOrSale:    models.Rent,
	}
}

func TestSubmitCreatesProcessingTaskAtHead(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		close(started)
		<-release
		return []models.Listing{listing("天通苑")}, nil
	}}
	mgr := NewManager(ext, nil, testLogger())

	id, err := mgr.Submit("天通苑两居五千", nil, nil)
	require.NoError(t, err)

	<-started
	tasks := mgr.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
	assert.Equal(t, models.StatusProcessing, tasks[0].Status)
	assert.Equal(t, "天通苑两居五千", tasks[0].Description)

	close(release)
	waitAll(t, mgr)
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	ext := &fakeExtractor{}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("", nil, nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, mgr.Snapshot())
	assert.Zero(t, ext.callCount())
}

func TestExtractionFansOutOneTaskPerListing(t *testing.T) {
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return []models.Listing{listing("天通苑"), listing("回龙观"), listing("望京")}, nil
	}}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("三套房源", nil, nil)
	require.NoError(t, err)
	waitAll(t, mgr)

	tasks := mgr.Snapshot()
	require.Len(t, tasks, 3)
	// Response order preserved, all at the head.
	assert.Equal(t, "天通苑", tasks[0].Result.Listing.CommunityName)
	assert.Equal(t, "回龙观", tasks[1].Result.Listing.CommunityName)
	assert.Equal(t, "望京", tasks[2].Result.Listing.CommunityName)
	for _, task := range tasks {
		assert.Equal(t, models.StatusSuccess, task.Status)
		assert.False(t, task.IsPublished())
		assert.False(t, task.IsTemplate())
		assert.Equal(t, task.Result.Listing.Summary(), task.Description)
	}
}

func TestExtractionWithZeroListingsFails(t *testing.T) {
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return []models.Listing{}, nil
	}}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("今天天气不错", nil, nil)
	require.NoError(t, err)
	waitAll(t, mgr)

	tasks := mgr.Snapshot()
	require.Len(t, tasks, 1)
	require.Equal(t, models.StatusFailed, tasks[0].Status)
	assert.Equal(t, NoListingsMessage, tasks[0].Fail.Message)
	assert.Equal(t, "今天天气不错", tasks[0].Fail.SourceText)
}

func TestExtractionErrorRetainsSourceText(t *testing.T) {
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return nil, errors.New("service unavailable")
	}}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("天通苑两居", nil, nil)
	require.NoError(t, err)
	waitAll(t, mgr)

	tasks := mgr.Snapshot()
	require.Len(t, tasks, 1)
	require.Equal(t, models.StatusFailed, tasks[0].Status)
	assert.Equal(t, "service unavailable", tasks[0].Fail.Message)
	assert.Equal(t, "天通苑两居", tasks[0].Fail.SourceText)
	assert.Equal(t, "天通苑两居", tasks[0].Description)
}

func TestFailedTaskDescriptionFallbacks(t *testing.T) {
	img := &extract.Media{MIME: "image/png", Data: []byte{1}}
	aud := &extract.Media{MIME: "audio/mpeg", Data: []byte{2}}

	tests := []struct {
		name  string
		text  string
		image *extract.Media
		audio *extract.Media
		want  string
	}{
		{"audio wins over image", "", img, aud, models.DescAudioInput},
		{"image alone", "", img, nil, models.DescImageInput},
		{"text wins", "天通苑", img, aud, "天通苑"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
				return nil, errors.New("boom")
			}}
			mgr := NewManager(ext, nil, testLogger())

			_, err := mgr.Submit(tt.text, tt.image, tt.audio)
			require.NoError(t, err)
			waitAll(t, mgr)

			tasks := mgr.Snapshot()
			require.Len(t, tasks, 1)
			assert.Equal(t, tt.want, tasks[0].Description)
		})
	}
}

func TestRetryReplacesFailedTask(t *testing.T) {
	fail := true
	var mu sync.Mutex
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, errors.New("timeout")
		}
		return []models.Listing{listing("天通苑")}, nil
	}}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("天通苑两居", nil, nil)
	require.NoError(t, err)
	waitAll(t, mgr)

	failedID := mgr.Snapshot()[0].ID

	mu.Lock()
	fail = false
	mu.Unlock()

	newID, err := mgr.Retry(failedID)
	require.NoError(t, err)
	assert.NotEqual(t, failedID, newID, "retry must create a new task")
	waitAll(t, mgr)

	tasks := mgr.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.StatusSuccess, tasks[0].Status)
	_, found := mgr.Task(failedID)
	assert.False(t, found, "failed task must be removed")
	assert.Equal(t, "天通苑两居", ext.lastCall(t).Text)
}

func TestRetryCarriesSessionMedia(t *testing.T) {
	img := &extract.Media{MIME: "image/jpeg", Data: []byte{0xff, 0xd8}}
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return nil, errors.New("boom")
	}}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("", img, nil)
	require.NoError(t, err)
	waitAll(t, mgr)

	failedID := mgr.Snapshot()[0].ID
	// Media follows the failure to its new id within the session.
	image, _ := mgr.MediaFor(failedID)
	require.NotNil(t, image)

	_, err = mgr.Retry(failedID)
	require.NoError(t, err)
	waitAll(t, mgr)

	in := ext.lastCall(t)
	require.NotNil(t, in.Image)
	assert.Equal(t, img.Data, in.Image.Data)
}

func TestRetryWithoutAnyInputIsRejected(t *testing.T) {
	// Simulates a reload: the persisted failure has no text and its media
	// side table is gone.
	ext := &fakeExtractor{}
	mgr := NewManager(ext, nil, testLogger())

	orphan := models.NewFailedTask(models.DescImageInput, "", "boom")
	mgr.mu.Lock()
	mgr.tasks = []models.Task{orphan}
	mgr.mu.Unlock()

	_, err := mgr.Retry(orphan.ID)
	require.ErrorIs(t, err, ErrNotRetryable)

	// The failed task stays in the log untouched.
	got, found := mgr.Task(orphan.ID)
	require.True(t, found)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Zero(t, ext.callCount())
}

func TestRetryRejectsNonFailedTasks(t *testing.T) {
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return []models.Listing{listing("天通苑")}, nil
	}}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("天通苑", nil, nil)
	require.NoError(t, err)
	waitAll(t, mgr)

	successID := mgr.Snapshot()[0].ID
	_, err = mgr.Retry(successID)
	assert.ErrorIs(t, err, ErrNotRetryable)

	_, err = mgr.Retry("no-such-id")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestEditAndSave(t *testing.T) {
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return []models.Listing{listing("天通苑")}, nil
	}}

	tests := []struct {
		name       string
		asTemplate bool
	}{
		{"publish", false},
		{"save as template", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewManager(ext, nil, testLogger())
			_, err := mgr.Submit("天通苑", nil, nil)
			require.NoError(t, err)
			waitAll(t, mgr)

			id := mgr.Snapshot()[0].ID
			edited := listing("回龙观")
			edited.Price = models.NumericPrice(6500)

			require.NoError(t, mgr.EditAndSave(id, edited, tt.asTemplate))

			task, found := mgr.Task(id)
			require.True(t, found)
			assert.Equal(t, models.StatusSuccess, task.Status)
			assert.Equal(t, "回龙观", task.Result.Listing.CommunityName)
			assert.Equal(t, !tt.asTemplate, task.IsPublished())
			assert.Equal(t, tt.asTemplate, task.IsTemplate())
			assert.Equal(t, "回龙观 2室1厅 6500元", task.Description)
		})
	}
}

func TestEditAndSaveRejectsNonSuccessTasks(t *testing.T) {
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return nil, errors.New("boom")
	}}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("x", nil, nil)
	require.NoError(t, err)
	waitAll(t, mgr)

	failedID := mgr.Snapshot()[0].ID
	err = mgr.EditAndSave(failedID, listing("天通苑"), false)
	assert.ErrorIs(t, err, ErrNotEditable)

	err = mgr.EditAndSave("no-such-id", listing("天通苑"), false)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestInterleavedExtractionsResolveByID(t *testing.T) {
	// Two submissions in flight at once; the first to be submitted finishes
	// last. Completions must land on their own task regardless of order.
	firstRelease := make(chan struct{})
	ext := &fakeExtractor{fn: func(in extract.Input) ([]models.Listing, error) {
		if in.Text == "first" {
			<-firstRelease
			return nil, errors.New("first failed")
		}
		return []models.Listing{listing("回龙观")}, nil
	}}
	mgr := NewManager(ext, nil, testLogger())

	_, err := mgr.Submit("first", nil, nil)
	require.NoError(t, err)
	_, err = mgr.Submit("second", nil, nil)
	require.NoError(t, err)

	// Let the second finish while the first is still running.
	require.Eventually(t, func() bool {
		for _, task := range mgr.Snapshot() {
			if task.Status == models.StatusSuccess {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	close(firstRelease)
	waitAll(t, mgr)

	tasks := mgr.Snapshot()
	require.Len(t, tasks, 2)
	// The failure resolved last, so it sits at the head.
	assert.Equal(t, models.StatusFailed, tasks[0].Status)
	assert.Equal(t, "first", tasks[0].Fail.SourceText)
	assert.Equal(t, models.StatusSuccess, tasks[1].Status)
	assert.Equal(t, "回龙观", tasks[1].Result.Listing.CommunityName)
}

func TestSubscribeSignalsOnChange(t *testing.T) {
	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return []models.Listing{listing("天通苑")}, nil
	}}
	mgr := NewManager(ext, nil, testLogger())
	ch := mgr.Subscribe()

	_, err := mgr.Submit("天通苑", nil, nil)
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after submit")
	}
	waitAll(t, mgr)
}

// gatedKV delegates to an inner KV and holds the first matching task-snapshot
// write open until released.
type gatedKV struct {
	inner   store.KV
	match   func(value []byte) bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return g.inner.Get(ctx, key)
}

func (g *gatedKV) Put(ctx context.Context, key string, value []byte) error {
	if key == store.KeyTasks && g.match(value) {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.inner.Put(ctx, key, value)
}

func (g *gatedKV) Close(ctx context.Context) error { return g.inner.Close(ctx) }

func TestInterleavedCompletionsPersistInMutationOrder(t *testing.T) {
	// One completion's snapshot write stalls in the backend while a second
	// completion lands. The stalled, older snapshot must not overwrite the
	// newer one: after a reload both listings exist.
	fileKV, err := store.NewFileKV(t.TempDir())
	require.NoError(t, err)
	gate := &gatedKV{
		inner: fileKV,
		match: func(value []byte) bool {
			return bytes.Contains(value, []byte("小区A")) && !bytes.Contains(value, []byte("小区B"))
		},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	taskStore := store.New(gate, testLogger(), nil)

	releaseSlow := make(chan struct{})
	ext := &fakeExtractor{fn: func(in extract.Input) ([]models.Listing, error) {
		if in.Text == "slow" {
			<-releaseSlow
			return []models.Listing{listing("小区B")}, nil
		}
		return []models.Listing{listing("小区A")}, nil
	}}
	mgr := NewManager(ext, taskStore, testLogger())

	_, err = mgr.Submit("slow", nil, nil)
	require.NoError(t, err)
	_, err = mgr.Submit("fast", nil, nil)
	require.NoError(t, err)

	// The fast completion is now stalled writing its snapshot (小区A only).
	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first snapshot write never reached the store")
	}

	// Let the slow extraction complete while that write is still in flight.
	close(releaseSlow)
	require.Eventually(t, func() bool {
		n := 0
		for _, task := range mgr.Snapshot() {
			if task.Status == models.StatusSuccess {
				n++
			}
		}
		return n == 2
	}, 5*time.Second, 10*time.Millisecond)

	close(gate.release)
	waitAll(t, mgr)

	reloaded := store.New(fileKV, testLogger(), nil).LoadTasks(context.Background())
	require.Len(t, reloaded, 2, "stalled older snapshot must not overwrite the newer one")
	communities := []string{
		reloaded[0].Result.Listing.CommunityName,
		reloaded[1].Result.Listing.CommunityName,
	}
	assert.ElementsMatch(t, []string{"小区A", "小区B"}, communities)
}

func TestPersistAndReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	kv, err := store.NewFileKV(dir)
	require.NoError(t, err)
	taskStore := store.New(kv, testLogger(), nil)

	ext := &fakeExtractor{fn: func(extract.Input) ([]models.Listing, error) {
		return []models.Listing{listing("天通苑")}, nil
	}}
	mgr := NewManager(ext, taskStore, testLogger())

	_, err = mgr.Submit("天通苑", nil, nil)
	require.NoError(t, err)
	waitAll(t, mgr)

	id := mgr.Snapshot()[0].ID
	require.NoError(t, mgr.EditAndSave(id, listing("天通苑"), false))

	// A second manager over the same store sees the saved log.
	reloaded := NewManager(ext, taskStore, testLogger())
	reloaded.LoadPersisted(context.Background())

	tasks := reloaded.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
	assert.True(t, tasks[0].IsPublished())
	assert.Equal(t, "天通苑 2室1厅 5000元", tasks[0].Description)
}
