package driver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaceferry/spaceferry/internal/cma"
	"github.com/spaceferry/spaceferry/internal/contentgraph"
	"github.com/spaceferry/spaceferry/internal/partition"
	"github.com/spaceferry/spaceferry/internal/ratelimit"
	"github.com/spaceferry/spaceferry/internal/state"
)

// fakeBackend is a minimal management-API double: canned happy-path
// responses, per-path call counting, and switchable failure modes.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	failContentTypes bool
	failEntryIDs     map[string]bool
	neverProcess     bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: map[string]int{}, failEntryIDs: map[string]bool{}}
}

func (f *fakeBackend) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeBackend) handler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	key := r.Method + " " + path
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()

	write := func(status int, body string) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}

	switch {
	case r.Method == http.MethodGet && path == "/spaces/space1":
		write(200, `{"sys": {"id": "space1"}}`)

	case strings.HasSuffix(path, "/locales"):
		write(200, `{"total": 0, "items": []}`)

	case strings.Contains(path, "/tags/"):
		write(409, `{"message": "tag exists"}`)

	case strings.HasSuffix(path, "/editor_interface"):
		write(200, `{"sys": {"id": "default", "version": 1}}`)

	case strings.Contains(path, "/content_types/") && strings.HasSuffix(path, "/published"):
		write(200, `{}`)

	case strings.Contains(path, "/content_types/"):
		if f.failContentTypes {
			write(500, `{"message": "schema rejected"}`)
			return
		}
		write(200, `{"sys": {"id": "article", "version": 1}, "name": "Article"}`)

	case strings.Contains(path, "/assets/") && strings.Contains(path, "/files/"):
		write(200, `{}`) // process trigger

	case strings.Contains(path, "/assets/") && strings.HasSuffix(path, "/published"):
		write(200, `{}`)

	case strings.Contains(path, "/assets/"):
		url := `"//media.example.com/space1/a1/file.png"`
		if f.neverProcess && r.Method == http.MethodGet {
			url = `""`
		}
		write(200, `{"sys": {"id": "a1", "version": 2},
			"fields": {"file": {"en-US": {"url": `+url+`, "fileName": "file.png"}}}}`)

	case strings.Contains(path, "/entries/") && strings.HasSuffix(path, "/published"):
		write(200, `{}`)

	case strings.Contains(path, "/entries/"):
		id := path[strings.LastIndex(path, "/")+1:]
		if f.failEntryIDs[id] {
			write(422, `{"message": "missing required field"}`)
			return
		}
		write(200, `{"sys": {"id": "`+id+`", "version": 1}}`)

	default:
		write(404, `{"message": "unhandled path `+path+`"}`)
	}
}

// writeBatchFixture lays a batch's content document on disk without going
// through the partitioner.
func writeBatchFixture(t *testing.T, outputDir string, number int, content *contentgraph.Export) {
	t.Helper()
	dir := partition.BatchDir(outputDir, number)
	require.NoError(t, os.MkdirAll(dir, 0750))
	require.NoError(t, contentgraph.WriteExport(filepath.Join(dir, partition.ContentFileName), content))
}

func modelBatch() *contentgraph.Export {
	return &contentgraph.Export{
		ContentTypes: []contentgraph.ContentType{{
			Sys: contentgraph.Sys{ID: "article"}, Name: "Article",
		}},
		Locales: []contentgraph.Locale{{
			Sys: contentgraph.Sys{ID: "l1"}, Name: "English", Code: "en-US", Default: true,
		}},
		Tags: []contentgraph.Tag{{Sys: contentgraph.Sys{ID: "t1"}, Name: "featured"}},
		Assets: []contentgraph.Asset{{
			Sys: contentgraph.Sys{ID: "a1", Version: 1},
			Fields: contentgraph.AssetFields{
				File: map[string]*contentgraph.AssetFile{
					"en-US": {Upload: "https://source/space/a1/file.png", FileName: "file.png"},
				},
			},
		}},
		Entries: []contentgraph.Entry{
			{Sys: contentgraph.Sys{ID: "e1", Version: 1,
				ContentType: contentgraph.NewLink(contentgraph.KindContentType, "article")}},
			{Sys: contentgraph.Sys{ID: "bad", Version: 1,
				ContentType: contentgraph.NewLink(contentgraph.KindContentType, "article")}},
		},
	}
}

func entryOnlyBatch(ids ...string) *contentgraph.Export {
	export := &contentgraph.Export{}
	for _, id := range ids {
		export.Entries = append(export.Entries, contentgraph.Entry{
			Sys: contentgraph.Sys{ID: id, Version: 1,
				ContentType: contentgraph.NewLink(contentgraph.KindContentType, "article")},
		})
	}
	return export
}

type testRun struct {
	driver   *Driver
	backend  *fakeBackend
	store    *state.Store
	manifest *partition.Manifest
	slept    []time.Duration
}

func newTestRun(t *testing.T, opts Options, totalBatches int) *testRun {
	t.Helper()
	backend := newFakeBackend()
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	t.Cleanup(server.Close)

	client := cma.NewClient("space1", "master", "tok").WithBaseURL(server.URL)
	limiter := ratelimit.New(ratelimit.Options{Enabled: false})
	store := state.NewStore(filepath.Join(opts.OutputDir, state.DefaultFileName))

	run := &testRun{
		backend:  backend,
		store:    store,
		manifest: &partition.Manifest{TotalBatches: totalBatches, BatchSize: 400},
	}
	run.driver = New(client, limiter, store, opts)
	run.driver.sleep = func(d time.Duration) { run.slept = append(run.slept, d) }
	return run
}

func TestRunImportsBatchesWithItemIsolation(t *testing.T) {
	outputDir := t.TempDir()
	writeBatchFixture(t, outputDir, 1, modelBatch())
	writeBatchFixture(t, outputDir, 2, entryOnlyBatch("e2", "e3"))

	run := newTestRun(t, Options{
		OutputDir:    outputDir,
		UploadAssets: true,
		MaxRetries:   1,
		RetryDelay:   time.Second,
	}, 2)
	run.backend.failEntryIDs["bad"] = true

	err := run.driver.Run(context.Background(), run.manifest, 1)
	require.NoError(t, err, "a failing entry is item-level, not batch-level")

	st, err := run.store.Load()
	require.NoError(t, err)
	assert.True(t, st.IsCompleted("01"))
	assert.True(t, st.IsCompleted("02"))
	assert.Empty(t, st.FailedBatches)
	assert.Empty(t, st.CurrentBatch)

	// The failed entry was recorded in the batch-scoped error log.
	logData, err := os.ReadFile(filepath.Join(partition.BatchDir(outputDir, 1), "errors.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "entry bad")

	// Asset pipeline ran: create, process, poll, publish.
	env := "/spaces/space1/environments/master"
	assert.Equal(t, 1, run.backend.count("PUT "+env+"/assets/a1"))
	assert.Equal(t, 1, run.backend.count("PUT "+env+"/assets/a1/files/en-US/process"))
	assert.GreaterOrEqual(t, run.backend.count("GET "+env+"/assets/a1"), 1)
	assert.Equal(t, 1, run.backend.count("PUT "+env+"/assets/a1/published"))

	// Conflicting tag was tolerated.
	assert.Equal(t, 1, run.backend.count("PUT "+env+"/tags/t1"))
}

func TestContentTypeFailureExhaustsRetriesThenProceeds(t *testing.T) {
	outputDir := t.TempDir()
	writeBatchFixture(t, outputDir, 1, modelBatch())
	writeBatchFixture(t, outputDir, 2, entryOnlyBatch("e2"))

	retryDelay := 2 * time.Second
	run := newTestRun(t, Options{
		OutputDir:  outputDir,
		MaxRetries: 3,
		RetryDelay: retryDelay,
	}, 2)
	run.backend.failContentTypes = true

	err := run.driver.Run(context.Background(), run.manifest, 1)
	require.Error(t, err, "run reports failure when a batch exhausted retries")
	assert.Contains(t, err.Error(), "1 of 2 batches failed")

	// 1 initial + 3 retries, then the run moved on.
	env := "/spaces/space1/environments/master"
	assert.Equal(t, 4, run.backend.count("PUT "+env+"/content_types/article"))

	st, err := run.store.Load()
	require.NoError(t, err)
	require.Len(t, st.FailedBatches, 1)
	assert.Equal(t, "01", st.FailedBatches[0].Batch)
	assert.Contains(t, st.FailedBatches[0].Error, "content type article")
	assert.False(t, st.FailedBatches[0].Timestamp.IsZero())
	assert.True(t, st.IsCompleted("02"), "later batches still run after one fails")

	// Backoff grew linearly with the attempt number.
	assert.Equal(t, []time.Duration{retryDelay, 2 * retryDelay, 3 * retryDelay}, run.slept)
}

func TestRunSkipsCompletedBatches(t *testing.T) {
	outputDir := t.TempDir()
	// Batch 1 content is deliberately absent: skipping must not load it.
	writeBatchFixture(t, outputDir, 2, entryOnlyBatch("e2"))

	run := newTestRun(t, Options{OutputDir: outputDir, MaxRetries: 0}, 2)

	st, err := run.store.Load()
	require.NoError(t, err)
	st.MarkCompleted("01")
	require.NoError(t, run.store.Save(st))

	require.NoError(t, run.driver.Run(context.Background(), run.manifest, 1))

	reloaded, err := run.store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "02"}, reloaded.CompletedBatches)
}

func TestAssetPublishSkippedWhenProcessingGivesUp(t *testing.T) {
	outputDir := t.TempDir()
	batch := modelBatch()
	batch.Entries = nil
	writeBatchFixture(t, outputDir, 1, batch)

	run := newTestRun(t, Options{
		OutputDir:       outputDir,
		UploadAssets:    true,
		MaxRetries:      0,
		MaxPollAttempts: 2,
		PollInterval:    time.Second,
	}, 1)
	run.backend.neverProcess = true

	require.NoError(t, run.driver.Run(context.Background(), run.manifest, 1))

	env := "/spaces/space1/environments/master"
	assert.Equal(t, 2, run.backend.count("GET "+env+"/assets/a1"), "polled exactly the attempt budget")
	assert.Zero(t, run.backend.count("PUT "+env+"/assets/a1/published"),
		"publish must be skipped when processing never finished")

	st, err := run.store.Load()
	require.NoError(t, err)
	assert.True(t, st.IsCompleted("01"), "a timed-out asset is not a batch failure")
}

func TestRunFailsFastOnMissingBatchContent(t *testing.T) {
	outputDir := t.TempDir()
	run := newTestRun(t, Options{OutputDir: outputDir}, 1)

	err := run.driver.Run(context.Background(), run.manifest, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run the split step first")
}
