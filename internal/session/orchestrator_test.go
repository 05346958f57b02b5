package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfetch/vidfetch/internal/download"
	"github.com/vidfetch/vidfetch/internal/events"
	"github.com/vidfetch/vidfetch/internal/model"
)

type fakeBackend struct {
	catalog   *model.FormatCatalog
	submitErr error
	sessionID string
	selectErr error

	submitCalls atomic.Int32
	selectCalls atomic.Int32
}

func (b *fakeBackend) SubmitLink(_ context.Context, link string) (*model.FormatCatalog, error) {
	b.submitCalls.Add(1)
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	catalog := *b.catalog
	catalog.Link = link
	return &catalog, nil
}

func (b *fakeBackend) SelectFormat(_ context.Context, _ int, _ string) (string, error) {
	b.selectCalls.Add(1)
	if b.selectErr != nil {
		return "", b.selectErr
	}
	return b.sessionID, nil
}

type fakeStream struct {
	ch     chan events.Event
	once   sync.Once
	closed chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan events.Event, 16), closed: make(chan struct{})}
}

func (s *fakeStream) Events() <-chan events.Event { return s.ch }

func (s *fakeStream) Close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

func (s *fakeStream) emit(ev events.Event) { s.ch <- ev }

type fakeSource struct {
	mu      sync.Mutex
	streams []*fakeStream
	openErr error
}

func (f *fakeSource) Open(_ context.Context, _ string) (EventStream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	stream := newFakeStream()
	f.mu.Lock()
	f.streams = append(f.streams, stream)
	f.mu.Unlock()
	return stream, nil
}

func (f *fakeSource) stream(i int) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

type fakeFetcher struct {
	calls    atomic.Int32
	fetchErr error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ model.ArtifactRef, _ model.VideoMetadata) (download.Result, error) {
	f.calls.Add(1)
	if f.fetchErr != nil {
		return download.Result{}, f.fetchErr
	}
	return download.Result{Path: "/downloads/Test Video.mp4", Size: 5 << 20}, nil
}

func testCatalog() *model.FormatCatalog {
	return &model.FormatCatalog{
		Formats: []model.FormatOption{
			{Label: "720p", Itag: 22, MimeType: "video/mp4"},
			{Label: "1080p", Itag: 137, MimeType: "video/mp4"},
			{Label: "audio", Itag: 140, MimeType: "audio/mp4"},
		},
		Meta: model.VideoMetadata{Title: "Test Video", DurationSec: 90},
	}
}

func newTestOrchestrator(backend *fakeBackend, source *fakeSource, fetcher *fakeFetcher) (*Orchestrator, chan Snapshot) {
	orch := NewOrchestrator(backend, source, fetcher)
	snaps := make(chan Snapshot, 64)
	orch.SetUpdateCallback(func(s Snapshot) { snaps <- s })
	return orch, snaps
}

func waitFor(t *testing.T, snaps <-chan Snapshot, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-snaps:
			if cond(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestOrchestrator_HappyPath(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	orch, snaps := newTestOrchestrator(backend, source, fetcher)

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.Phase == model.PhaseLinkSubmitted })
	require.NotNil(t, snap.Catalog)
	assert.Len(t, snap.Catalog.Formats, 3)
	assert.Equal(t, "Test Video", snap.Catalog.Meta.Title)

	require.NoError(t, orch.ChooseFormat(context.Background(), 0))
	snap = waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-1" })
	assert.Equal(t, 0, snap.ChosenIndex)
	assert.Equal(t, -1, snap.Progress)
	// The push channel is open, so the session is processing even before the
	// first event arrives.
	assert.Equal(t, model.PhaseProcessing, snap.Phase)

	stream := source.stream(0)
	stream.emit(events.Event{Kind: events.KindProgress, Percentage: 10})
	snap = waitFor(t, snaps, func(s Snapshot) bool { return s.Progress == 10 })
	assert.Equal(t, model.PhaseProcessing, snap.Phase)

	stream.emit(events.Event{Kind: events.KindProcessing, Processing: true})
	snap = waitFor(t, snaps, func(s Snapshot) bool { return s.ProcessingKnown })
	assert.True(t, snap.Processing)

	stream.emit(events.Event{Kind: events.KindReady, Artifact: model.ArtifactRef{URL: "http://cdn.example.com/v.mp4", Filesize: 5 << 20}})
	snap = waitFor(t, snaps, func(s Snapshot) bool { return s.DownloadPath != "" })
	assert.Equal(t, model.PhaseTerminal, snap.Phase)
	assert.Equal(t, "/downloads/Test Video.mp4", snap.DownloadPath)
	assert.Equal(t, int64(5<<20), snap.DownloadSize)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestOrchestrator_DuplicateTerminalEventDownloadsOnce(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	orch, snaps := newTestOrchestrator(backend, source, fetcher)

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	require.NoError(t, orch.ChooseFormat(context.Background(), 1))
	waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-1" })

	stream := source.stream(0)
	ready := events.Event{Kind: events.KindReady, Artifact: model.ArtifactRef{URL: "http://cdn.example.com/v.mp4"}}
	stream.emit(ready)
	stream.emit(ready)
	stream.Close()

	waitFor(t, snaps, func(s Snapshot) bool { return s.DownloadPath != "" })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestOrchestrator_PostTerminalEventsDoNotRegressPhase(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	orch, snaps := newTestOrchestrator(backend, source, fetcher)

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	require.NoError(t, orch.ChooseFormat(context.Background(), 0))
	waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-1" })

	// The backend finishes a session with a trailing status event:
	// processing(true) → progress(100) → ready → processing(false).
	stream := source.stream(0)
	stream.emit(events.Event{Kind: events.KindProcessing, Processing: true})
	stream.emit(events.Event{Kind: events.KindProgress, Percentage: 100})
	stream.emit(events.Event{Kind: events.KindReady, Artifact: model.ArtifactRef{URL: "http://cdn.example.com/v.mp4"}})
	stream.emit(events.Event{Kind: events.KindProcessing, Processing: false})
	stream.emit(events.Event{Kind: events.KindProgress, Percentage: 100})
	stream.Close()

	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.DownloadPath != "" })
	assert.Equal(t, model.PhaseTerminal, snap.Phase)
	require.NotNil(t, snap.Outcome)
	assert.False(t, snap.Processing)

	// Nothing after the terminal event may move the phase back.
	time.Sleep(50 * time.Millisecond)
	final := orch.Snapshot()
	assert.Equal(t, model.PhaseTerminal, final.Phase)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestOrchestrator_FailedArtifactSkipsDownload(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	orch, snaps := newTestOrchestrator(backend, source, fetcher)

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	require.NoError(t, orch.ChooseFormat(context.Background(), 0))
	waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-1" })

	source.stream(0).emit(events.Event{Kind: events.KindReady, Artifact: model.ArtifactRef{URL: "error", ErrorMessage: "video is restricted"}})
	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.Phase == model.PhaseTerminal })
	require.NotNil(t, snap.Outcome)
	assert.True(t, snap.Outcome.Failed())
	assert.Equal(t, "video is restricted", snap.Outcome.ErrorMessage)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestOrchestrator_InvalidLinkSkipsNetwork(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog()}
	orch, _ := newTestOrchestrator(backend, &fakeSource{}, &fakeFetcher{})

	assert.Error(t, orch.SubmitLink(context.Background(), "not a link"))
	assert.Error(t, orch.SubmitLink(context.Background(), ""))
	assert.Equal(t, int32(0), backend.submitCalls.Load())
}

func TestOrchestrator_ChooseFormatRequiresCatalog(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	orch, snaps := newTestOrchestrator(backend, &fakeSource{}, &fakeFetcher{})

	assert.Error(t, orch.ChooseFormat(context.Background(), 0))

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	waitFor(t, snaps, func(s Snapshot) bool { return s.Phase == model.PhaseLinkSubmitted })
	assert.Error(t, orch.ChooseFormat(context.Background(), 99))
	assert.Equal(t, int32(0), backend.selectCalls.Load())
}

func TestOrchestrator_RechoosingSupersedesOldSession(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	orch, snaps := newTestOrchestrator(backend, source, fetcher)

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	require.NoError(t, orch.ChooseFormat(context.Background(), 0))
	waitFor(t, snaps, func(s Snapshot) bool { return s.ChosenIndex == 0 && s.SessionID != "" })

	first := source.stream(0)
	first.emit(events.Event{Kind: events.KindProgress, Percentage: 40})
	waitFor(t, snaps, func(s Snapshot) bool { return s.Progress == 40 })

	backend.sessionID = "sess-2"
	require.NoError(t, orch.ChooseFormat(context.Background(), 1))
	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-2" })
	assert.Equal(t, 1, snap.ChosenIndex)
	assert.Equal(t, -1, snap.Progress)

	// The abandoned session's channel must be released.
	select {
	case <-first.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("first event channel was not closed on supersession")
	}
}

func TestOrchestrator_NewLinkSupersedesRunningSession(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	orch, snaps := newTestOrchestrator(backend, source, fetcher)

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	require.NoError(t, orch.ChooseFormat(context.Background(), 0))
	waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-1" })

	first := source.stream(0)
	first.emit(events.Event{Kind: events.KindProgress, Percentage: 70})
	waitFor(t, snaps, func(s Snapshot) bool { return s.Progress == 70 })

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=def"))
	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.Phase == model.PhaseLinkSubmitted })
	assert.Equal(t, "https://example.com/watch?v=def", snap.Link)
	assert.Empty(t, snap.SessionID)
	assert.Equal(t, -1, snap.Progress)

	select {
	case <-first.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("event channel was not closed when a new link superseded the session")
	}
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestOrchestrator_ProgressIsMonotonic(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	orch, snaps := newTestOrchestrator(backend, source, &fakeFetcher{})

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	require.NoError(t, orch.ChooseFormat(context.Background(), 0))
	waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-1" })

	stream := source.stream(0)
	stream.emit(events.Event{Kind: events.KindProgress, Percentage: 50})
	waitFor(t, snaps, func(s Snapshot) bool { return s.Progress == 50 })

	stream.emit(events.Event{Kind: events.KindProgress, Percentage: 30})
	stream.emit(events.Event{Kind: events.KindProgress, Percentage: 60})
	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.Progress == 60 })
	assert.Equal(t, model.PhaseProcessing, snap.Phase)
	assert.Equal(t, int32(1), backend.selectCalls.Load())
}

func TestOrchestrator_SelectFormatFailureReturnsToCatalog(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), selectErr: errors.New("backend unavailable")}
	orch, snaps := newTestOrchestrator(backend, &fakeSource{}, &fakeFetcher{})

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	waitFor(t, snaps, func(s Snapshot) bool { return s.Phase == model.PhaseLinkSubmitted })

	assert.Error(t, orch.ChooseFormat(context.Background(), 0))
	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.Phase == model.PhaseLinkSubmitted && s.SessionID == "" })
	assert.NotNil(t, snap.Catalog)
}

func TestOrchestrator_DownloadFailureIsRecorded(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	fetcher := &fakeFetcher{fetchErr: errors.New("artifact not available: status 404")}
	orch, snaps := newTestOrchestrator(backend, source, fetcher)

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	require.NoError(t, orch.ChooseFormat(context.Background(), 0))
	waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-1" })

	source.stream(0).emit(events.Event{Kind: events.KindReady, Artifact: model.ArtifactRef{URL: "http://cdn.example.com/v.mp4"}})
	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.DownloadErr != "" })
	assert.Equal(t, model.PhaseTerminal, snap.Phase)
	assert.Contains(t, snap.DownloadErr, "404")
}

func TestOrchestrator_Reset(t *testing.T) {
	backend := &fakeBackend{catalog: testCatalog(), sessionID: "sess-1"}
	source := &fakeSource{}
	orch, snaps := newTestOrchestrator(backend, source, &fakeFetcher{})

	require.NoError(t, orch.SubmitLink(context.Background(), "https://example.com/watch?v=abc"))
	require.NoError(t, orch.ChooseFormat(context.Background(), 0))
	waitFor(t, snaps, func(s Snapshot) bool { return s.SessionID == "sess-1" })

	orch.Reset()
	snap := waitFor(t, snaps, func(s Snapshot) bool { return s.Phase == model.PhaseIdle })
	assert.Nil(t, snap.Catalog)
	assert.Empty(t, snap.SessionID)

	first := source.stream(0)
	select {
	case <-first.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("event channel was not closed on reset")
	}
}
