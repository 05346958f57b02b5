package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vidfetch/vidfetch/internal/events"
	"github.com/vidfetch/vidfetch/internal/model"
)

// Snapshot is an immutable view of the orchestrator state, published to the
// UI through the update callback after every change.
type Snapshot struct {
	Phase           model.Phase
	Link            string
	Catalog         *model.FormatCatalog
	ChosenIndex     int
	SessionID       string
	Progress        int
	ProcessingKnown bool
	Processing      bool
	Outcome         *model.ArtifactRef
	DownloadPath    string
	DownloadSize    int64
	DownloadErr     string
}

// Orchestrator owns the full link-to-download lifecycle behind one mutex:
// catalog retrieval, format selection, the push channel for the active
// session, and the one-shot local download once the artifact is ready.
//
// Every state-changing call supersedes the previous session: a fresh
// generation token is minted and responses carrying a stale token are
// discarded, so a user re-choosing mid-flight can never see events or
// downloads from the abandoned attempt.
type Orchestrator struct {
	mu      sync.Mutex
	backend Backend
	source  EventSource
	fetcher Fetcher

	onUpdate func(Snapshot)

	generation string
	phase      model.Phase
	link       string
	catalog    *model.FormatCatalog
	sess       *model.Session
	stream     EventStream

	downloadPath string
	downloadSize int64
	downloadErr  string
}

// NewOrchestrator creates an orchestrator in the idle phase.
func NewOrchestrator(backend Backend, source EventSource, fetcher Fetcher) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		source:  source,
		fetcher: fetcher,
		phase:   model.PhaseIdle,
	}
}

// SetUpdateCallback registers the function invoked with a fresh Snapshot
// after every state change. The callback runs outside the orchestrator lock.
func (o *Orchestrator) SetUpdateCallback(callback func(Snapshot)) {
	o.mu.Lock()
	o.onUpdate = callback
	o.mu.Unlock()
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:       o.phase,
		Link:        o.link,
		Catalog:     o.catalog,
		ChosenIndex: -1,
		Progress:    -1,

		DownloadPath: o.downloadPath,
		DownloadSize: o.downloadSize,
		DownloadErr:  o.downloadErr,
	}
	if o.sess != nil {
		snap.ChosenIndex = o.sess.ChosenIndex
		snap.SessionID = o.sess.ID
		snap.Progress = o.sess.Progress
		snap.ProcessingKnown = o.sess.ProcessingKnown
		snap.Processing = o.sess.Processing
		snap.Outcome = o.sess.Outcome
	}
	return snap
}

func (o *Orchestrator) publish() {
	o.mu.Lock()
	snap := o.snapshotLocked()
	callback := o.onUpdate
	o.mu.Unlock()
	if callback != nil {
		callback(snap)
	}
}

// SubmitLink validates the link, asks the backend for available formats and
// replaces any previous catalog and session. Invalid links are rejected
// locally without touching the network.
func (o *Orchestrator) SubmitLink(ctx context.Context, link string) error {
	if err := model.ValidateLink(link); err != nil {
		return err
	}

	o.mu.Lock()
	generation := uuid.NewString()
	o.generation = generation
	o.teardownStreamLocked()
	o.mu.Unlock()

	catalog, err := o.backend.SubmitLink(ctx, link)
	if err != nil {
		log.Warn().Str("link", link).Err(err).Msg("format catalog request failed")
		return err
	}

	o.mu.Lock()
	if o.generation != generation {
		o.mu.Unlock()
		return nil
	}
	o.link = link
	o.catalog = catalog
	o.sess = nil
	o.clearDownloadLocked()
	o.phase = model.PhaseLinkSubmitted
	o.mu.Unlock()

	o.publish()
	return nil
}

// ChooseFormat selects a catalog entry by index, obtains a session identifier
// from the backend and subscribes to its push channel. Choosing again while a
// previous session is still running abandons that session cleanly.
func (o *Orchestrator) ChooseFormat(ctx context.Context, index int) error {
	o.mu.Lock()
	if o.catalog == nil {
		o.mu.Unlock()
		return fmt.Errorf("no format catalog: submit a link first")
	}
	if _, ok := o.catalog.At(index); !ok {
		o.mu.Unlock()
		return fmt.Errorf("format index %d out of range", index)
	}
	link := o.catalog.Link
	generation := uuid.NewString()
	o.generation = generation
	o.teardownStreamLocked()
	o.sess = nil
	o.clearDownloadLocked()
	o.phase = model.PhaseFormatChosen
	o.mu.Unlock()
	o.publish()

	sessionID, err := o.backend.SelectFormat(ctx, index, link)
	if err != nil {
		log.Warn().Int("format_index", index).Err(err).Msg("format selection failed")
		o.mu.Lock()
		if o.generation == generation {
			o.phase = model.PhaseLinkSubmitted
		}
		o.mu.Unlock()
		o.publish()
		return err
	}

	stream, err := o.source.Open(ctx, sessionID)
	if err != nil {
		log.Warn().Str("session_id", sessionID).Err(err).Msg("event channel subscription failed")
		o.mu.Lock()
		if o.generation == generation {
			o.phase = model.PhaseLinkSubmitted
		}
		o.mu.Unlock()
		o.publish()
		return err
	}

	o.mu.Lock()
	if o.generation != generation {
		// Superseded while the subscription was in flight.
		o.mu.Unlock()
		stream.Close()
		return nil
	}
	o.stream = stream
	o.sess = model.NewSession(sessionID, index)
	o.phase = model.PhaseProcessing
	o.mu.Unlock()
	o.publish()

	go o.consume(generation, stream)
	return nil
}

// consume applies events from one session's push channel until the channel
// closes or the session is superseded.
func (o *Orchestrator) consume(generation string, stream EventStream) {
	for event := range stream.Events() {
		o.mu.Lock()
		if o.generation != generation || o.sess == nil {
			o.mu.Unlock()
			stream.Close()
			// Drain so the stream's reader can observe the close and exit.
			for range stream.Events() {
			}
			return
		}

		changed := false
		fireDownload := false
		var ref model.ArtifactRef
		var meta model.VideoMetadata

		switch event.Kind {
		case events.KindProgress:
			// ApplyProgress ignores post-terminal events, so the phase can
			// never regress out of Terminal here.
			if o.sess.ApplyProgress(event.Percentage) {
				o.phase = model.PhaseProcessing
				changed = true
			}
		case events.KindProcessing:
			if o.sess.ApplyProcessing(event.Processing) {
				o.phase = model.PhaseProcessing
				changed = true
			}
		case events.KindReady:
			if o.sess.ApplyOutcome(event.Artifact) {
				o.phase = model.PhaseTerminal
				changed = true
				if !event.Artifact.Failed() && !o.sess.DownloadFired {
					o.sess.DownloadFired = true
					fireDownload = true
					ref = event.Artifact
					meta = o.catalog.Meta
				}
			}
		}
		o.mu.Unlock()

		if changed {
			o.publish()
		}
		if fireDownload {
			go o.fetch(generation, ref, meta)
		}
	}

	// Channel ended. A drop before the terminal event is not fatal: the
	// session state stays as-is and the user may re-choose.
	o.mu.Lock()
	if o.generation == generation && o.stream == stream {
		o.stream = nil
		if o.phase != model.PhaseTerminal {
			log.Warn().Msg("event channel ended before terminal event")
		}
	}
	o.mu.Unlock()
}

// fetch performs the one-shot local download for a ready artifact.
func (o *Orchestrator) fetch(generation string, ref model.ArtifactRef, meta model.VideoMetadata) {
	result, err := o.fetcher.Fetch(context.Background(), ref, meta)

	o.mu.Lock()
	if o.generation != generation {
		o.mu.Unlock()
		return
	}
	if err != nil {
		o.downloadErr = err.Error()
	} else {
		o.downloadPath = result.Path
		o.downloadSize = result.Size
	}
	o.mu.Unlock()
	o.publish()
}

// Reset abandons everything and returns to the idle phase, so another link
// can be submitted from scratch.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.generation = uuid.NewString()
	o.teardownStreamLocked()
	o.phase = model.PhaseIdle
	o.link = ""
	o.catalog = nil
	o.sess = nil
	o.clearDownloadLocked()
	o.mu.Unlock()
	o.publish()
}

// Close releases the active push channel. Used on application shutdown.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.generation = uuid.NewString()
	o.teardownStreamLocked()
	o.mu.Unlock()
}

func (o *Orchestrator) teardownStreamLocked() {
	if o.stream != nil {
		o.stream.Close()
		o.stream = nil
	}
}

func (o *Orchestrator) clearDownloadLocked() {
	o.downloadPath = ""
	o.downloadSize = 0
	o.downloadErr = ""
}
