package session

import (
	"context"

	"github.com/vidfetch/vidfetch/internal/download"
	"github.com/vidfetch/vidfetch/internal/events"
	"github.com/vidfetch/vidfetch/internal/model"
)

// Backend is the slice of the remote API the orchestrator depends on.
type Backend interface {
	SubmitLink(ctx context.Context, link string) (*model.FormatCatalog, error)
	SelectFormat(ctx context.Context, formatIndex int, link string) (string, error)
}

// EventStream delivers push events for one session until closed.
type EventStream interface {
	Events() <-chan events.Event
	Close()
}

// EventSource opens a push channel scoped to a session identifier.
type EventSource interface {
	Open(ctx context.Context, sessionID string) (EventStream, error)
}

// Fetcher saves a finished artifact to local storage.
type Fetcher interface {
	Fetch(ctx context.Context, ref model.ArtifactRef, meta model.VideoMetadata) (download.Result, error)
}
