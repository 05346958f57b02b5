package model

// Phase represents where a conversion flow currently is in its lifecycle.
// Transitions only move through the orchestrator; see internal/session.
type Phase string

const (
	// PhaseIdle means no link has been submitted yet, or state was reset
	PhaseIdle Phase = "Idle"

	// PhaseLinkSubmitted means a format catalog is active and awaiting a choice
	PhaseLinkSubmitted Phase = "LinkSubmitted"

	// PhaseFormatChosen means the backend acknowledged the choice with a
	// session id but no event has arrived yet
	PhaseFormatChosen Phase = "FormatChosen"

	// PhaseProcessing means the event channel is open and server-side work
	// is underway
	PhaseProcessing Phase = "Processing"

	// PhaseTerminal means the session received its terminal event, with
	// either an artifact reference or an error
	PhaseTerminal Phase = "Terminal"
)

// String returns the string representation of Phase
func (p Phase) String() string {
	return string(p)
}

// HasSession reports whether a backend session exists in this phase.
func (p Phase) HasSession() bool {
	return p == PhaseFormatChosen || p == PhaseProcessing || p == PhaseTerminal
}

// HasCatalog reports whether a format catalog is active in this phase.
func (p Phase) HasCatalog() bool {
	return p != PhaseIdle
}

// ArtifactRef is the payload of a terminal ready event: a fetchable artifact
// location plus optional size, or an error message when the backend reported
// failure.
type ArtifactRef struct {
	URL          string
	Filesize     int64  // bytes, 0 when the backend did not report it
	ErrorMessage string // set only when the session failed
}

// Failed reports whether this terminal payload carries the failure sentinel
// rather than a fetchable artifact.
func (a ArtifactRef) Failed() bool {
	return a.ErrorMessage != "" || a.URL == "" || a.URL == "error"
}

// Session is the server-tracked unit of work for converting one chosen format
// of one submitted link. It owns the processing flag, the progress percentage
// and the terminal outcome. A session is destroyed when a new link submission
// or a new format choice supersedes it.
type Session struct {
	ID          string
	ChosenIndex int

	// Progress is the last accepted percentage, -1 until the first progress
	// event arrives. Updates are clamped monotonically non-decreasing.
	Progress int

	// ProcessingKnown is false until the first processing-status event; once
	// an event arrives, Processing is authoritative.
	ProcessingKnown bool
	Processing      bool

	// Outcome is nil until the terminal event is applied.
	Outcome *ArtifactRef

	// DownloadFired guards the one-shot download trigger against redelivered
	// terminal events.
	DownloadFired bool
}

// NewSession creates a session for the given backend id and chosen format index.
func NewSession(id string, chosenIndex int) *Session {
	return &Session{
		ID:          id,
		ChosenIndex: chosenIndex,
		Progress:    -1,
	}
}

// ApplyProgress applies a progress percentage, clamping to the valid range and
// ignoring values lower than what was already observed. Events arriving after
// the terminal outcome are ignored. It returns true when the stored progress
// changed.
func (s *Session) ApplyProgress(percent int) bool {
	if s.Outcome != nil {
		return false
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= s.Progress {
		return false
	}
	s.Progress = percent
	return true
}

// ApplyProcessing records a processing-status event. The backend emits a final
// "not processing" status after the terminal event; once the outcome is known
// the status carries no information, so post-terminal events are ignored. It
// returns true when the stored flag changed.
func (s *Session) ApplyProcessing(processing bool) bool {
	if s.Outcome != nil {
		return false
	}
	s.ProcessingKnown = true
	s.Processing = processing
	return true
}

// ApplyOutcome records the terminal payload. Only the first terminal event per
// session is kept; redeliveries return false and leave state untouched. The
// processing flag is cleared: a terminal outcome and "still processing" cannot
// coexist.
func (s *Session) ApplyOutcome(ref ArtifactRef) bool {
	if s.Outcome != nil {
		return false
	}
	s.Outcome = &ref
	s.Processing = false
	return true
}
