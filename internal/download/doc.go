package download

// Package download implements the client-side download trigger: it fetches a
// ready artifact from the reference delivered by the terminal session event
// and saves it locally under a name derived from the video title. Firing
// at most once per session is enforced by the orchestrator; this package only
// performs the fetch.
