package api

// Package api implements the request/response half of the backend contract:
// submitting a source link for its available formats, and selecting one format
// to start a conversion session. The push half lives in internal/events.
