// Package session coordinates the link-to-download lifecycle: catalog
// retrieval, format selection, per-session push events and the one-shot
// local download of the finished artifact.
package session
