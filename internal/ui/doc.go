package ui

// Package ui contains the Fyne-based desktop user interface for the application.
// It wires user interactions to the session orchestrator and renders the format
// catalog, progress, notifications, and settings. All UI strings are localized
// via Localization.
