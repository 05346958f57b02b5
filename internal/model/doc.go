package model

// Package model defines domain data structures used across the app: the
// submitted link, the format catalog returned for it, the conversion session
// with its phase enum, and the terminal artifact reference. Structures are
// designed for direct binding in the UI and explicit state transitions.
