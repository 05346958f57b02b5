package events

// Package events implements the push half of the backend contract: a
// websocket subscription scoped to one session id, delivering progress,
// processing-status and terminal events until it is closed or the connection
// drops. A dropped connection is not an error for the consumer; the event
// stream simply ends.
