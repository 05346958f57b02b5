package events

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	subscribePath = "/api/events"

	// eventBuffer keeps a slow consumer from stalling the read loop while the
	// backend bursts progress updates.
	eventBuffer = 16
)

// Channel is one open push subscription. Events are delivered on Events()
// until the subscription ends; the channel is closed afterwards, whatever the
// cause. Pure silence keeps the subscription open indefinitely.
type Channel struct {
	conn      *websocket.Conn
	events    chan Event
	closeOnce sync.Once
}

// Dialer opens push subscriptions against one backend base address.
type Dialer struct {
	baseURL string
}

// NewDialer creates a dialer for the given backend base address, e.g.
// "http://localhost:8000".
func NewDialer(baseURL string) *Dialer {
	return &Dialer{baseURL: baseURL}
}

// Open establishes the websocket subscription for the given session id and
// starts delivering its events. The caller owns the returned channel and must
// Close it when the session is superseded or torn down.
func (d *Dialer) Open(ctx context.Context, sessionID string) (*Channel, error) {
	wsURL, err := subscribeURL(d.baseURL, sessionID)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe to session %s: %w", sessionID, err)
	}

	channel := &Channel{
		conn:   conn,
		events: make(chan Event, eventBuffer),
	}
	go channel.readLoop(sessionID)

	return channel, nil
}

// Events returns the stream of decoded push events. The channel is closed
// when the subscription ends.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Close tears the subscription down. Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// readLoop pumps frames off the wire until the connection ends. Malformed or
// unknown frames are skipped; the loop owns closing the events channel.
func (c *Channel) readLoop(sessionID string) {
	defer close(c.events)
	defer c.Close()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			// Expected on Close(); anything else is a dropped subscription,
			// which the consumer observes as the stream ending.
			log.Debug().Str("session_id", sessionID).Err(err).Msg("event subscription ended")
			return
		}

		event, ok, err := decodeFrame(raw)
		if err != nil {
			log.Warn().Str("session_id", sessionID).Err(err).Msg("skipping undecodable event frame")
			continue
		}
		if !ok {
			log.Debug().Str("session_id", sessionID).Msg("skipping unknown event kind")
			continue
		}

		c.events <- event
	}
}

// subscribeURL converts the HTTP base address into the websocket subscribe
// endpoint for one session.
func subscribeURL(baseURL, sessionID string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid backend address %q: %w", baseURL, err)
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
		// already a websocket address
	default:
		return "", fmt.Errorf("invalid backend address scheme %q", parsed.Scheme)
	}

	parsed.Path = subscribePath
	parsed.RawQuery = url.Values{"session_id": []string{sessionID}}.Encode()
	return parsed.String(), nil
}
