package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vidfetch/vidfetch/internal/model"
)

// Kind identifies the event kinds the backend pushes per session.
type Kind string

const (
	KindProgress   Kind = "progress"
	KindProcessing Kind = "video_processing_status"
	KindReady      Kind = "video_ready"
)

// Event is one push message, decoded. Exactly one of the payload fields is
// meaningful depending on Kind.
type Event struct {
	Kind Kind

	Percentage int               // KindProgress
	Processing bool              // KindProcessing
	Artifact   model.ArtifactRef // KindReady
}

type (
	wireFrame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}

	progressPayload struct {
		Percentage flexibleInt `json:"percentage"`
	}

	processingPayload struct {
		Processing bool `json:"video_processing"`
	}

	readyPayload struct {
		VideoURL      string `json:"video_url"`
		VideoFilesize int64  `json:"video_filesize"`
		ErrorMessage  string `json:"error_message"`
	}

	// flexibleInt tolerates the backend emitting percentages as either a JSON
	// number or a quoted string.
	flexibleInt int
)

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}

	// Some senders emit fractional percentages; take the integer part.
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("percentage %q is not numeric: %w", raw, err)
	}

	*f = flexibleInt(int(parsed))
	return nil
}

// decodeFrame turns one raw websocket frame into a typed Event. Frames with an
// unknown event name return ok=false so the reader can skip them.
func decodeFrame(raw []byte) (Event, bool, error) {
	var frame wireFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Event{}, false, fmt.Errorf("malformed event frame: %w", err)
	}

	switch Kind(frame.Event) {
	case KindProgress:
		var payload progressPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return Event{}, false, fmt.Errorf("malformed progress payload: %w", err)
		}
		return Event{Kind: KindProgress, Percentage: int(payload.Percentage)}, true, nil

	case KindProcessing:
		var payload processingPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return Event{}, false, fmt.Errorf("malformed processing payload: %w", err)
		}
		return Event{Kind: KindProcessing, Processing: payload.Processing}, true, nil

	case KindReady:
		var payload readyPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return Event{}, false, fmt.Errorf("malformed ready payload: %w", err)
		}
		return Event{Kind: KindReady, Artifact: model.ArtifactRef{
			URL:          payload.VideoURL,
			Filesize:     payload.VideoFilesize,
			ErrorMessage: payload.ErrorMessage,
		}}, true, nil
	}

	return Event{}, false, nil
}
