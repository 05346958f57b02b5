package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vidfetch/vidfetch/internal/model"
)

const (
	submitLinkPath   = "/api/download_options"
	selectFormatPath = "/api/download_video"

	defaultRequestTimeout = 30 * time.Second
)

type (
	// Client talks to the media-download backend over HTTP/JSON.
	Client struct {
		baseURL string
		http    *http.Client
	}

	submitLinkRequest struct {
		InputLink string `json:"inputLink"`
	}

	submitLinkResponse struct {
		AvailableResolutions []resolutionEntry `json:"available_resolutions"`
		ThumbnailURL         string            `json:"thumbnail_url"`
		VideoTitle           string            `json:"video_title"`
		VideoLength          int               `json:"video_length"`
	}

	resolutionEntry struct {
		Res  string `json:"res"`
		Itag int    `json:"itag"`
		Type string `json:"type"`
	}

	selectFormatRequest struct {
		FormatIndex int    `json:"formatIndex"`
		SavedLink   string `json:"savedLink"`
	}

	selectFormatResponse struct {
		SessionID string `json:"session_id"`
	}
)

// NewClient creates a backend client for the given base address, e.g.
// "http://localhost:8000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// SubmitLink sends the source link to the backend and returns the catalog of
// selectable formats plus the video metadata. The caller is expected to have
// validated the link already; backend failures surface as UpstreamError.
func (c *Client) SubmitLink(ctx context.Context, link string) (*model.FormatCatalog, error) {
	var resp submitLinkResponse
	if err := c.postJSON(ctx, submitLinkPath, submitLinkRequest{InputLink: link}, &resp); err != nil {
		return nil, err
	}

	formats := make([]model.FormatOption, 0, len(resp.AvailableResolutions))
	for _, entry := range resp.AvailableResolutions {
		formats = append(formats, model.FormatOption{
			Label:    entry.Res,
			Itag:     entry.Itag,
			MimeType: entry.Type,
		})
	}

	if len(formats) == 0 {
		return nil, &UpstreamError{detail: "backend returned no downloadable formats"}
	}

	return &model.FormatCatalog{
		Link:    link,
		Formats: formats,
		Meta: model.VideoMetadata{
			ThumbnailURL: resp.ThumbnailURL,
			Title:        resp.VideoTitle,
			DurationSec:  resp.VideoLength,
		},
	}, nil
}

// SelectFormat asks the backend to start converting the format at the given
// catalog index for a previously submitted link. On success the backend
// acknowledges with an opaque session id the caller subscribes with.
// A backend that no longer tracks the link reports StateError.
func (c *Client) SelectFormat(ctx context.Context, formatIndex int, link string) (string, error) {
	var resp selectFormatResponse
	if err := c.postJSON(ctx, selectFormatPath, selectFormatRequest{FormatIndex: formatIndex, SavedLink: link}, &resp); err != nil {
		return "", err
	}

	if resp.SessionID == "" {
		return "", &UpstreamError{detail: "backend acknowledged the selection without a session id"}
	}

	return resp.SessionID, nil
}

// postJSON performs one POST round trip against the backend, mapping transport
// faults and non-OK statuses onto the error taxonomy.
func (c *Client) postJSON(ctx context.Context, path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("backend request failed")
		return &UpstreamError{detail: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{detail: fmt.Sprintf("failed to read response body: %s", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var backendErr backendError
		message := "non-OK response could not be unmarshalled"
		if err := json.Unmarshal(respBody, &backendErr); err == nil && backendErr.Error != "" {
			message = backendErr.Error
		}

		log.Warn().Str("path", path).Int("status", resp.StatusCode).Str("message", message).Msg("backend rejected request")

		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone, http.StatusConflict:
			return &StateError{detail: message}
		default:
			return &UpstreamError{detail: (&FailedRequestError{httpCode: resp.StatusCode, message: message}).Error()}
		}
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		return &UpstreamError{detail: fmt.Sprintf("response JSON could not be unmarshalled: %s", err)}
	}

	return nil
}
