package model

import (
	"fmt"
	"net/url"
	"strings"
)

// FormatOption is one selectable output description returned by the backend
// for a submitted link. Options are immutable once received.
type FormatOption struct {
	Label    string // display label, e.g. "720p" or "128kbps"
	Itag     int    // stable backend identifier for this stream
	MimeType string // container/type tag, e.g. "video/mp4"
}

// IsCombined reports whether the option carries video and audio in a single
// stream, as opposed to an audio-only track.
func (f FormatOption) IsCombined() bool {
	return strings.HasPrefix(f.MimeType, "video/")
}

// VideoMetadata describes the submitted video for display and for naming the
// downloaded file.
type VideoMetadata struct {
	ThumbnailURL string
	Title        string
	DurationSec  int
}

// DurationString returns the video length formatted as hh:mm:ss, or "—" if unknown
func (m VideoMetadata) DurationString() string {
	if m.DurationSec <= 0 {
		return "—"
	}

	hours := m.DurationSec / 3600
	minutes := (m.DurationSec % 3600) / 60
	seconds := m.DurationSec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FormatCatalog is the ordered list of selectable output formats for one
// submitted link, together with the video metadata. At most one catalog is
// active at a time; a new link submission replaces it.
type FormatCatalog struct {
	Link    string
	Formats []FormatOption
	Meta    VideoMetadata
}

// At returns the option at the given index, or false if the index is out of
// range for this catalog.
func (c *FormatCatalog) At(index int) (FormatOption, bool) {
	if c == nil || index < 0 || index >= len(c.Formats) {
		return FormatOption{}, false
	}
	return c.Formats[index], true
}

// Combined returns the options carrying video+audio streams, in catalog order.
func (c *FormatCatalog) Combined() []FormatOption {
	return c.filter(true)
}

// AudioOnly returns the single-track audio options, in catalog order.
func (c *FormatCatalog) AudioOnly() []FormatOption {
	return c.filter(false)
}

func (c *FormatCatalog) filter(combined bool) []FormatOption {
	if c == nil {
		return nil
	}
	out := make([]FormatOption, 0, len(c.Formats))
	for _, f := range c.Formats {
		if f.IsCombined() == combined {
			out = append(out, f)
		}
	}
	return out
}

// ValidateLink checks the minimal validity predicate for a source link before
// any network call is attempted: non-empty, parseable, http or https scheme.
func ValidateLink(link string) error {
	if strings.TrimSpace(link) == "" {
		return fmt.Errorf("link is empty")
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("link must start with http:// or https://")
	}

	return nil
}
