package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/vidfetch/vidfetch/internal/model"
	"github.com/vidfetch/vidfetch/internal/platform"
)

const (
	// fallbackExtension is used when the artifact's declared media type is
	// missing or unrecognized.
	fallbackExtension = ".mp4"

	fallbackBaseName = "video"

	fetchTimeout = 10 * time.Minute
)

// containerExtensions maps declared artifact media types to file extensions.
var containerExtensions = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/x-matroska": ".mkv",
	"video/quicktime":  ".mov",
	"video/3gpp":       ".3gp",
	"audio/mp4":        ".m4a",
	"audio/mpeg":       ".mp3",
	"audio/webm":       ".weba",
}

// ArtifactError means the ready artifact could not be fetched or saved.
type ArtifactError struct {
	reason string
}

func (err *ArtifactError) Error() string {
	return fmt.Sprintf("artifact download failed: %s", err.reason)
}

// Result describes a saved artifact.
type Result struct {
	Path string
	Size int64 // bytes written
}

// Trigger fetches ready artifacts into the configured download directory.
type Trigger struct {
	downloadDir string
	http        *http.Client
}

// NewTrigger creates a trigger saving into the given directory.
func NewTrigger(downloadDir string) *Trigger {
	return &Trigger{
		downloadDir: downloadDir,
		http:        &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch downloads the artifact behind the reference and saves it under a file
// name derived from the video title, with the extension chosen from the
// response's declared media type. An insecure http reference is upgraded to
// https before fetching.
func (t *Trigger) Fetch(ctx context.Context, ref model.ArtifactRef, meta model.VideoMetadata) (Result, error) {
	if ref.Failed() {
		return Result{}, &ArtifactError{reason: "terminal event carried no fetchable artifact"}
	}

	fetchURL, err := secureURL(ref.URL)
	if err != nil {
		return Result{}, &ArtifactError{reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return Result{}, &ArtifactError{reason: err.Error()}
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return Result{}, &ArtifactError{reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, &ArtifactError{reason: fmt.Sprintf("artifact host answered HTTP %d", resp.StatusCode)}
	}

	if err := platform.CreateDirectoryIfNotExists(t.downloadDir); err != nil {
		return Result{}, &ArtifactError{reason: err.Error()}
	}

	fileName := FileName(meta.Title, resp.Header.Get("Content-Type"))
	path := filepath.Join(t.downloadDir, fileName)

	out, err := os.Create(path)
	if err != nil {
		return Result{}, &ArtifactError{reason: err.Error()}
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Do not leave a truncated artifact behind.
		_ = os.Remove(path)
		return Result{}, &ArtifactError{reason: err.Error()}
	}

	log.Info().Str("path", path).Int64("bytes", written).Msg("artifact saved")
	return Result{Path: path, Size: written}, nil
}

// secureURL normalizes the artifact reference onto https. References that are
// already secure pass through unchanged.
func secureURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("artifact reference %q is not a URL: %w", rawURL, err)
	}

	switch parsed.Scheme {
	case "https":
		return rawURL, nil
	case "http":
		parsed.Scheme = "https"
		return parsed.String(), nil
	default:
		return "", fmt.Errorf("artifact reference has unsupported scheme %q", parsed.Scheme)
	}
}

// FileName derives the local file name from the video title and the artifact's
// declared media type. Unrecognized media types fall back to the most common
// container.
func FileName(title, contentType string) string {
	base := sanitizeTitle(title)
	if base == "" {
		base = fallbackBaseName
	}

	return base + extensionFor(contentType)
}

// sanitizeTitle strips characters that are unsafe in file names, keeping
// letters, digits, spaces, underscores and hyphens.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// extensionFor maps a Content-Type header value onto a file extension.
func extensionFor(contentType string) string {
	if contentType == "" {
		return fallbackExtension
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fallbackExtension
	}

	if ext, ok := containerExtensions[mediaType]; ok {
		return ext
	}
	return fallbackExtension
}
