package icon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMaxBytes  = 1 << 20 // 1MB
	defaultUserAgent = "startpage/1.0 (icon-resolver)"
)

// ErrNotImage is returned when a candidate answers with something that is
// not an image.
var ErrNotImage = errors.New("response is not an image")

// LoadError reports a failed candidate. It is never shown to the user; the
// resolver moves on to the next candidate.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load icon %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Image is a successfully loaded candidate.
type Image struct {
	URL         string
	ContentType string
	Data        []byte
}

// Fetcher loads a single candidate url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Image, error)
}

// PageFetcher loads an HTML page. Fetchers that implement it enable the
// site-declared icon candidate.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher.
type HTTPFetcher struct {
	Client    *http.Client
	MaxBytes  int64
	UserAgent string
}

// NewHTTPFetcher returns a fetcher using a client with the given overall
// timeout (0 means none).
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		MaxBytes:  defaultMaxBytes,
		UserAgent: defaultUserAgent,
	}
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, nil, fmt.Errorf("body exceeds %d bytes", limit)
	}
	return resp, body, nil
}

// Fetch GETs url and accepts the response only if it is a non-empty image.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Image, error) {
	resp, body, err := f.get(ctx, url)
	if err != nil {
		return Image{}, &LoadError{URL: url, Err: err}
	}
	ct, ok := imageType(resp.Header.Get("Content-Type"), body)
	if !ok {
		return Image{}, &LoadError{URL: url, Err: ErrNotImage}
	}
	return Image{URL: url, ContentType: ct, Data: body}, nil
}

// FetchPage GETs an HTML document.
func (f *HTTPFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	_, body, err := f.get(ctx, url)
	if err != nil {
		return nil, &LoadError{URL: url, Err: err}
	}
	return body, nil
}

// imageType decides whether body is an image, preferring the declared type
// and falling back to content sniffing.
func imageType(header string, body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	if mt, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mt, "image/") {
		return mt, true
	}
	sniffed := http.DetectContentType(body)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, true
	}
	// DetectContentType reports SVG as text/xml or text/plain.
	head := bytes.ToLower(body[:min(len(body), 512)])
	if bytes.Contains(head, []byte("<svg")) {
		return "image/svg+xml", true
	}
	return "", false
}
