// Package fetch retrieves site pages through the primary HTTP client and
// falls back to a page solver when the direct request fails.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/interfaces"
	"github.com/ngodn/soluna/pkg/logging"
)

var (
	// ErrFetchFailed is returned when every fetch path failed.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrBodyTooLarge marks a page larger than maxBodyBytes.
	ErrBodyTooLarge = errors.New("response body too large")
)

// maxBodyBytes bounds a single page read.
const maxBodyBytes = 16 << 20

// StatusError reports a non-success upstream status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Fetcher fetches page text with a solver fallback.
type Fetcher struct {
	client    interfaces.HTTPClient
	solver    interfaces.PageSolver
	userAgent string
	referer   string
	log       *logging.Logger
}

// New creates a Fetcher. solver may be nil.
func New(cfg *config.Config, client interfaces.HTTPClient, solver interfaces.PageSolver, log *logging.Logger) *Fetcher {
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	return &Fetcher{
		client:    client,
		solver:    solver,
		userAgent: ua,
		referer:   cfg.SiteBaseURL + "/",
		log:       log.WithComponent("fetch"),
	}
}

// FetchText returns the body of url. A transport error or a 4xx/5xx status
// triggers the solver fallback; when that is unavailable or also fails the
// error wraps ErrFetchFailed.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	body, err := f.direct(ctx, url)
	if err == nil {
		return body, nil
	}

	if f.solver == nil || !f.solver.IsConfigured() {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	f.log.WithURL(url).WithError(err).Warn("direct fetch failed, trying solver")

	body, solverErr := f.solver.FetchHTML(ctx, url)
	if solverErr != nil {
		return "", fmt.Errorf("%w: direct: %w; solver: %w", ErrFetchFailed, err, solverErr)
	}
	return body, nil
}

func (f *Fetcher) direct(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Referer", f.referer)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxBodyBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, maxBodyBytes)
	}

	f.log.Debug("fetched page", "url", url, "status", resp.StatusCode, "bytes", len(body))
	return string(body), nil
}
