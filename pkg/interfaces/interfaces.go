// Package interfaces defines the core abstractions shared by the fetch
// layer, the content source and the outward surfaces (API, Stremio, CLI).
package interfaces

import (
	"context"
	"net/http"

	"github.com/ngodn/soluna/pkg/types"
)

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves a page body as text.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// PageSolver renders a page through an anti-bot bypass service.
type PageSolver interface {
	IsConfigured() bool
	FetchHTML(ctx context.Context, url string) (string, error)
}

// QualityProber derives a quality label ("720p") from a stream URL.
type QualityProber interface {
	ProbeQuality(ctx context.Context, streamURL string) (string, error)
}

// Source is a content source the host can browse.
//
// The typed methods return errors; the JSON methods never fail and
// encode the documented fallback payloads instead.
type Source interface {
	// Search browses by tag, or by the trending/recent/latest/random listings.
	Search(ctx context.Context, keyword string) ([]types.SearchResult, error)

	// Trending returns the trending listing.
	Trending(ctx context.Context) ([]types.SearchResult, error)

	// Details returns the detail record for a video page URL.
	Details(ctx context.Context, pageURL string) (*types.Details, error)

	// Episodes returns the franchise episodes of a video page URL.
	Episodes(ctx context.Context, pageURL string) ([]types.Episode, error)

	// Streams returns the stream bundle of a video page URL.
	Streams(ctx context.Context, pageURL string) (*types.StreamBundle, error)

	SearchJSON(ctx context.Context, keyword string) string
	TrendingJSON(ctx context.Context) string
	DetailsJSON(ctx context.Context, pageURL string) string
	EpisodesJSON(ctx context.Context, pageURL string) string
	StreamJSON(ctx context.Context, pageURL string) string
}
