package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/ngodn/soluna/pkg/nuxt"
	"github.com/ngodn/soluna/pkg/types"
	"github.com/ngodn/soluna/pkg/urlutil"
)

// Search browses the listing for keyword. Any failure, a page without a
// payload, or an empty listing falls back to Trending.
func (s *Source) Search(ctx context.Context, keyword string) ([]types.SearchResult, error) {
	log := s.log.WithOperation("search")

	slug := urlutil.Slugify(keyword)
	browseURL := urlutil.BrowseURL(s.siteBase, slug)
	log.Debug("searching", "slug", slug, "url", browseURL)

	html, err := s.fetcher.FetchText(ctx, browseURL)
	if err != nil {
		log.Warn("browse fetch failed, falling back to trending", "url", browseURL, "error", err)
		return s.Trending(ctx)
	}

	page, err := nuxt.ExtractPage(html)
	if err != nil {
		log.Warn("no listing payload, falling back to trending", "url", browseURL, "error", err)
		return s.Trending(ctx)
	}

	if len(page.HentaiVideos) == 0 {
		log.Info("no videos for tag, falling back to trending", "slug", slug)
		return s.Trending(ctx)
	}

	results := s.toResults(page.HentaiVideos)
	log.Debug("found videos", "count", len(results))
	return results, nil
}

// Trending returns the trending listing. A page without a payload yields
// an empty listing; fetch and decode failures are returned.
func (s *Source) Trending(ctx context.Context) ([]types.SearchResult, error) {
	log := s.log.WithOperation("trending")
	trendingURL := urlutil.BrowseURL(s.siteBase, urlutil.ListingTrending)

	html, err := s.fetcher.FetchText(ctx, trendingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}

	page, err := nuxt.ExtractPage(html)
	if errors.Is(err, nuxt.ErrPayloadNotFound) || errors.Is(err, nuxt.ErrNoData) {
		log.Info("trending page carries no listing")
		return []types.SearchResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode trending: %w", err)
	}

	results := s.toResults(page.HentaiVideos)
	log.Debug("fetched trending videos", "count", len(results))
	return results, nil
}

// SearchJSON is Search encoded for the host. When both the search and its
// trending fallback fail it encodes the empty trending listing.
func (s *Source) SearchJSON(ctx context.Context, keyword string) string {
	results, err := s.Search(ctx, keyword)
	if err != nil {
		s.log.WithOperation("search").Error("search failed", "keyword", keyword, "error", err)
		return encode([]types.SearchResult{})
	}
	return encode(results)
}

// TrendingJSON is Trending encoded for the host; failures encode as [].
func (s *Source) TrendingJSON(ctx context.Context) string {
	results, err := s.Trending(ctx)
	if err != nil {
		s.log.WithOperation("trending").Error("trending fetch failed", "error", err)
		return encode([]types.SearchResult{})
	}
	return encode(results)
}

func (s *Source) toResults(videos []nuxt.VideoSummary) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(videos))
	for _, v := range videos {
		results = append(results, s.toResult(v))
	}
	return results
}

func (s *Source) toResult(v nuxt.VideoSummary) types.SearchResult {
	title := string(v.Name)
	if title == "" {
		title = "Untitled"
	}
	image := string(v.CoverURL)
	if image == "" {
		image = urlutil.CoverURL(s.cdnBase, string(v.Slug))
	}
	return types.SearchResult{
		Title: title,
		Image: image,
		Href:  urlutil.VideoURL(s.siteBase, string(v.Slug)),
	}
}
