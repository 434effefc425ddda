package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ngodn/soluna/pkg/nuxt"
	"github.com/ngodn/soluna/pkg/types"
	"github.com/ngodn/soluna/pkg/urlutil"
)

// airdateLayout renders dates as month/day/year without padding.
const airdateLayout = "1/2/2006"

// video fetches a video page and returns its hentai_video record.
func (s *Source) video(ctx context.Context, pageURL string) (*nuxt.Video, error) {
	html, err := s.fetcher.FetchText(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch video page: %w", err)
	}

	page, err := nuxt.ExtractPage(html)
	if err != nil {
		return nil, fmt.Errorf("video page %s: %w", pageURL, err)
	}
	if page.HentaiVideo == nil {
		return nil, ErrVideoNotFound
	}
	return page.HentaiVideo, nil
}

// Details returns the detail record of a video page.
func (s *Source) Details(ctx context.Context, pageURL string) (*types.Details, error) {
	v, err := s.video(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	d := s.toDetails(v)
	s.log.WithOperation("details").Debug("extracted details", "url", pageURL)
	return &d, nil
}

func (s *Source) toDetails(v *nuxt.Video) types.Details {
	description := string(v.Description)
	if description == "" {
		description = "No description available"
	}

	tags := "None"
	if v.Tags != nil {
		texts := make([]string, 0, len(v.Tags))
		for _, t := range v.Tags {
			texts = append(texts, string(t.Text))
		}
		tags = strings.Join(texts, ", ")
	}

	brand := "Unknown"
	if v.Brand != nil && v.Brand.Title != "" {
		brand = string(v.Brand.Title)
	}

	views := "0"
	if v.Views != 0 {
		views = humanize.Comma(int64(v.Views))
	}

	released := "Unknown"
	if v.ReleasedAtUnix != 0 {
		released = time.Unix(int64(v.ReleasedAtUnix), 0).In(s.loc).Format(airdateLayout)
	}

	return types.Details{
		Description: description,
		Aliases:     fmt.Sprintf("Tags: %s\nBrand: %s\nViews: %s", tags, brand, views),
		Airdate:     "Released: " + released,
	}
}

// DetailsJSON is Details encoded for the host as a one-element array.
// Failures encode the "Error loading description" record.
func (s *Source) DetailsJSON(ctx context.Context, pageURL string) string {
	d, err := s.Details(ctx, pageURL)
	if err != nil {
		s.log.WithOperation("details").Warn("details failed", "url", pageURL, "error", err)
		return encode([]types.Details{types.ErrorDetails})
	}
	return encode([]types.Details{*d})
}

// Episodes lists the franchise of a video page in site order. A video
// outside any franchise is returned as its own single episode.
func (s *Source) Episodes(ctx context.Context, pageURL string) ([]types.Episode, error) {
	v, err := s.video(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	episodes := s.toEpisodes(v, pageURL)
	s.log.WithOperation("episodes").Debug("found episodes", "url", pageURL, "count", len(episodes))
	return episodes, nil
}

func (s *Source) toEpisodes(v *nuxt.Video, pageURL string) []types.Episode {
	if len(v.Franchise) == 0 {
		title := string(v.Name)
		if title == "" {
			title = "Full Video"
		}
		return []types.Episode{{Href: pageURL, Number: 1, Title: title}}
	}

	episodes := make([]types.Episode, 0, len(v.Franchise))
	for i, ep := range v.Franchise {
		number := i + 1
		title := string(ep.Name)
		if title == "" {
			title = fmt.Sprintf("Episode %d", number)
		}
		episodes = append(episodes, types.Episode{
			Href:   urlutil.VideoURL(s.siteBase, string(ep.Slug)),
			Number: number,
			Title:  title,
		})
	}
	return episodes
}

// EpisodesJSON is Episodes encoded for the host; failures encode as [].
func (s *Source) EpisodesJSON(ctx context.Context, pageURL string) string {
	episodes, err := s.Episodes(ctx, pageURL)
	if err != nil {
		s.log.WithOperation("episodes").Warn("episodes failed", "url", pageURL, "error", err)
		return encode([]types.Episode{})
	}
	return encode(episodes)
}
