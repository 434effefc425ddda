package source

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ngodn/soluna/pkg/nuxt"
	"github.com/ngodn/soluna/pkg/types"
)

const unknownQuality = "Unknown"

// Streams returns the encodes of the first server, tallest first, as a
// flat label/URL list. Streams without a URL are skipped.
func (s *Source) Streams(ctx context.Context, pageURL string) (*types.StreamBundle, error) {
	log := s.log.WithOperation("streams")

	html, err := s.fetcher.FetchText(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch video page: %w", err)
	}

	page, err := nuxt.ExtractPage(html)
	if err != nil {
		return nil, fmt.Errorf("video page %s: %w", pageURL, err)
	}

	manifest := page.VideosManifest
	if manifest == nil || len(manifest.Servers) == 0 {
		return nil, ErrNoStreams
	}

	sorted := make([]nuxt.Stream, len(manifest.Servers[0].Streams))
	copy(sorted, manifest.Servers[0].Streams)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Height > sorted[j].Height
	})

	streams := make([]string, 0, len(sorted)*2)
	for _, st := range sorted {
		if st.URL == "" {
			continue
		}
		streams = append(streams, s.qualityLabel(ctx, st), string(st.URL))
	}

	if len(streams) == 0 {
		return nil, ErrNoStreams
	}

	log.Debug("extracted stream URLs", "url", pageURL, "count", len(streams)/2)
	return &types.StreamBundle{Streams: streams, Subtitles: ""}, nil
}

func (s *Source) qualityLabel(ctx context.Context, st nuxt.Stream) string {
	if st.Height != 0 {
		return strconv.FormatInt(int64(st.Height), 10) + "p"
	}
	if s.prober == nil {
		return unknownQuality
	}

	label, err := s.prober.ProbeQuality(ctx, string(st.URL))
	if err != nil {
		s.log.Debug("quality probe failed", "url", st.URL, "error", err)
		return unknownQuality
	}
	return label
}

// StreamJSON is Streams encoded for the host. When no stream is available
// it returns the JSON literal null.
func (s *Source) StreamJSON(ctx context.Context, pageURL string) string {
	bundle, err := s.Streams(ctx, pageURL)
	if err != nil {
		s.log.WithOperation("streams").Warn("stream extraction failed", "url", pageURL, "error", err)
		return "null"
	}
	return encode(bundle)
}
