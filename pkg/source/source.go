// Package source implements the hanime.tv content source: browse listings,
// video details, franchise episodes and stream URLs, all read from the
// NUXT state embedded in server-rendered pages.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/interfaces"
	"github.com/ngodn/soluna/pkg/logging"
)

var (
	// ErrVideoNotFound means a video page payload has no hentai_video.
	ErrVideoNotFound = errors.New("video info not found")
	// ErrNoStreams means a video page lists no playable stream.
	ErrNoStreams = errors.New("no video streams found")
)

// Source reads the site through a Fetcher.
type Source struct {
	fetcher  interfaces.Fetcher
	prober   interfaces.QualityProber
	siteBase string
	cdnBase  string
	loc      *time.Location
	log      *logging.Logger
}

// New creates a Source. prober may be nil, in which case streams without a
// height keep the "Unknown" label.
func New(cfg *config.Config, fetcher interfaces.Fetcher, prober interfaces.QualityProber, log *logging.Logger) *Source {
	return &Source{
		fetcher:  fetcher,
		prober:   prober,
		siteBase: strings.TrimSuffix(cfg.SiteBaseURL, "/"),
		cdnBase:  strings.TrimSuffix(cfg.CDNBaseURL, "/"),
		loc:      cfg.Location(),
		log:      log.WithComponent("source"),
	}
}

// SiteBase returns the site origin this source reads from.
func (s *Source) SiteBase() string {
	return s.siteBase
}

// encode renders v the way a browser's JSON.stringify would: no HTML
// escaping and no trailing newline.
func encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

var _ interfaces.Source = (*Source)(nil)
