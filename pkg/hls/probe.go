// Package hls inspects HLS playlists to label streams the page left unlabelled.
package hls

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/interfaces"
	"github.com/ngodn/soluna/pkg/logging"
	"github.com/ngodn/soluna/pkg/urlutil"
)

// ErrNoResolution means the playlist carries no usable RESOLUTION attribute.
var ErrNoResolution = errors.New("hls: no resolution in playlist")

// Prober fetches playlists and reads the highest variant resolution.
type Prober struct {
	client    interfaces.HTTPClient
	userAgent string
	log       *logging.Logger
}

// NewProber creates a Prober.
func NewProber(cfg *config.Config, client interfaces.HTTPClient, log *logging.Logger) *Prober {
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	return &Prober{
		client:    client,
		userAgent: ua,
		log:       log.WithComponent("hls-probe"),
	}
}

// ProbeQuality returns "{height}p" for the tallest variant of a master
// playlist. Media playlists carry no resolution and yield ErrNoResolution.
func (p *Prober) ProbeQuality(ctx context.Context, streamURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent)
	if origin := urlutil.GetSchemeHost(streamURL); origin != "" {
		req.Header.Set("Origin", origin)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("playlist %s: %s", streamURL, resp.Status)
	}

	playlist, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return "", fmt.Errorf("decode playlist: %w", err)
	}
	if listType != m3u8.MASTER {
		return "", ErrNoResolution
	}

	height := MaxHeight(playlist.(*m3u8.MasterPlaylist))
	if height == 0 {
		return "", ErrNoResolution
	}

	p.log.Debug("probed stream quality", "url", streamURL, "height", height)
	return strconv.Itoa(height) + "p", nil
}

// MaxHeight returns the tallest "WxH" resolution among the variants.
func MaxHeight(master *m3u8.MasterPlaylist) int {
	best := 0
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		if h := parseHeight(v.Resolution); h > best {
			best = h
		}
	}
	return best
}

func parseHeight(resolution string) int {
	_, h, ok := strings.Cut(resolution, "x")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0
	}
	return n
}
