package stremio

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ngodn/soluna/pkg/appctx"
	"github.com/ngodn/soluna/pkg/logging"
	"github.com/ngodn/soluna/pkg/types"
	"github.com/ngodn/soluna/pkg/urlutil"
)

// Handlers contains all Stremio addon handlers.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates a new Stremio Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("stremio"),
	}
}

// RegisterRoutes registers all Stremio addon routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /stremio", h.handleHome)
	mux.HandleFunc("GET /stremio/{$}", h.handleHome)
	mux.HandleFunc("GET /stremio/manifest.json", h.handleManifest)
	mux.HandleFunc("GET /stremio/catalog/{type}/{id}", h.handleCatalog)
	mux.HandleFunc("GET /stremio/catalog/{type}/{id}/{extra}", h.handleCatalog)
	mux.HandleFunc("GET /stremio/meta/{type}/{id}", h.handleMeta)
	mux.HandleFunc("GET /stremio/stream/{type}/{id}", h.handleStream)
}

// handleHome serves the Stremio addon installation page.
func (h *Handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	host := r.Host
	manifestURL := fmt.Sprintf("%s://%s/stremio/manifest.json", scheme, host)
	stremioURL := fmt.Sprintf("stremio://%s/stremio/manifest.json", host)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Soluna - Stremio Addon</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #1a1a2e; color: #fff; text-align: center; padding: 4rem 1rem; }
        .install-btn { display: inline-block; background: #7b2cbf; color: #fff; padding: 1rem 2.5rem; border-radius: 50px; text-decoration: none; }
        .manifest-url { margin-top: 2rem; font-family: monospace; color: #58a6ff; word-break: break-all; }
        a.back-link { display: inline-block; margin-top: 2rem; color: #8892b0; }
    </style>
</head>
<body>
    <h1>Soluna</h1>
    <p>Browse and stream in Stremio</p>
    <a href="%s" class="install-btn">Install Addon</a>
    <p class="manifest-url">%s</p>
    <a href="/" class="back-link">Back</a>
</body>
</html>`, stremioURL, manifestURL)
}

// handleManifest returns the Stremio addon manifest.
func (h *Handlers) handleManifest(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, Manifest)
}

// handleCatalog lists a browse listing. The search extra takes priority over
// genre; with neither the trending listing is returned.
func (h *Handlers) handleCatalog(w http.ResponseWriter, r *http.Request) {
	catalogType := r.PathValue("type")
	id := strings.TrimSuffix(r.PathValue("id"), ".json")

	if catalogType != metaType || id != catalogID {
		h.jsonResponse(w, map[string][]Meta{"metas": {}})
		return
	}

	extra := parseExtra(r.PathValue("extra"))

	// Listings are a single page.
	if skip, _ := strconv.Atoi(extra.Get("skip")); skip > 0 {
		h.jsonResponse(w, map[string][]Meta{"metas": {}})
		return
	}

	keyword := extra.Get("search")
	if keyword == "" {
		keyword = extra.Get("genre")
	}

	var (
		results []types.SearchResult
		err     error
	)
	if keyword == "" {
		results, err = h.ctx.Source.Trending(r.Context())
	} else {
		results, err = h.ctx.Source.Search(r.Context(), keyword)
	}
	if err != nil {
		h.log.Error("catalog fetch failed", "keyword", keyword, "error", err)
		h.jsonResponse(w, map[string][]Meta{"metas": {}})
		return
	}

	metas := make([]Meta, 0, len(results))
	for _, res := range results {
		slug := urlutil.SlugFromVideoURL(res.Href)
		if slug == "" {
			continue
		}
		metas = append(metas, Meta{
			ID:     idPrefix + slug,
			Type:   metaType,
			Name:   res.Title,
			Poster: res.Image,
		})
	}

	h.log.Debug("returning catalog", "keyword", keyword, "count", len(metas))
	h.jsonResponse(w, map[string][]Meta{"metas": metas})
}

// handleMeta returns the series meta of a video with its franchise as videos.
func (h *Handlers) handleMeta(w http.ResponseWriter, r *http.Request) {
	slug, ok := h.parseID(r)
	if !ok {
		h.jsonResponse(w, map[string]any{"meta": nil})
		return
	}

	pageURL := urlutil.VideoURL(h.ctx.Config.SiteBaseURL, slug)

	details, err := h.ctx.Source.Details(r.Context(), pageURL)
	if err != nil {
		h.log.Warn("meta details failed", "slug", slug, "error", err)
		h.jsonResponse(w, map[string]any{"meta": nil})
		return
	}

	episodes, err := h.ctx.Source.Episodes(r.Context(), pageURL)
	if err != nil {
		h.log.Warn("meta episodes failed", "slug", slug, "error", err)
		episodes = []types.Episode{{Href: pageURL, Number: 1, Title: titleFromSlug(slug)}}
	}

	h.jsonResponse(w, map[string]Meta{"meta": h.toMeta(slug, pageURL, details, episodes)})
}

// handleStream returns one stream entry per quality, tallest first.
func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	slug, ok := h.parseID(r)
	if !ok {
		h.jsonResponse(w, map[string][]Stream{"streams": {}})
		return
	}

	pageURL := urlutil.VideoURL(h.ctx.Config.SiteBaseURL, slug)

	bundle, err := h.ctx.Source.Streams(r.Context(), pageURL)
	if err != nil {
		h.log.Warn("stream lookup failed", "slug", slug, "error", err)
		h.jsonResponseNoCache(w, map[string][]Stream{"streams": {}})
		return
	}

	pairs := bundle.Pairs()
	streams := make([]Stream, 0, len(pairs))
	for _, p := range pairs {
		streams = append(streams, Stream{Name: streamName, URL: p.URL, Title: p.Quality})
	}

	h.log.Debug("returning streams", "slug", slug, "count", len(streams))
	h.jsonResponseNoCache(w, map[string][]Stream{"streams": streams})
}

// parseID returns the slug of a "soluna:{slug}" id for the series type.
func (h *Handlers) parseID(r *http.Request) (string, bool) {
	if r.PathValue("type") != metaType {
		return "", false
	}
	id := strings.TrimSuffix(r.PathValue("id"), ".json")
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}
	slug, ok := strings.CutPrefix(id, idPrefix)
	if !ok || slug == "" || strings.ContainsAny(slug, "/?#") {
		return "", false
	}
	return slug, true
}

func (h *Handlers) toMeta(slug, pageURL string, d *types.Details, episodes []types.Episode) Meta {
	name := titleFromSlug(slug)
	poster := urlutil.CoverURL(h.ctx.Config.CDNBaseURL, slug)

	videos := make([]Video, 0, len(episodes))
	for _, ep := range episodes {
		if ep.Href == pageURL {
			name = ep.Title
		}
		epSlug := urlutil.SlugFromVideoURL(ep.Href)
		if epSlug == "" {
			continue
		}
		videos = append(videos, Video{
			ID:        idPrefix + epSlug,
			Title:     ep.Title,
			Season:    1,
			Episode:   ep.Number,
			Thumbnail: urlutil.CoverURL(h.ctx.Config.CDNBaseURL, epSlug),
		})
	}

	tags, brand := parseAliases(d.Aliases)
	description := d.Description
	if brand != "" {
		description += "\n\nBrand: " + brand
	}

	releaseInfo := strings.TrimPrefix(d.Airdate, "Released: ")
	if releaseInfo == "Unknown" {
		releaseInfo = ""
	}

	return Meta{
		ID:          idPrefix + slug,
		Type:        metaType,
		Name:        name,
		Poster:      poster,
		Background:  poster,
		Description: description,
		ReleaseInfo: releaseInfo,
		Genres:      tags,
		Videos:      videos,
	}
}

// titleFromSlug turns "some-show-1" into "Some Show 1".
func titleFromSlug(slug string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
}

// parseAliases splits the "Tags: ...\nBrand: ...\nViews: ..." detail block.
func parseAliases(aliases string) (tags []string, brand string) {
	for _, line := range strings.Split(aliases, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch key {
		case "Tags":
			if value == "" || value == "None" {
				continue
			}
			tags = strings.Split(value, ", ")
		case "Brand":
			if value != "Unknown" {
				brand = value
			}
		}
	}
	return tags, brand
}

// parseExtra decodes the "search=foo&skip=0.json" path segment.
func parseExtra(extra string) url.Values {
	values, err := url.ParseQuery(strings.TrimSuffix(extra, ".json"))
	if err != nil {
		return url.Values{}
	}
	return values
}

// jsonResponse writes a JSON response.
func (h *Handlers) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
	json.NewEncoder(w).Encode(data)
}

// jsonResponseNoCache writes a JSON response with no-cache headers.
func (h *Handlers) jsonResponseNoCache(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	json.NewEncoder(w).Encode(data)
}
