// Package api provides HTTP handlers for the content API.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ngodn/soluna/pkg/appctx"
	"github.com/ngodn/soluna/pkg/logging"
	"github.com/ngodn/soluna/pkg/urlutil"
)

const version = "1.0.0"

// ipLookupURL reports the egress address of the outbound client.
const ipLookupURL = "https://api.ipify.org"

// Handlers contains all API handlers.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /api/info", h.handleAPIInfo)
	mux.HandleFunc("GET /favicon.ico", h.handleFavicon)
	mux.HandleFunc("GET /api/ip", h.handleIP)

	// Content routes
	mux.HandleFunc("GET /api/search", h.handleSearch)
	mux.HandleFunc("GET /api/trending", h.handleTrending)
	mux.HandleFunc("GET /api/details", h.handleDetails)
	mux.HandleFunc("GET /api/episodes", h.handleEpisodes)
	mux.HandleFunc("GET /api/stream", h.handleStream)
}

// handleIndex serves a plain endpoint listing.
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	stremioLink := ""
	if h.ctx.Config.StremioEnabled {
		stremioLink = `
        <p><a href="/stremio">Install the Stremio addon</a></p>`
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Soluna</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #0f0f0f; color: #fff; max-width: 720px; margin: 0 auto; padding: 40px 20px; }
        code { background: #242424; padding: 2px 6px; border-radius: 4px; }
        li { margin-bottom: 8px; }
        a { color: #3b82f6; }
    </style>
</head>
<body>
    <h1>Soluna</h1>
    <p>Source: %s</p>
    <ul>
        <li><code>GET /api/search?q=...</code> search by tag or listing</li>
        <li><code>GET /api/trending</code> trending videos</li>
        <li><code>GET /api/details?url=...</code> video details</li>
        <li><code>GET /api/episodes?url=...</code> franchise episodes</li>
        <li><code>GET /api/stream?url=...</code> stream URLs</li>
        <li><code>GET /api/info</code> server status</li>
    </ul>%s
</body>
</html>`, h.ctx.Config.SiteBaseURL, stremioLink)
}

// handleAPIInfo returns server status as JSON.
func (h *Handlers) handleAPIInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "running",
		"version": version,
		"site":    h.ctx.Config.SiteBaseURL,
		"stremio": h.ctx.Config.StremioEnabled,
	})
}

// handleFavicon serves the favicon.
func (h *Handlers) handleFavicon(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

// handleIP returns the egress IP seen through the outbound client, which
// reflects any configured proxy routing.
func (h *Handlers) handleIP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.HTTPClient == nil {
		h.writeError(w, http.StatusServiceUnavailable, "http client not configured")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, ipLookupURL, nil)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to build request")
		return
	}

	resp, err := h.ctx.HTTPClient.Do(req)
	if err != nil {
		h.log.Warn("ip lookup failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "failed to get IP")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.log.Warn("ip lookup returned error status", "status", resp.StatusCode)
		h.writeError(w, http.StatusBadGateway, "failed to get IP")
		return
	}

	ip, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		h.log.Warn("ip lookup read failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "failed to get IP")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"ip": strings.TrimSpace(string(ip))})
}

func (h *Handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		h.writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}

	h.log.Debug("search request", "keyword", keyword)
	h.writeRawJSON(w, h.ctx.Source.SearchJSON(r.Context(), keyword))
}

func (h *Handlers) handleTrending(w http.ResponseWriter, r *http.Request) {
	h.writeRawJSON(w, h.ctx.Source.TrendingJSON(r.Context()))
}

func (h *Handlers) handleDetails(w http.ResponseWriter, r *http.Request) {
	pageURL, ok := h.pageURL(w, r)
	if !ok {
		return
	}
	h.writeRawJSON(w, h.ctx.Source.DetailsJSON(r.Context(), pageURL))
}

func (h *Handlers) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	pageURL, ok := h.pageURL(w, r)
	if !ok {
		return
	}
	h.writeRawJSON(w, h.ctx.Source.EpisodesJSON(r.Context(), pageURL))
}

func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	pageURL, ok := h.pageURL(w, r)
	if !ok {
		return
	}
	h.writeRawJSON(w, h.ctx.Source.StreamJSON(r.Context(), pageURL))
}

// pageURL reads the url parameter and checks it points at the site.
// On failure it writes a 400 and returns false.
func (h *Handlers) pageURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return "", false
	}
	if !urlutil.SameHost(h.ctx.Config.SiteBaseURL, pageURL) {
		h.log.Warn("rejected foreign url", "url", pageURL)
		h.writeError(w, http.StatusBadRequest, "url must be a page on "+h.ctx.Config.SiteBaseURL)
		return "", false
	}
	return pageURL, true
}

// Helper methods

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeRawJSON writes an already encoded JSON document.
func (h *Handlers) writeRawJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}
