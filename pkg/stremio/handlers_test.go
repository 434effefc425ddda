package stremio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngodn/soluna/pkg/appctx"
	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/logging"
	"github.com/ngodn/soluna/pkg/types"
)

const (
	testSite = "https://hanime.test"
	testCDN  = "https://cdn.test"
)

type fakeSource struct {
	searched   []string
	trending   int
	results    []types.SearchResult
	listErr    error
	details    *types.Details
	detailsErr error
	episodes   []types.Episode
	episodeErr error
	bundle     *types.StreamBundle
	streamErr  error
	pageURLs   []string
}

func (f *fakeSource) Search(ctx context.Context, keyword string) ([]types.SearchResult, error) {
	f.searched = append(f.searched, keyword)
	return f.results, f.listErr
}

func (f *fakeSource) Trending(ctx context.Context) ([]types.SearchResult, error) {
	f.trending++
	return f.results, f.listErr
}

func (f *fakeSource) Details(ctx context.Context, pageURL string) (*types.Details, error) {
	f.pageURLs = append(f.pageURLs, pageURL)
	return f.details, f.detailsErr
}

func (f *fakeSource) Episodes(ctx context.Context, pageURL string) ([]types.Episode, error) {
	return f.episodes, f.episodeErr
}

func (f *fakeSource) Streams(ctx context.Context, pageURL string) (*types.StreamBundle, error) {
	f.pageURLs = append(f.pageURLs, pageURL)
	return f.bundle, f.streamErr
}

func (f *fakeSource) SearchJSON(ctx context.Context, keyword string) string   { return "[]" }
func (f *fakeSource) TrendingJSON(ctx context.Context) string                 { return "[]" }
func (f *fakeSource) DetailsJSON(ctx context.Context, pageURL string) string  { return "[]" }
func (f *fakeSource) EpisodesJSON(ctx context.Context, pageURL string) string { return "[]" }
func (f *fakeSource) StreamJSON(ctx context.Context, pageURL string) string   { return "null" }

func newTestMux(src *fakeSource) *http.ServeMux {
	cfg := &config.Config{SiteBaseURL: testSite, CDNBaseURL: testCDN, StremioEnabled: true}
	ctx := appctx.New(cfg, logging.Discard()).WithSource(src)

	mux := http.NewServeMux()
	NewHandlers(ctx).RegisterRoutes(mux)
	return mux
}

func get(t *testing.T, mux *http.ServeMux, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func listing() []types.SearchResult {
	return []types.SearchResult{
		{Title: "Show 1", Image: testCDN + "/show-1.png", Href: testSite + "/videos/hentai/show-1"},
		{Title: "Untitled", Image: "", Href: ""},
	}
}

func TestManifest(t *testing.T) {
	mux := newTestMux(&fakeSource{})

	var manifest map[string]any
	get(t, mux, "/stremio/manifest.json", &manifest)

	assert.Equal(t, "org.soluna.addon", manifest["id"])
	assert.Equal(t, []any{"soluna:"}, manifest["idPrefixes"])
	assert.Equal(t, []any{"series"}, manifest["types"])
}

func TestCatalog_DefaultIsTrending(t *testing.T) {
	src := &fakeSource{results: listing()}
	mux := newTestMux(src)

	var resp struct {
		Metas []Meta `json:"metas"`
	}
	get(t, mux, "/stremio/catalog/series/soluna-browse.json", &resp)

	assert.Equal(t, 1, src.trending)
	assert.Empty(t, src.searched)
	require.Len(t, resp.Metas, 1)
	assert.Equal(t, Meta{
		ID:     "soluna:show-1",
		Type:   "series",
		Name:   "Show 1",
		Poster: testCDN + "/show-1.png",
	}, resp.Metas[0])
}

func TestCatalog_Extras(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		want  string
	}{
		{"search", "search=school%20girl.json", "school girl"},
		{"genre", "genre=Romance.json", "Romance"},
		{"search wins over genre", "genre=Romance&search=maid.json", "maid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{results: listing()}
			mux := newTestMux(src)

			get(t, mux, "/stremio/catalog/series/soluna-browse/"+tt.extra, nil)

			assert.Equal(t, []string{tt.want}, src.searched)
			assert.Zero(t, src.trending)
		})
	}
}

func TestCatalog_EmptyCases(t *testing.T) {
	tests := []struct {
		name   string
		target string
		src    *fakeSource
	}{
		{"wrong type", "/stremio/catalog/movie/soluna-browse.json", &fakeSource{results: listing()}},
		{"wrong id", "/stremio/catalog/series/other.json", &fakeSource{results: listing()}},
		{"next page", "/stremio/catalog/series/soluna-browse/skip=100.json", &fakeSource{results: listing()}},
		{"source error", "/stremio/catalog/series/soluna-browse.json", &fakeSource{listErr: errors.New("down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(tt.src)

			w := get(t, mux, tt.target, nil)
			assert.JSONEq(t, `{"metas":[]}`, w.Body.String())
		})
	}
}

func TestMeta_Franchise(t *testing.T) {
	src := &fakeSource{
		details: &types.Details{
			Description: "A story",
			Aliases:     "Tags: comedy, romance\nBrand: Studio X\nViews: 1,234",
			Airdate:     "Released: 1/1/2021",
		},
		episodes: []types.Episode{
			{Href: testSite + "/videos/hentai/show-1", Number: 1, Title: "Show 1"},
			{Href: testSite + "/videos/hentai/show-2", Number: 2, Title: "Show 2"},
		},
	}
	mux := newTestMux(src)

	var resp struct {
		Meta Meta `json:"meta"`
	}
	get(t, mux, "/stremio/meta/series/soluna:show-1.json", &resp)

	assert.Equal(t, []string{testSite + "/videos/hentai/show-1"}, src.pageURLs)

	m := resp.Meta
	assert.Equal(t, "soluna:show-1", m.ID)
	assert.Equal(t, "Show 1", m.Name)
	assert.Equal(t, testCDN+"/images/covers/show-1-cv1.png", m.Poster)
	assert.Equal(t, "A story\n\nBrand: Studio X", m.Description)
	assert.Equal(t, "1/1/2021", m.ReleaseInfo)
	assert.Equal(t, []string{"comedy", "romance"}, m.Genres)
	require.Len(t, m.Videos, 2)
	assert.Equal(t, Video{
		ID:        "soluna:show-2",
		Title:     "Show 2",
		Season:    1,
		Episode:   2,
		Thumbnail: testCDN + "/images/covers/show-2-cv1.png",
	}, m.Videos[1])
}

func TestMeta_EpisodesFailureKeepsSingleVideo(t *testing.T) {
	src := &fakeSource{
		details: &types.Details{
			Description: "No description available",
			Aliases:     "Tags: None\nBrand: Unknown\nViews: 0",
			Airdate:     "Released: Unknown",
		},
		episodeErr: errors.New("boom"),
	}
	mux := newTestMux(src)

	var resp struct {
		Meta Meta `json:"meta"`
	}
	get(t, mux, "/stremio/meta/series/soluna:solo-1.json", &resp)

	assert.Equal(t, "Solo 1", resp.Meta.Name)
	assert.Equal(t, "No description available", resp.Meta.Description)
	assert.Empty(t, resp.Meta.ReleaseInfo)
	assert.Empty(t, resp.Meta.Genres)
	require.Len(t, resp.Meta.Videos, 1)
	assert.Equal(t, "soluna:solo-1", resp.Meta.Videos[0].ID)
}

func TestMeta_NullCases(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"foreign prefix", "/stremio/meta/series/tt123.json"},
		{"wrong type", "/stremio/meta/movie/soluna:show-1.json"},
		{"empty slug", "/stremio/meta/series/soluna:.json"},
		{"details failure", "/stremio/meta/series/soluna:show-1.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(&fakeSource{detailsErr: errors.New("down")})

			w := get(t, mux, tt.target, nil)
			assert.JSONEq(t, `{"meta":null}`, w.Body.String())
		})
	}
}

func TestStream(t *testing.T) {
	src := &fakeSource{bundle: &types.StreamBundle{
		Streams: []string{"720p", "https://stream.test/720.m3u8", "480p", "https://stream.test/480.m3u8"},
	}}
	mux := newTestMux(src)

	var resp struct {
		Streams []Stream `json:"streams"`
	}
	w := get(t, mux, "/stremio/stream/series/soluna:show-1.json", &resp)

	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, []string{testSite + "/videos/hentai/show-1"}, src.pageURLs)
	assert.Equal(t, []Stream{
		{Name: "Soluna", URL: "https://stream.test/720.m3u8", Title: "720p"},
		{Name: "Soluna", URL: "https://stream.test/480.m3u8", Title: "480p"},
	}, resp.Streams)
}

func TestStream_Unavailable(t *testing.T) {
	mux := newTestMux(&fakeSource{streamErr: errors.New("no video streams found")})

	w := get(t, mux, "/stremio/stream/series/soluna:show-1.json", nil)
	assert.JSONEq(t, `{"streams":[]}`, w.Body.String())

	w = get(t, mux, "/stremio/stream/series/other:show-1.json", nil)
	assert.JSONEq(t, `{"streams":[]}`, w.Body.String())
}

func TestParseAliases(t *testing.T) {
	tags, brand := parseAliases("Tags: a, b c\nBrand: B\nViews: 1")
	assert.Equal(t, []string{"a", "b c"}, tags)
	assert.Equal(t, "B", brand)

	tags, brand = parseAliases("Unknown")
	assert.Nil(t, tags)
	assert.Empty(t, brand)

	tags, _ = parseAliases("Tags: \nBrand: Unknown\nViews: 0")
	assert.Nil(t, tags)
}

func TestTitleFromSlug(t *testing.T) {
	assert.Equal(t, "Some Show 2", titleFromSlug("some-show-2"))
	assert.Equal(t, "Solo", titleFromSlug("solo"))
}

func TestHome(t *testing.T) {
	mux := newTestMux(&fakeSource{})

	w := get(t, mux, "/stremio", nil)
	assert.Contains(t, w.Body.String(), "stremio://example.com/stremio/manifest.json")
}
