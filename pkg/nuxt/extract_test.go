package nuxt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const browsePage = `<!doctype html><html><head><title>Browse</title></head><body>
<div id="__nuxt"></div>
<script>window.__NUXT__={"layout":"default","data":[{"hentai_videos":[
{"id":1,"name":"First","slug":"first-1","cover_url":"https://cdn/first.png"},
{"id":"2","name":"Second","slug":"second-1","cover_url":""}]}]};</script>
<script src="/app.js"></script>
</body></html>`

func TestExtract_Regex(t *testing.T) {
	page, err := ExtractPage(browsePage)
	require.NoError(t, err)
	require.Len(t, page.HentaiVideos, 2)

	assert.Equal(t, String("First"), page.HentaiVideos[0].Name)
	assert.Equal(t, String("first-1"), page.HentaiVideos[0].Slug)
	assert.Equal(t, Int(2), page.HentaiVideos[1].ID)
	assert.Nil(t, page.HentaiVideo)
	assert.Nil(t, page.VideosManifest)
}

func TestExtract_NoSemicolonAndWhitespace(t *testing.T) {
	html := "<script>\n  window.__NUXT__ =\n {\"data\":[{\"hentai_videos\":[]}]}\n</script>"

	page, err := ExtractPage(html)
	require.NoError(t, err)
	assert.NotNil(t, page.HentaiVideos)
	assert.Empty(t, page.HentaiVideos)
}

func TestExtract_ScriptFallbackWithTrailingStatements(t *testing.T) {
	// The regex stops at the first "}" followed by </script>, which here is
	// inside a trailing statement, so decoding falls through to the scanner.
	html := `<script>window.__NUXT__={"data":[{"hentai_video":{"name":"Solo","slug":"solo-1"}}]};window.__READY__=function(){return {}}</script>`

	page, err := ExtractPage(html)
	require.NoError(t, err)
	require.NotNil(t, page.HentaiVideo)
	assert.Equal(t, String("Solo"), page.HentaiVideo.Name)
}

func TestExtract_NotFound(t *testing.T) {
	_, err := Extract(`<html><body><script>var x = 1;</script></body></html>`)
	assert.ErrorIs(t, err, ErrPayloadNotFound)
}

func TestExtract_Malformed(t *testing.T) {
	html := `<script>window.__NUXT__=(function(a,b){return {data:[a]}}(1,2));</script>`

	_, err := Extract(html)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestExtract_MalformedObject(t *testing.T) {
	html := `<script>window.__NUXT__={data:[{}]};</script>`

	_, err := Extract(html)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestPayload_PageNoData(t *testing.T) {
	_, err := ExtractPage(`<script>window.__NUXT__={"data":[]};</script>`)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = ExtractPage(`<script>window.__NUXT__={"state":{}};</script>`)
	assert.ErrorIs(t, err, ErrNoData)

	var nilPayload *Payload
	_, err = nilPayload.Page()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestExtract_VideoPage(t *testing.T) {
	html := `<script>window.__NUXT__={"data":[{
"hentai_video":{"name":"Ep 1","slug":"show-1","description":"<p>desc</p>","views":1234567,
"released_at_unix":1609459200,"brand":{"title":"Studio"},
"hentai_tags":[{"id":1,"text":"tag a"},{"id":2,"text":"tag b"}],
"hentai_franchise_hentai_videos":[{"name":"Ep 1","slug":"show-1"},{"name":"Ep 2","slug":"show-2"}]},
"videos_manifest":{"servers":[{"name":"Main","streams":[{"height":"720","url":"https://s/720.m3u8"},{"height":480,"url":""}]}]}
}]};</script>`

	page, err := ExtractPage(html)
	require.NoError(t, err)

	v := page.HentaiVideo
	require.NotNil(t, v)
	assert.Equal(t, Int(1234567), v.Views)
	assert.Equal(t, Int(1609459200), v.ReleasedAtUnix)
	require.NotNil(t, v.Brand)
	assert.Equal(t, String("Studio"), v.Brand.Title)
	assert.Len(t, v.Tags, 2)
	assert.Len(t, v.Franchise, 2)

	require.NotNil(t, page.VideosManifest)
	streams := page.VideosManifest.Servers[0].Streams
	assert.Equal(t, Int(720), streams[0].Height)
	assert.Equal(t, Int(480), streams[1].Height)
}

func TestInt_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Int
	}{
		{`720`, 720},
		{`"1080"`, 1080},
		{`" 480 "`, 480},
		{`null`, 0},
		{`""`, 0},
		{`"abc"`, 0},
		{`12.9`, 12},
		{`true`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n Int
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestString_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want String
	}{
		{`"Show 1"`, "Show 1"},
		{`"<p>a &amp; b</p>"`, "<p>a &amp; b</p>"},
		{`7`, "7"},
		{`-2.5`, "-2.5"},
		{`null`, ""},
		{`false`, ""},
		{`true`, ""},
		{`{"a":1}`, ""},
		{`["x"]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s String
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestPayload_OffTypeFieldsKeepPage(t *testing.T) {
	html := `<script>window.__NUXT__={"data":[{"hentai_videos":[
{"id":1,"name":7,"slug":"seven-1","cover_url":false},
{"id":2,"name":"Two","slug":"two-1","cover_url":{"x":1}}]}]};</script>`

	page, err := ExtractPage(html)
	require.NoError(t, err)
	require.Len(t, page.HentaiVideos, 2)
	assert.Equal(t, String("7"), page.HentaiVideos[0].Name)
	assert.Equal(t, String(""), page.HentaiVideos[0].CoverURL)
	assert.Equal(t, String("Two"), page.HentaiVideos[1].Name)
	assert.Equal(t, String(""), page.HentaiVideos[1].CoverURL)
}
