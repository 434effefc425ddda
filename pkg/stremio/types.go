// Package stremio exposes the content source as a Stremio addon.
package stremio

const (
	idPrefix   = "soluna:"
	catalogID  = "soluna-browse"
	metaType   = "series"
	streamName = "Soluna"
)

// genres are offered as catalog filters; each maps to a browse listing or tag.
var genres = []string{
	"Trending",
	"Recent",
	"Random",
	"Comedy",
	"Fantasy",
	"Romance",
	"School Girl",
	"Vanilla",
}

// Manifest is the Stremio addon manifest.
var Manifest = map[string]any{
	"id":          "org.soluna.addon",
	"version":     "1.0.0",
	"name":        "Soluna",
	"description": "Browse, search and stream from hanime.tv",
	"resources":   []string{"catalog", "meta", "stream"},
	"types":       []string{metaType},
	"catalogs": []map[string]any{
		{
			"type": metaType,
			"id":   catalogID,
			"name": "Soluna",
			"extra": []map[string]any{
				{
					"name":       "genre",
					"isRequired": false,
					"options":    genres,
				},
				{
					"name":       "search",
					"isRequired": false,
				},
				{
					"name":       "skip",
					"isRequired": false,
				},
			},
		},
	},
	"idPrefixes": []string{idPrefix},
}

// Meta represents a Stremio catalog item or full meta object.
type Meta struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Videos      []Video  `json:"videos,omitempty"`
}

// Video is one episode of a series meta.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Stream represents a Stremio stream item.
type Stream struct {
	Name  string `json:"name,omitempty"`
	URL   string `json:"url"`
	Title string `json:"title"`
}
