// Package nuxt locates and decodes the window.__NUXT__ state blob that the
// site embeds in every server-rendered page.
package nuxt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Payload is the decoded window.__NUXT__ object. Only the fields the
// source reads are modelled.
type Payload struct {
	Data []PageData `json:"data"`
}

// PageData is one entry of Payload.Data. Browse pages fill HentaiVideos,
// video pages fill HentaiVideo and VideosManifest.
type PageData struct {
	HentaiVideos   []VideoSummary `json:"hentai_videos"`
	HentaiVideo    *Video         `json:"hentai_video"`
	VideosManifest *Manifest      `json:"videos_manifest"`
}

// VideoSummary is a listing entry.
type VideoSummary struct {
	ID       Int    `json:"id"`
	Name     String `json:"name"`
	Slug     String `json:"slug"`
	CoverURL String `json:"cover_url"`
}

// Video is the full record of a video page.
type Video struct {
	ID             Int            `json:"id"`
	Name           String         `json:"name"`
	Slug           String         `json:"slug"`
	Description    String         `json:"description"`
	Views          Int            `json:"views"`
	ReleasedAtUnix Int            `json:"released_at_unix"`
	CoverURL       String         `json:"cover_url"`
	Brand          *Brand         `json:"brand"`
	Tags           []Tag          `json:"hentai_tags"`
	Franchise      []VideoSummary `json:"hentai_franchise_hentai_videos"`
}

// Brand is the producing studio.
type Brand struct {
	Title String `json:"title"`
	Slug  String `json:"slug"`
}

// Tag is a content tag.
type Tag struct {
	ID   Int    `json:"id"`
	Text String `json:"text"`
}

// Manifest lists the stream servers of a video.
type Manifest struct {
	Servers []Server `json:"servers"`
}

// Server is one mirror with its encodes.
type Server struct {
	Name    String   `json:"name"`
	Slug    String   `json:"slug"`
	Streams []Stream `json:"streams"`
}

// Stream is one encode. The site serves height as a string ("720").
type Stream struct {
	Height    Int    `json:"height"`
	Width     Int    `json:"width"`
	URL       String `json:"url"`
	Extension String `json:"extension"`
	MimeType  String `json:"mime_type"`
}

// String decodes JSON strings, numbers and null into a string. Booleans,
// objects and arrays decode to "" so one odd field never discards a page.
type String string

// UnmarshalJSON implements json.Unmarshaler.
func (s *String) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*s = ""
	if len(b) == 0 {
		return nil
	}

	switch c := b[0]; {
	case c == '"':
		var v string
		if err := json.Unmarshal(b, &v); err == nil {
			*s = String(v)
		}
	case c == '-' || (c >= '0' && c <= '9'):
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			*s = String(strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	return nil
}

// Int decodes JSON numbers, numeric strings and null into an int64.
// Anything unparseable decodes to zero, mirroring how the page's own
// scripts coerce these fields.
type Int int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			*n = 0
			return nil
		}
		s = strings.TrimSpace(unquoted)
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Int(i)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = Int(f)
		return nil
	}
	*n = 0
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Int) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(n))
}
