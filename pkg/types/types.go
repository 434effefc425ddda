// Package types defines the normalized records handed to the host.
package types

// SearchResult is one entry of a browse or search listing.
type SearchResult struct {
	Title string `json:"title"`
	Image string `json:"image"`
	Href  string `json:"href"`
}

// Details is the detail record for a single video page.
type Details struct {
	Description string `json:"description"`
	Aliases     string `json:"aliases"`
	Airdate     string `json:"airdate"`
}

// Episode is one playable entry of a franchise, or the video itself.
type Episode struct {
	Href   string `json:"href"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// StreamBundle carries stream URLs as a flat list of alternating
// quality label and URL: ["1080p", url, "720p", url, ...].
type StreamBundle struct {
	Streams   []string `json:"streams"`
	Subtitles string   `json:"subtitles"`
}

// Stream is one quality/URL pair of a StreamBundle.
type Stream struct {
	Quality string
	URL     string
}

// Pairs splits the flat stream list into quality/URL pairs.
// A trailing unpaired label is ignored.
func (b *StreamBundle) Pairs() []Stream {
	if b == nil {
		return nil
	}
	pairs := make([]Stream, 0, len(b.Streams)/2)
	for i := 0; i+1 < len(b.Streams); i += 2 {
		pairs = append(pairs, Stream{Quality: b.Streams[i], URL: b.Streams[i+1]})
	}
	return pairs
}

// Fallback records returned by the JSON forms when extraction fails.
var (
	ErrorDetails = Details{
		Description: "Error loading description",
		Aliases:     "Unknown",
		Airdate:     "Released: Unknown",
	}
)
