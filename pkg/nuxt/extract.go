package nuxt

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrPayloadNotFound means the page carries no window.__NUXT__ assignment.
	ErrPayloadNotFound = errors.New("nuxt: payload not found")
	// ErrMalformedPayload means the assignment was found but is not JSON.
	ErrMalformedPayload = errors.New("nuxt: malformed payload")
	// ErrNoData means the payload has an empty data array.
	ErrNoData = errors.New("nuxt: payload has no data")
)

const marker = "window.__NUXT__"

var payloadRe = regexp.MustCompile(`(?s)window\.__NUXT__\s*=\s*(\{.+?\});?\s*</script>`)

// Extract finds and decodes the NUXT payload of a page.
//
// The inline regex is tried first. When it finds nothing, or what it finds
// does not decode, every <script> element is scanned for the assignment and
// the first JSON value after it is decoded with a streaming decoder, which
// tolerates statements that follow the object in the same script.
func Extract(html string) (*Payload, error) {
	var regexErr error
	if m := payloadRe.FindStringSubmatch(html); len(m) > 1 {
		var p Payload
		err := json.Unmarshal([]byte(m[1]), &p)
		if err == nil {
			return &p, nil
		}
		regexErr = err
	}

	p, err := extractFromScripts(html)
	if err == nil {
		return p, nil
	}
	if regexErr != nil && errors.Is(err, ErrPayloadNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, regexErr)
	}
	return nil, err
}

// ExtractPage returns the first data entry of the page payload.
func ExtractPage(html string) (*PageData, error) {
	p, err := Extract(html)
	if err != nil {
		return nil, err
	}
	return p.Page()
}

// Page returns the first data entry.
func (p *Payload) Page() (*PageData, error) {
	if p == nil || len(p.Data) == 0 {
		return nil, ErrNoData
	}
	return &p.Data[0], nil
}

func extractFromScripts(html string) (*Payload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		found   *Payload
		lastErr error
		seen    bool
	)
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, marker)
		if idx < 0 {
			return true
		}
		seen = true

		rest := strings.TrimSpace(text[idx+len(marker):])
		if !strings.HasPrefix(rest, "=") {
			return true
		}

		var p Payload
		if err := json.NewDecoder(strings.NewReader(rest[1:])).Decode(&p); err != nil {
			lastErr = err
			return true
		}
		found = &p
		return false
	})

	switch {
	case found != nil:
		return found, nil
	case seen && lastErr != nil:
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, lastErr)
	default:
		return nil, ErrPayloadNotFound
	}
}
