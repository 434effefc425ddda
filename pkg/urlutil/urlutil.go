// Package urlutil builds and inspects site URLs.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`[\s\p{Z}]+`)

// Browse listings that bypass tag lookup.
const (
	ListingTrending = "trending"
	ListingRandom   = "random"
)

const videoPathPrefix = "/videos/hentai/"

// Slugify lowercases and trims a keyword and joins words with hyphens.
func Slugify(keyword string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(keyword)), "-")
}

// BrowseURL maps a slug to the listing page that serves it. "trending",
// "recent" and "latest" share the trending listing.
func BrowseURL(siteBase, slug string) string {
	switch slug {
	case "trending", "recent", "latest":
		return siteBase + "/browse/" + ListingTrending
	case ListingRandom:
		return siteBase + "/browse/" + ListingRandom
	default:
		return siteBase + "/browse/tags/" + slug
	}
}

// VideoURL returns the page URL of a video slug.
func VideoURL(siteBase, slug string) string {
	return siteBase + videoPathPrefix + slug
}

// CoverURL returns the CDN cover image for a slug.
func CoverURL(cdnBase, slug string) string {
	return cdnBase + "/images/covers/" + slug + "-cv1.png"
}

// SlugFromVideoURL returns the slug of a video page URL, or "" when the
// URL is not a video page.
func SlugFromVideoURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	slug, ok := strings.CutPrefix(parsed.Path, videoPathPrefix)
	if !ok {
		return ""
	}
	slug = strings.Trim(slug, "/")
	if slug == "" || strings.Contains(slug, "/") {
		return ""
	}
	return slug
}

// SameHost reports whether urlStr is an http(s) URL on the host of siteBase.
func SameHost(siteBase, urlStr string) bool {
	target, err := url.Parse(urlStr)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		return false
	}
	base, err := url.Parse(siteBase)
	if err != nil {
		return false
	}
	return strings.EqualFold(target.Host, base.Host)
}

// GetSchemeHost extracts scheme://host from a URL.
func GetSchemeHost(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
