package video

import (
	"net/url"
	"regexp"
	"strings"

	"dropsum/internal/model"
)

// Platform describes one recognized video platform: the hostnames it
// serves from and the URL shapes its canonical video ID appears in.
type Platform struct {
	Name       string
	Hostnames  []string
	IDPatterns []*regexp.Regexp
}

// Registry holds the recognized platforms. Hostname matching ignores
// case, ports, and a leading "m." mobile prefix.
var Registry = []Platform{
	{
		Name: "youtube",
		Hostnames: []string{
			"youtube.com",
			"www.youtube.com",
			"youtu.be",
		},
		IDPatterns: []*regexp.Regexp{
			regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
			regexp.MustCompile(`^/embed/([A-Za-z0-9_-]{11})`),
			regexp.MustCompile(`^/shorts/([A-Za-z0-9_-]{11})`),
			regexp.MustCompile(`^/([A-Za-z0-9_-]{11})$`), // youtu.be short links
		},
	},
}

// Detection is the derived classification of one URL.
// Valid is true only when a canonical video ID could be extracted;
// a URL can match a platform hostname and still be invalid.
type Detection struct {
	Platform string
	VideoID  string
	Valid    bool
}

// Classify matches a URL against the platform registry.
// Malformed URLs never error, they are simply not videos.
func Classify(rawURL string) (Detection, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Detection{}, false
	}
	if u.Host == "" {
		// Scheme-less links like "youtube.com/watch?v=..." do appear
		// in bookmark exports.
		u, err = url.Parse("https://" + rawURL)
		if err != nil {
			return Detection{}, false
		}
	}

	host := normalizeHost(u.Host)
	if host == "" {
		return Detection{}, false
	}

	for _, p := range Registry {
		if !p.matchesHost(host) {
			continue
		}
		det := Detection{Platform: p.Name}
		if id := p.extractID(u); id != "" {
			det.VideoID = id
			det.Valid = true
		}
		return det, true
	}

	return Detection{}, false
}

// ExtractID returns the canonical video ID for a URL, or "" when the
// URL is not a recognized video URL or fails the ID grammar.
func ExtractID(rawURL string) string {
	det, ok := Classify(rawURL)
	if !ok {
		return ""
	}
	return det.VideoID
}

// FilterCandidates keeps only items whose link classifies as a video.
func FilterCandidates(items []model.BookmarkItem) []model.BookmarkItem {
	var result []model.BookmarkItem
	for _, item := range items {
		if _, ok := Classify(item.Link); ok {
			result = append(result, item)
		}
	}
	return result
}

// PlatformBreakdown counts video candidates per platform, including
// hostname matches that failed the ID grammar.
func PlatformBreakdown(items []model.BookmarkItem) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		if det, ok := Classify(item.Link); ok {
			counts[det.Platform]++
		}
	}
	return counts
}

func (p Platform) matchesHost(host string) bool {
	for _, h := range p.Hostnames {
		if host == h {
			return true
		}
	}
	return false
}

func (p Platform) extractID(u *url.URL) string {
	// Patterns match against path first, then the full request URI so
	// query-parameter shapes like watch?v= are covered.
	targets := []string{u.Path, u.RequestURI()}
	for _, pat := range p.IDPatterns {
		for _, target := range targets {
			if m := pat.FindStringSubmatch(target); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

// normalizeHost lowercases the host, strips any port, and folds the
// mobile "m." prefix into the canonical hostname.
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "m.")
	return host
}
