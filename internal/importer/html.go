package importer

import (
	"hash/fnv"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"dropsum/internal/model"
)

// ParseHTMLBookmarks parses a Netscape bookmark HTML export into
// candidate items for the pipeline, an alternate candidate source
// next to the live API. Synthetic negative source IDs (derived from
// the URL) keep imported items out of the API's ID space while still
// giving the dedup filter a stable key.
func ParseHTMLBookmarks(r io.Reader) ([]model.BookmarkItem, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var items []model.BookmarkItem

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
			href := getAttr(n, "href")
			if href == "" {
				// Skip bookmarks without URL
				return
			}

			title := getTextContent(n)
			if title == "" {
				title = href // fallback to URL as title
			}

			// Parse ADD_DATE timestamp
			created := time.Now()
			if addDate := getAttr(n, "add_date"); addDate != "" {
				if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil {
					created = time.Unix(ts, 0)
				}
			}

			// Some browsers carry a TAGS attribute (comma-separated).
			var tags []string
			if raw := getAttr(n, "tags"); raw != "" {
				for _, t := range strings.Split(raw, ",") {
					if t = strings.TrimSpace(t); t != "" {
						tags = append(tags, t)
					}
				}
			}

			items = append(items, model.BookmarkItem{
				ID:      syntheticID(href),
				Title:   title,
				Link:    href,
				Tags:    tags,
				Created: created,
				Type:    "link",
			})
			return // Don't recurse into A
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return items, nil
}

// syntheticID derives a stable negative ID from the URL.
func syntheticID(url string) int64 {
	h := fnv.New64a()
	h.Write([]byte(url))
	id := int64(h.Sum64() & 0x7fffffffffffffff)
	return -id
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
