package icon

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DeclaredIcon parses an HTML page and returns the absolute url of the icon
// it declares with <link rel="icon">, preferring plain "icon" over
// "apple-touch-icon". Pages without a declaration fall back to /favicon.ico.
func DeclaredIcon(page []byte, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	var best, touch string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if best != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "link" {
			rel, href := attr(n, "rel"), attr(n, "href")
			if href != "" {
				for _, tok := range strings.Fields(strings.ToLower(rel)) {
					switch tok {
					case "icon":
						best = href
					case "apple-touch-icon":
						if touch == "" {
							touch = href
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	href := best
	if href == "" {
		href = touch
	}
	if href == "" {
		href = "/favicon.ico"
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
