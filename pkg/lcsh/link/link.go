// Package link renders term identifiers as HTML links to their detail pages.
package link

import (
	"bytes"
	"net/url"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultBase is the path prefix of term detail pages.
const DefaultBase = "/lcsh/"

// Href returns the detail page path for a term.
func Href(base, id string) string {
	return base + url.PathEscape(id)
}

// Terms renders ids as anchors separated by <br> elements.
func Terms(base string, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	for i, id := range ids {
		if i > 0 {
			if err := html.Render(&buf, &html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br}); err != nil {
				return "", err
			}
		}
		if err := html.Render(&buf, anchor(Href(base, id), id)); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func anchor(href, text string) *html.Node {
	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr:     []html.Attribute{{Key: "href", Val: href}},
	}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return a
}
