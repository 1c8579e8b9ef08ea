package sessionstore

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// pageTitle parses the markup and returns the text of the first <title>
// element, whitespace-collapsed and capped at 200 characters. Returns ""
// on unparsable markup or a missing title.
func pageTitle(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	node := findTitle(doc)
	if node == nil {
		return ""
	}
	var sb strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	title := strings.Join(strings.Fields(sb.String()), " ")
	if len([]rune(title)) > 200 {
		title = string([]rune(title)[:200])
	}
	return title
}

func findTitle(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTitle(c); found != nil {
			return found
		}
	}
	return nil
}
