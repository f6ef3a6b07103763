package addic7ed

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"subfetch/internal/providers/scrape"
)

// showLinks matches anchors pointing at /show/<id> whose parent satisfies parent.
func showLinks(root *html.Node, parent func(*html.Node) bool) []*html.Node {
	return scrape.FindAll(root, func(n *html.Node) bool {
		return n.DataAtom == atom.A &&
			strings.HasPrefix(scrape.Attr(n, "href"), "/show/") &&
			n.Parent != nil && parent(n.Parent)
	})
}
