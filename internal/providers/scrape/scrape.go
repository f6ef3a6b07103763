// Package scrape holds the small HTML tree queries the scraping providers
// share.
package scrape

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr returns the value of the attribute key, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether n carries every one of classes.
func HasClass(n *html.Node, classes ...string) bool {
	have := strings.Fields(Attr(n, "class"))
	for _, want := range classes {
		if !slices.Contains(have, want) {
			return false
		}
	}
	return true
}

// Is matches elements with the given tag and classes.
func Is(tag atom.Atom, classes ...string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.DataAtom == tag && HasClass(n, classes...)
	}
}

// FindAll returns every element below root for which match reports true, in
// document order.
func FindAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return out
}

// Find returns the first element below root matching match, or nil.
func Find(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	if found := FindAll(root, match); len(found) > 0 {
		return found[0]
	}
	return nil
}

// Children returns the direct element children of n with the given tag.
func Children(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.DataAtom == tag {
			out = append(out, child)
		}
	}
	return out
}

// First returns the first descendant of n with the given tag.
func First(n *html.Node, tag atom.Atom) *html.Node {
	return Find(n, func(c *html.Node) bool { return c.DataAtom == tag })
}

// Text concatenates the text below n with whitespace collapsed.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
