package locator

import (
	"strings"

	"golang.org/x/net/html"
)

// AttrVal returns the value of the named attribute on an element node, or "".
func AttrVal(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// TagName returns the lowercase tag of an element node, or "".
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// collapseSpace trims and collapses all interior whitespace runs to single
// spaces, so text comparison is layout-independent.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NodeText returns the collapsed text content of the node and all
// descendants.
func NodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	if n != nil {
		walk(n)
	}
	return collapseSpace(b.String())
}

// NodeContains reports whether n is anc or a descendant of anc.
func NodeContains(anc, n *html.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if c == anc {
			return true
		}
	}
	return false
}

// elementParent returns the nearest element ancestor of n, or nil.
func elementParent(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// sameTagOrdinal returns the 1-based position of n among element siblings
// with the same tag, i.e. the value usable in an :nth-of-type() selector.
func sameTagOrdinal(n *html.Node) int {
	tag := TagName(n)
	ord := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && TagName(s) == tag {
			ord++
		}
	}
	return ord
}

// escapeAttr escapes a value for use inside a double-quoted CSS attribute
// selector.
func escapeAttr(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}
