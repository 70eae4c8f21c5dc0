package locator

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Synthesizer builds a Locator from a concrete interacted-with element at
// record time. Synthesis never fails: the worst case is a Locator with only
// a structural path and a generic description.
type Synthesizer struct {
	// MeaningfulClass filters class names used in structural selectors.
	MeaningfulClass ClassPredicate
}

// NewSynthesizer returns a Synthesizer with the stock class predicate.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{MeaningfulClass: DefaultMeaningfulClass}
}

const (
	// normalizeHops bounds the ancestor walk when lifting an icon glyph
	// to its clickable container.
	normalizeHops = 5
	// pathDepth bounds the structural path at four ancestor levels.
	pathDepth = 4
	// maxRecordedText is the longest visible text worth recording as a
	// text strategy; longer runs are prose, not labels.
	maxRecordedText = 64
)

var actionableTags = map[string]bool{
	"a": true, "button": true, "select": true, "input": true, "textarea": true,
}

var graphicTags = map[string]bool{
	"svg": true, "path": true, "use": true, "g": true, "circle": true,
	"rect": true, "line": true, "polyline": true, "polygon": true,
}

// clickableClassMarkers are class-token patterns that mark an element as a
// clickable container even without an actionable tag or role. A trailing
// hyphen means prefix match.
var clickableClassMarkers = []string{"clickable-icon", "nav-", "menu-", "tab-", "icon"}

var clickableRoles = map[string]bool{
	"button": true, "tab": true, "menuitem": true, "link": true,
}

// FromNode synthesizes a Locator for the given raw event target.
func (s *Synthesizer) FromNode(raw *html.Node) Locator {
	pred := s.MeaningfulClass
	if pred == nil {
		pred = DefaultMeaningfulClass
	}

	n := s.Normalize(raw)
	loc := Locator{
		AriaLabel: AttrVal(n, "aria-label"),
		DataType:  AttrVal(n, "data-type"),
	}

	if row := settingRowAncestor(n); row != nil {
		if id := AttrVal(row, "data-setting-id"); id != "" {
			loc.SettingID = id
		} else if id := AttrVal(row, "data-setting"); id != "" {
			loc.SettingID = id
		} else if kind := controlKind(n); kind != "" {
			if name := findDescendantByClass(row, "setting-item-name"); name != nil {
				loc.SettingName = NodeText(name)
				loc.ControlType = kind
			}
		}
	}

	if tag := TagName(n); tag == "input" || tag == "textarea" {
		loc.Placeholder = AttrVal(n, "placeholder")
		if tag == "input" {
			loc.InputType = AttrVal(n, "type")
		}
	}

	if text := NodeText(n); text != "" && len(text) <= maxRecordedText {
		loc.ExactText = text
		loc.PartialText = text
	}

	loc.Path = s.buildPath(n, pred, iconClass(n, pred))
	loc.Context = contextFor(n, pred)
	loc.Description = describe(n)
	return loc
}

// PathFor synthesizes just the structural path selector for an element,
// without the icon constraint. Used when a collaborator needs to reference
// an already-resolved node over the wire.
func (s *Synthesizer) PathFor(n *html.Node) string {
	pred := s.MeaningfulClass
	if pred == nil {
		pred = DefaultMeaningfulClass
	}
	return s.buildPath(n, pred, "")
}

// Normalize lifts a raw event target to the best clickable ancestor. An
// actionable tag is used as-is; a vector-graphic primitive walks up through
// the clickable container patterns, falling back to the parent of the
// outermost graphic container.
func (s *Synthesizer) Normalize(raw *html.Node) *html.Node {
	if raw == nil {
		return nil
	}
	if actionableTags[TagName(raw)] {
		return raw
	}
	if !graphicTags[TagName(raw)] {
		return raw
	}

	hops := 0
	for p := elementParent(raw); p != nil && hops < normalizeHops; p = elementParent(p) {
		if isClickableContainer(p) {
			return p
		}
		hops++
	}

	// No container pattern matched: take the parent of the outermost
	// graphic ancestor so at least the icon's host is targeted.
	outer := raw
	for p := elementParent(outer); p != nil && graphicTags[TagName(p)]; p = elementParent(p) {
		outer = p
	}
	if p := elementParent(outer); p != nil {
		return p
	}
	return raw
}

func isClickableContainer(n *html.Node) bool {
	switch TagName(n) {
	case "button", "a", "select":
		return true
	}
	if clickableRoles[AttrVal(n, "role")] {
		return true
	}
	for _, c := range strings.Fields(AttrVal(n, "class")) {
		for _, marker := range clickableClassMarkers {
			if strings.HasSuffix(marker, "-") {
				if strings.HasPrefix(c, marker) {
					return true
				}
			} else if c == marker {
				return true
			}
		}
	}
	return false
}

// settingRowAncestor finds the enclosing setting row container, if any.
func settingRowAncestor(n *html.Node) *html.Node {
	for p := n; p != nil; p = elementParent(p) {
		for _, c := range strings.Fields(AttrVal(p, "class")) {
			if c == "setting-item" {
				return p
			}
		}
	}
	return nil
}

// controlKind classifies an element as one of the setting-row control kinds,
// or "" when it is not a recognizable control.
func controlKind(n *html.Node) ControlType {
	switch TagName(n) {
	case "select":
		return ControlDropdown
	case "button":
		return ControlButton
	case "textarea":
		return ControlTextInput
	case "input":
		switch AttrVal(n, "type") {
		case "checkbox":
			return ControlToggle
		case "range":
			return ControlSlider
		case "", "text", "search", "email", "password", "number":
			return ControlTextInput
		}
	}
	return ""
}

// findDescendantByClass returns the first descendant element carrying the
// given class token, depth-first.
func findDescendantByClass(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			for _, t := range strings.Fields(AttrVal(c, "class")) {
				if t == class {
					return c
				}
			}
			if found := findDescendantByClass(c, class); found != nil {
				return found
			}
		}
	}
	return nil
}

// iconClass detects an embedded vector-icon modifier class, used to
// disambiguate otherwise-identical icon buttons. Generic svg wrapper classes
// do not qualify.
func iconClass(n *html.Node, pred ClassPredicate) string {
	svg := n
	if TagName(svg) != "svg" {
		svg = findDescendantByTag(n, "svg")
	}
	if svg == nil {
		return ""
	}
	for _, c := range strings.Fields(AttrVal(svg, "class")) {
		if c == "svg-icon" || !pred(c) {
			continue
		}
		return c
	}
	return ""
}

func findDescendantByTag(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if TagName(c) == tag {
				return c
			}
			if found := findDescendantByTag(c, tag); found != nil {
				return found
			}
		}
	}
	return nil
}

// contextFor records the dialog the element lives in, so replay can demand
// the same dialog is open before any strategy runs.
func contextFor(n *html.Node, pred ClassPredicate) *Context {
	for p := n; p != nil; p = elementParent(p) {
		classes := strings.Fields(AttrVal(p, "class"))
		isDialog := AttrVal(p, "role") == "dialog" || TagName(p) == "dialog"
		for _, c := range classes {
			if c == "modal" {
				isDialog = true
			}
		}
		if !isDialog {
			continue
		}
		ctx := &Context{RequireModal: true}
		for _, c := range classes {
			if c != "modal" && pred(c) {
				ctx.ModalClass = c
				break
			}
		}
		return ctx
	}
	return nil
}

// buildPath synthesizes the last-resort structural CSS path by walking from
// the element toward the root, capped at pathDepth ancestor levels. An id
// anchors the path and stops the walk. The icon constraint, when present,
// narrows the target's own segment.
func (s *Synthesizer) buildPath(n *html.Node, pred ClassPredicate, icon string) string {
	var segments []string
	cur := n
	for depth := 0; cur != nil && depth < pathDepth; depth++ {
		tag := TagName(cur)
		if tag == "" || tag == "body" || tag == "html" {
			break
		}

		if id := AttrVal(cur, "id"); id != "" {
			segments = append([]string{"#" + id}, segments...)
			break
		}

		classes := meaningfulClasses(AttrVal(cur, "class"), pred, 2)
		var seg string
		switch {
		case len(classes) > 0:
			seg = tag + "." + strings.Join(classes, ".")
		case depth == 0 && (tag == "input" || tag == "textarea") && AttrVal(cur, "placeholder") != "":
			seg = fmt.Sprintf(`%s[placeholder="%s"]`, tag, escapeAttr(AttrVal(cur, "placeholder")))
		case depth == 0 && tag == "input" && AttrVal(cur, "type") != "":
			seg = fmt.Sprintf(`%s[type="%s"]`, tag, escapeAttr(AttrVal(cur, "type")))
		default:
			seg = fmt.Sprintf("%s:nth-of-type(%d)", tag, sameTagOrdinal(cur))
		}

		if depth == 0 && icon != "" {
			seg += fmt.Sprintf(":has(.%s)", icon)
		}
		segments = append([]string{seg}, segments...)
		cur = elementParent(cur)
	}
	return strings.Join(segments, " > ")
}

// maxDescriptionText caps the visible-text fallback in descriptions.
const maxDescriptionText = 30

// describe produces the human-readable fallback description.
func describe(n *html.Node) string {
	if ph := AttrVal(n, "placeholder"); ph != "" {
		return ph
	}
	if label := AttrVal(n, "aria-label"); label != "" {
		return label
	}
	if title := AttrVal(n, "title"); title != "" {
		return title
	}
	if text := NodeText(n); text != "" {
		runes := []rune(text)
		if len(runes) > maxDescriptionText {
			return string(runes[:maxDescriptionText])
		}
		return text
	}
	tag := TagName(n)
	if tag == "" {
		tag = "unknown"
	}
	return fmt.Sprintf("<%s> element", tag)
}
