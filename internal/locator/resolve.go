package locator

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// dialogSelector matches an open overlay/dialog region on the surface.
const dialogSelector = `.modal, [role="dialog"], dialog[open]`

// Resolver turns a Locator into at most one live element. Each strategy is a
// pure query against the supplied document; no state is kept between calls.
type Resolver struct {
	log logrus.FieldLogger
}

// NewResolver creates a Resolver. A nil logger falls back to the standard
// logrus logger.
func NewResolver(log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{log: log}
}

// strategy is one named location technique. run returns nil when the
// strategy is not populated on the Locator or finds nothing.
type strategy struct {
	name string
	run  func(r *Resolver, doc *goquery.Document, loc Locator) *html.Node
}

// Strategies in priority order. Semantic attribute matches are the most
// resilient to relayouts, visible-text matches break on copy changes, and
// the structural path breaks on DOM restructuring, so that is the order
// they are tried in.
var strategies = []strategy{
	{StrategyAriaLabel, (*Resolver).byAriaLabel},
	{StrategyDataType, (*Resolver).byDataType},
	{StrategySettingID, (*Resolver).bySettingID},
	{StrategySettingName, (*Resolver).bySettingName},
	{StrategyInputAttrs, (*Resolver).byInputAttrs},
	{StrategyExactText, (*Resolver).byExactText},
	{StrategyPartialText, (*Resolver).byPartialText},
	{StrategyPath, (*Resolver).byPath},
}

// Resolve evaluates the context filter and then each populated strategy in
// priority order, short-circuiting on the first element found. The returned
// Result never holds more than one element.
func (r *Resolver) Resolve(doc *goquery.Document, loc Locator) Result {
	if loc.Context != nil {
		if reason := contextFailure(doc, *loc.Context); reason != "" {
			r.log.WithField("reason", reason).Debug("locator context check failed")
			return Result{Strategy: StrategyContext, Err: reason}
		}
	}

	for _, s := range strategies {
		n := s.run(r, doc, loc)
		if n != nil {
			r.log.WithField("strategy", s.name).Debug("locator resolved")
			return Result{Element: n, Strategy: s.name, OK: true}
		}
	}

	errMsg := "no strategy matched"
	if loc.Description != "" {
		errMsg = fmt.Sprintf("could not find %q on the current surface", loc.Description)
	}
	return Result{Strategy: StrategyNone, Err: errMsg}
}

// contextFailure returns a non-empty reason when the context precondition
// does not hold.
func contextFailure(doc *goquery.Document, ctx Context) string {
	dialog := doc.Find(dialogSelector).First()
	if ctx.RequireModal && dialog.Length() == 0 {
		return "requires an open dialog, but none is present"
	}
	if ctx.ModalClass != "" {
		if dialog.Length() == 0 {
			return fmt.Sprintf("requires an open %q dialog, but none is present", ctx.ModalClass)
		}
		if !dialog.HasClass(ctx.ModalClass) {
			return fmt.Sprintf("open dialog is not %q", ctx.ModalClass)
		}
	}
	// The tab check is best-effort: only enforced when the surface renders
	// a tab navigation at all.
	if ctx.SettingsTab != "" {
		active := doc.Find(`.settings-tab.is-active, [data-tab].is-active, [role="tab"][aria-selected="true"]`).First()
		if active.Length() > 0 {
			name := collapseSpace(active.Text())
			if !strings.EqualFold(name, ctx.SettingsTab) {
				return fmt.Sprintf("settings tab %q is not active", ctx.SettingsTab)
			}
		}
	}
	return ""
}

// dialogScope returns the open dialog region when one exists, else the whole
// document.
func dialogScope(doc *goquery.Document) *goquery.Selection {
	if dialog := doc.Find(dialogSelector).First(); dialog.Length() > 0 {
		return dialog
	}
	return doc.Selection
}

func firstNode(sel *goquery.Selection) *html.Node {
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

func (r *Resolver) byAriaLabel(doc *goquery.Document, loc Locator) *html.Node {
	if loc.AriaLabel == "" {
		return nil
	}
	return firstNode(doc.Find(fmt.Sprintf(`[aria-label="%s"]`, escapeAttr(loc.AriaLabel))))
}

func (r *Resolver) byDataType(doc *goquery.Document, loc Locator) *html.Node {
	if loc.DataType == "" {
		return nil
	}
	return firstNode(doc.Find(fmt.Sprintf(`[data-type="%s"]`, escapeAttr(loc.DataType))))
}

// bySettingID matches the primary row-identifier attribute, falling back to
// the older attribute name still present on some surfaces.
func (r *Resolver) bySettingID(doc *goquery.Document, loc Locator) *html.Node {
	if loc.SettingID == "" {
		return nil
	}
	id := escapeAttr(loc.SettingID)
	if n := firstNode(doc.Find(fmt.Sprintf(`[data-setting-id="%s"]`, id))); n != nil {
		return n
	}
	return firstNode(doc.Find(fmt.Sprintf(`[data-setting="%s"]`, id)))
}

// controlSelectors maps a control kind to the selector searched within a
// matched setting row.
var controlSelectors = map[ControlType]string{
	ControlDropdown:  `select, .dropdown`,
	ControlToggle:    `input[type="checkbox"], .checkbox-container, .toggle`,
	ControlButton:    `button, .button`,
	ControlTextInput: `input[type="text"], input[type="search"], input[type="email"], input[type="password"], input[type="number"], input:not([type]), textarea`,
	ControlSlider:    `input[type="range"], .slider`,
}

// anyControlSelector is used when a setting name is recorded without a
// control kind.
const anyControlSelector = `select, input, textarea, button`

// bySettingName finds a named setting row and then a control of the given
// kind within it. When a dialog is open the search is limited to it.
func (r *Resolver) bySettingName(doc *goquery.Document, loc Locator) *html.Node {
	if loc.SettingName == "" {
		return nil
	}
	controlSel := anyControlSelector
	if s, ok := controlSelectors[loc.ControlType]; ok {
		controlSel = s
	}

	var found *html.Node
	dialogScope(doc).Find(".setting-item").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		name := collapseSpace(row.Find(".setting-item-name").First().Text())
		if name != loc.SettingName {
			return true
		}
		found = firstNode(row.Find(controlSel))
		return found == nil
	})
	return found
}

func (r *Resolver) byInputAttrs(doc *goquery.Document, loc Locator) *html.Node {
	if loc.Placeholder == "" && loc.InputType == "" {
		return nil
	}
	var sel string
	switch {
	case loc.Placeholder != "" && loc.InputType != "":
		sel = fmt.Sprintf(`input[type="%s"][placeholder="%s"]`,
			escapeAttr(loc.InputType), escapeAttr(loc.Placeholder))
	case loc.Placeholder != "":
		p := escapeAttr(loc.Placeholder)
		sel = fmt.Sprintf(`input[placeholder="%s"], textarea[placeholder="%s"]`, p, p)
	default:
		sel = fmt.Sprintf(`input[type="%s"]`, escapeAttr(loc.InputType))
	}
	return firstNode(doc.Find(sel))
}

// byExactText matches on collapsed visible text, preferring the open dialog
// region and a case-sensitive comparison. Only the deepest matching elements
// count, so a wrapper div does not shadow the button inside it.
func (r *Resolver) byExactText(doc *goquery.Document, loc Locator) *html.Node {
	if loc.ExactText == "" {
		return nil
	}
	want := collapseSpace(loc.ExactText)
	scope := dialogScope(doc)

	if n := deepestTextMatch(scope, func(t string) bool { return t == want }); n != nil {
		return n
	}
	if n := deepestTextMatch(scope, func(t string) bool { return strings.EqualFold(t, want) }); n != nil {
		return n
	}
	if scope != doc.Selection {
		if n := deepestTextMatch(doc.Selection, func(t string) bool { return t == want }); n != nil {
			return n
		}
		if n := deepestTextMatch(doc.Selection, func(t string) bool { return strings.EqualFold(t, want) }); n != nil {
			return n
		}
	}
	return nil
}

func (r *Resolver) byPartialText(doc *goquery.Document, loc Locator) *html.Node {
	if loc.PartialText == "" {
		return nil
	}
	want := strings.ToLower(collapseSpace(loc.PartialText))
	return deepestTextMatch(doc.Selection, func(t string) bool {
		return strings.Contains(strings.ToLower(t), want)
	})
}

// deepestTextMatch returns the first element (document order) whose collapsed
// text satisfies match and none of whose element children also satisfy it.
// Matching only the deepest elements mirrors how a user perceives "the thing
// with that text": the leaf control, not its containers.
func deepestTextMatch(scope *goquery.Selection, match func(string) bool) *html.Node {
	var found *html.Node
	var walk func(n *html.Node) bool // returns true if n or a descendant matched
	walk = func(n *html.Node) bool {
		switch TagName(n) {
		case "script", "style":
			return false
		}
		childMatched := false
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				childMatched = true
			}
			if found != nil {
				return true
			}
		}
		if n.Type != html.ElementNode || childMatched {
			return childMatched
		}
		if match(NodeText(n)) {
			found = n
			return true
		}
		return false
	}
	scope.Each(func(_ int, s *goquery.Selection) {
		if found == nil {
			walk(s.Get(0))
		}
	})
	return found
}

// byPath compiles and runs the recorded structural CSS path. A malformed
// selector is caught here and treated as a non-match, never propagated.
func (r *Resolver) byPath(doc *goquery.Document, loc Locator) *html.Node {
	if loc.Path == "" {
		return nil
	}
	sel, err := cascadia.Compile(loc.Path)
	if err != nil {
		r.log.WithField("path", loc.Path).WithError(err).Debug("structural selector did not compile")
		return nil
	}
	return firstNode(doc.FindMatcher(sel))
}
