package locator

import (
	"regexp"
	"strings"
)

// ClassPredicate decides whether a class name is stable enough to use in a
// structural selector. The synthesizer takes it as a pluggable hook so the
// filtering heuristic can be tuned (or replaced in tests) independently of
// the path-building walk.
type ClassPredicate func(class string) bool

// internalPrefixes are class prefixes emitted by editors and CSS-in-JS
// tooling. They change between builds and must never anchor a selector.
var internalPrefixes = []string{"cm-", "css-", "sc-", "jsx-", "svelte-"}

// hexTokenRe matches hash-like tokens (content digests, build ids).
var hexTokenRe = regexp.MustCompile(`^[a-f0-9]{8,}$`)

// DefaultMeaningfulClass is the stock ClassPredicate. It rejects
// editor-internal prefixes and long opaque tokens that look auto-generated
// (hashes, minified identifiers with embedded digits).
func DefaultMeaningfulClass(class string) bool {
	if class == "" {
		return false
	}
	for _, p := range internalPrefixes {
		if strings.HasPrefix(class, p) {
			return false
		}
	}
	if hexTokenRe.MatchString(strings.ToLower(class)) {
		return false
	}
	// Long token with digits in the middle: almost certainly generated.
	if len(class) >= 16 && strings.ContainsAny(class, "0123456789") {
		return false
	}
	if len(class) >= 28 {
		return false
	}
	return true
}

// meaningfulClasses returns up to max classes from the node's class attribute
// that pass the predicate, in document order.
func meaningfulClasses(classAttr string, pred ClassPredicate, max int) []string {
	var out []string
	for _, c := range strings.Fields(classAttr) {
		if pred(c) {
			out = append(out, c)
			if len(out) == max {
				break
			}
		}
	}
	return out
}
