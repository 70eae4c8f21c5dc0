package locator

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// CountMatches reports how many elements a structural path selector matches
// in the probe document. It validates recorded selectors without running
// the playback engine: 0 means the selector is dead, 1 is ideal, N warns
// that first-match resolution may pick the wrong element.
func CountMatches(doc *goquery.Document, path string) (int, error) {
	sel, err := cascadia.Compile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadStructuralSelector, err)
	}
	return doc.FindMatcher(sel).Length(), nil
}
