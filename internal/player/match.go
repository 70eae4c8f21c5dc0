package player

import "strings"

// optionMatches compares a newly selected option's visible text against a
// select step's expected value. The match is deliberately tolerant, three
// ways: exact (case-insensitive), selected contains expected, or expected
// contains selected. Short option texts that are substrings of each other
// can therefore over-match; recorded values should be as specific as the UI
// allows.
func optionMatches(selected, expected string) bool {
	selected = strings.Join(strings.Fields(selected), " ")
	expected = strings.Join(strings.Fields(expected), " ")
	if expected == "" || selected == "" {
		return false
	}
	if strings.EqualFold(selected, expected) {
		return true
	}
	sl, el := strings.ToLower(selected), strings.ToLower(expected)
	return strings.Contains(sl, el) || strings.Contains(el, sl)
}
