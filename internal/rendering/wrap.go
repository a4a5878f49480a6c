package rendering

import "strings"

// lineHeightFactor is the vertical advance between wrapped lines as a
// multiple of the font size.
const lineHeightFactor = 1.2

// wrapLines greedily packs words into lines whose measured width stays under
// maxWidth. A single word wider than maxWidth occupies a line on its own.
func wrapLines(text string, maxWidth float64, measure func(string) float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := ""
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if line == "" || measure(candidate) < maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = word
	}
	return append(lines, line)
}
