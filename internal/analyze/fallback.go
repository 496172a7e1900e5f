// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"fmt"
	"strings"
)

// FallbackNote ends every fallback summary.
const FallbackNote = "Note: this is an automatically generated outline; see the paper abstract for details."

const defaultArea = "artificial intelligence"

// areaGroups are checked in order; the first group with a matching term
// names the research area.
var areaGroups = []struct {
	area  string
	terms []string
}{
	{"machine learning", []string{"machine learning", "deep learning", "neural"}},
	{"computer vision", []string{"computer vision", "image", "visual"}},
	{"natural language processing", []string{"natural language", "nlp", "text"}},
	{"robotics", []string{"robot", "control", "planning"}},
}

// ResearchArea guesses the research area from the title and abstract.
func ResearchArea(title, abstract string) string {
	blob := strings.ToLower(title + "\n" + abstract)
	for _, g := range areaGroups {
		for _, term := range g.terms {
			if strings.Contains(blob, term) {
				return g.area
			}
		}
	}
	return defaultArea
}

// Fallback returns a deterministic summary in the same five-section shape
// the model produces. It never calls out and never fails.
func Fallback(title, abstract string) string {
	area := ResearchArea(title, abstract)
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**: %s\n\n", LabelResearchArea, capitalize(area))
	fmt.Fprintf(&b, "**%s**: The paper proposes new methods and insights in %s.\n\n", LabelCoreContribution, area)
	fmt.Fprintf(&b, "**%s**: It applies established algorithms and a technical framework to the problem it studies.\n\n", LabelMethod)
	fmt.Fprintf(&b, "**%s**: Experiments support the effectiveness of the proposed approach.\n\n", LabelResults)
	fmt.Fprintf(&b, "**%s**: The work is a useful contribution to %s.\n\n", LabelSignificance, area)
	b.WriteString(FallbackNote)
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
