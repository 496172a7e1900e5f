// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"regexp"
	"strings"
)

// Section is one labeled block of a summary. Label is empty for text that
// did not start with a bold label.
type Section struct {
	Label string
	Body  string
}

// labelLine matches "**Label**: body", "**Label:** body" and the full-width
// colon some models emit.
var labelLine = regexp.MustCompile(`^\*\*([^*]+?)\s*[:：]?\s*\*\*\s*[:：]?\s*(.*)$`)

// ParseSections splits summary text into sections. A bold label starts a
// section; following lines join its body until a blank line or the next
// label. Unlabeled paragraphs become sections with an empty label.
func ParseSections(text string) []Section {
	var sections []Section
	var cur *Section
	flush := func() {
		if cur != nil && (cur.Label != "" || cur.Body != "") {
			sections = append(sections, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		if m := labelLine.FindStringSubmatch(line); m != nil {
			flush()
			cur = &Section{Label: strings.TrimSpace(m[1]), Body: strings.TrimSpace(m[2])}
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		if cur == nil {
			cur = &Section{}
		}
		if cur.Body == "" {
			cur.Body = line
		} else {
			cur.Body += " " + line
		}
	}
	flush()
	return sections
}
