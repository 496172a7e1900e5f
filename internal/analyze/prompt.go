// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"text/template"
)

const defaultLanguage = "English"

// Section labels, in the order the model is asked to produce them.
const (
	LabelResearchArea     = "Research Area"
	LabelCoreContribution = "Core Contribution"
	LabelMethod           = "Method"
	LabelResults          = "Results"
	LabelSignificance     = "Significance"
)

// Labels lists the section labels in display order.
var Labels = []string{
	LabelResearchArea,
	LabelCoreContribution,
	LabelMethod,
	LabelResults,
	LabelSignificance,
}

// summaryPromptTmpl asks for five labeled sections. The labels stay in
// English whatever the output language so ParseSections can find them.
var summaryPromptTmpl = template.Must(template.New("summary").Parse(`Analyze the abstract of the following arXiv paper and write a concise, plain-language summary in {{.Language}}. Use exactly this format, keeping the bold labels in English as written:

**Research Area**: [the specific research field of the paper]

**Core Contribution**: [the main contribution and novelty, 1-2 sentences]

**Method**: [the main technique or algorithm used, 1-2 sentences]

**Results**: [key experimental results or performance, if the abstract mentions them, 1 sentence]

**Significance**: [practical or academic value of the work, 1 sentence]

Paper title: {{.Title}}

Paper abstract: {{.Abstract}}

Keep each section under 50 words and the whole summary under 300 words. Do not add any text before or after the five sections.
`))

type promptData struct {
	Title    string
	Abstract string
	Language string
}

func renderPrompt(title, abstract, language string) (string, error) {
	var buf bytes.Buffer
	if err := summaryPromptTmpl.Execute(&buf, promptData{Title: title, Abstract: abstract, Language: language}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
