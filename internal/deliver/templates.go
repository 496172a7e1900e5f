// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deliver

import (
	"bytes"
	"html/template"

	"github.com/pdiddy/arxiv-digest/internal/analyze"
)

const emailStyle = `
body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
.container { background-color: #ffffff; padding: 30px; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
.header { border-bottom: 3px solid #4CAF50; padding-bottom: 20px; margin-bottom: 30px; }
.paper-title { color: #2c3e50; font-size: 24px; font-weight: bold; margin-bottom: 10px; line-height: 1.3; }
.paper-info { background-color: #f8f9fa; padding: 15px; border-left: 4px solid #4CAF50; margin: 20px 0; }
.info-item { margin: 8px 0; color: #555555; }
.info-label { font-weight: bold; color: #2c3e50; }
.analysis-section { background-color: #e8f5e8; padding: 20px; border-radius: 8px; margin: 20px 0; }
.analysis-title { color: #2c3e50; font-size: 18px; font-weight: bold; margin-bottom: 15px; border-bottom: 2px solid #4CAF50; padding-bottom: 8px; }
.analysis-label { font-weight: bold; color: #0ea5e9; }
.screenshot-section { text-align: center; margin: 20px 0; padding: 20px; background-color: #f8f9fa; border-radius: 8px; }
.screenshot-section img { max-width: 100%; border: 1px solid #dddddd; border-radius: 5px; }
.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eeeeee; color: #888888; font-size: 12px; text-align: center; }
`

// imageEmailTmpl wraps the digest image in a minimal body.
var imageEmailTmpl = template.Must(template.New("image").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><style>{{.Style}}</style></head>
<body>
<div class="container">
  <div class="header"><div class="paper-title">{{.Title}}</div></div>
  <div style="text-align:center"><img src="cid:{{.ImageCID}}" alt="{{.Title}}" style="max-width:100%"></div>
  <p class="info-item"><span class="info-label">arXiv:</span> <a href="{{.SourceURL}}">{{.ID}}</a></p>
  <div class="footer">Sent by arxiv-digest on {{.Today}}</div>
</div>
</body>
</html>
`))

// htmlEmailTmpl is the full message used when no digest image is sent.
var htmlEmailTmpl = template.Must(template.New("html").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><style>{{.Style}}</style></head>
<body>
<div class="container">
  <div class="header"><div class="paper-title">{{.Title}}</div></div>
  <div class="paper-info">
    <div class="info-item"><span class="info-label">arXiv ID:</span> {{.ID}}</div>
    <div class="info-item"><span class="info-label">Authors:</span> {{.Authors}}</div>
    {{- if .Published}}
    <div class="info-item"><span class="info-label">Published:</span> {{.Published}}</div>
    {{- end}}
    <div class="info-item"><span class="info-label">Link:</span> <a href="{{.SourceURL}}">{{.SourceURL}}</a></div>
  </div>
  {{- if .PreviewCID}}
  <div class="screenshot-section">
    <div class="analysis-title">First page</div>
    <img src="cid:{{.PreviewCID}}" alt="First page of {{.ID}}">
  </div>
  {{- end}}
  <div class="analysis-section">
    <div class="analysis-title">AI Summary</div>
    {{- range .Sections}}
    <p>{{if .Label}}<span class="analysis-label">{{.Label}}:</span> {{end}}{{.Body}}</p>
    {{- end}}
  </div>
  <div class="footer">Sent by arxiv-digest on {{.Today}}</div>
</div>
</body>
</html>
`))

type emailData struct {
	Style      template.CSS
	Title      string
	ID         string
	Authors    string
	Published  string
	SourceURL  string
	ImageCID   string
	PreviewCID string
	Sections   []analyze.Section
	Today      string
}

func execute(t *template.Template, data emailData) (string, error) {
	data.Style = template.CSS(emailStyle)
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
