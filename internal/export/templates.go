package export

import (
	"bytes"
	"html/template"
	"time"
)

var pageTemplate = template.Must(template.New("page").Parse(pageLayout))

// TemplateData holds data for page template rendering.
type TemplateData struct {
	Title         string
	Icon          string
	ContentHTML   template.HTML
	Author        string
	WorkspaceName string
	Tags          []string
	UpdatedAt     time.Time
	Revision      string
}

func RenderPageHTML(data TemplateData) (string, error) {
	if data.Title == "" {
		data.Title = "Untitled"
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const pageLayout = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #222; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .tag { display: inline-block; background: #eef; border-radius: 4px; padding: 0 0.4rem; margin-right: 0.3rem; }
    pre { background: #f5f5f5; padding: 0.75rem; overflow-x: auto; }
    blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; color: #555; }
  </style>
</head>
<body>
  <h1>{{if .Icon}}{{.Icon}} {{end}}{{.Title}}</h1>
  <div class="meta">
    {{- if .WorkspaceName}}{{.WorkspaceName}}{{end}}
    {{- if .Author}} | {{.Author}}{{end}}
    {{- if not .UpdatedAt.IsZero}} | {{.UpdatedAt.Format "Jan 2, 2006"}}{{end}}
    {{- if .Revision}} | revision {{.Revision}}{{end}}
  </div>
  {{if .Tags}}<div class="tags">{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</div>{{end}}
  <div class="content">{{.ContentHTML}}</div>
</body>
</html>`
