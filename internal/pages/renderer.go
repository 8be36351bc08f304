package pages

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/wingedflyer/backend/internal/models"
)

// Renderer turns an event's markdown into a sanitized visitor page.
type Renderer struct {
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	tmpl     *template.Template
	liveWSEn bool
}

// NewRenderer creates a page renderer. liveWS enables the auto-refresh
// WebSocket snippet in rendered pages.
func NewRenderer(liveWS bool) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Renderer{
		md:       md,
		policy:   bluemonday.UGCPolicy(),
		tmpl:     template.Must(template.New("page").Parse(pageTemplate)),
		liveWSEn: liveWS,
	}
}

// RenderContent converts markdown to sanitized HTML (organizer input is
// untrusted once QR links circulate).
func (r *Renderer) RenderContent(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// RenderPage produces the full visitor HTML page.
func (r *Renderer) RenderPage(e *models.Event, msgs []models.Message) ([]byte, error) {
	content, err := r.RenderContent(e.Content)
	if err != nil {
		return nil, err
	}
	data := pageData{
		Event:    e,
		Content:  content,
		Messages: msgs,
		LiveWS:   r.liveWSEn,
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute page template: %w", err)
	}
	return buf.Bytes(), nil
}

type pageData struct {
	Event    *models.Event
	Content  template.HTML
	Messages []models.Message
	LiveWS   bool
}

// Single server-rendered template, no client framework: pages must load on
// whatever phone scans the code.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Event.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:42rem;margin:0 auto;padding:1rem;line-height:1.5}
.urgent{background:#fde2e2;border:1px solid #c0392b;border-radius:4px;padding:.75rem;margin-bottom:1rem}
.message{border-left:3px solid #888;padding-left:.75rem;margin:.75rem 0}
.message time{color:#666;font-size:.85rem}
footer{margin-top:2rem;color:#666;font-size:.85rem}
img{max-width:100%}
</style>
</head>
<body>
{{if .Event.UrgentMessage}}<div class="urgent">{{.Event.UrgentMessage}}</div>{{end}}
<h1>{{.Event.Title}}</h1>
<main>{{.Content}}</main>
{{if .Messages}}<section>
<h2>Updates</h2>
{{range .Messages}}<div class="message"><time datetime="{{.CreatedAt.Format "2006-01-02T15:04:05Z07:00"}}">{{.CreatedAt.Format "Jan 2, 2006 15:04"}}</time><p>{{.Body}}</p></div>
{{end}}</section>{{end}}
<footer>Last updated {{.Event.UpdatedAt.Format "Jan 2, 2006 15:04 MST"}}</footer>
{{if .LiveWS}}<script>
(function(){
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws?event_id={{.Event.ID}}");
  ws.onmessage = function(){ location.reload(); };
})();
</script>{{end}}
</body>
</html>
`
