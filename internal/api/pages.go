package api

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"gwi.com/prompt-relay/internal/logging"
	"gwi.com/prompt-relay/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"index", "register", "verify_otp", "login"}

type pageData struct {
	Title       string
	Flash       string
	Username    string
	AuthEnabled bool
	Records     []historyView
}

type historyView struct {
	Prompt  string
	Outputs []providerOutput
}

type providerOutput struct {
	Provider string
	HTML     template.HTML
}

// Pages renders the HTML views. Provider replies are Markdown; they are
// converted and then sanitized before reaching a template.
type Pages struct {
	templates map[string]*template.Template
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy
	logger    logging.Logger
}

func NewPages(logger logging.Logger) (*Pages, error) {
	p := &Pages{
		templates: make(map[string]*template.Template, len(pageNames)),
		markdown:  goldmark.New(),
		policy:    bluemonday.UGCPolicy(),
		logger:    logger,
	}
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		p.templates[name] = t
	}
	return p, nil
}

func (p *Pages) Render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	t, ok := p.templates[name]
	if !ok {
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		p.logger.Error(r.Context(), "failed to render page", "page", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// RenderMarkdown turns provider text into sanitized HTML.
func (p *Pages) RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(p.policy.SanitizeBytes(buf.Bytes()))
}

var historyColumns = []string{store.ColumnHuggingFace, store.ColumnClaude, store.ColumnGemini}

func (p *Pages) historyViews(records []store.HistoryRecord) []historyView {
	views := make([]historyView, 0, len(records))
	for i := range records {
		v := historyView{Prompt: records[i].Prompt}
		for _, col := range historyColumns {
			text := records[i].Output(col)
			if text == "" {
				continue
			}
			v.Outputs = append(v.Outputs, providerOutput{Provider: col, HTML: p.RenderMarkdown(text)})
		}
		views = append(views, v)
	}
	return views
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
