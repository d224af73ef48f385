package report

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// HTMLGenerator generates an HTML summary, styled after the same
// cyan/magenta dark palette as internal/monitor's terminal dashboard.
type HTMLGenerator struct {
	template *template.Template
}

var htmlFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	"formatDuration": func(d time.Duration) string { return d.String() },
}

// NewHTMLGenerator creates an HTMLGenerator using the built-in template.
func NewHTMLGenerator() *HTMLGenerator {
	tmpl := template.Must(template.New("report").Funcs(htmlFuncs).Parse(htmlTemplate))
	return &HTMLGenerator{template: tmpl}
}

// Generate implements Generator.
func (g *HTMLGenerator) Generate(report *CampaignReport, w io.Writer) error {
	return g.template.Execute(w, report)
}

// Extension implements Generator.
func (g *HTMLGenerator) Extension() string { return "html" }

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-dark: #0D0D0D;
            --bg-panel: #1A1A2E;
            --bg-header: #16213E;
            --text-primary: #E0E0E0;
            --text-dim: #666666;
            --cyan: #00FFFF;
            --magenta: #FF00FF;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: 'Segoe UI', 'Roboto', sans-serif;
            background: var(--bg-dark);
            color: var(--text-primary);
            line-height: 1.6;
        }
        .container { max-width: 960px; margin: 0 auto; padding: 20px; }
        header {
            background: var(--bg-header);
            padding: 24px;
            border-radius: 10px;
            margin-bottom: 24px;
            border: 1px solid var(--cyan);
        }
        h1 { color: var(--cyan); font-size: 2em; margin-bottom: 8px; }
        .meta { color: var(--text-dim); font-size: 0.9em; }
        .meta span { margin-right: 20px; }
        .section {
            background: var(--bg-panel);
            border-radius: 10px;
            padding: 20px;
            margin-bottom: 20px;
            border: 1px solid var(--magenta);
        }
        h2 { color: var(--magenta); margin-bottom: 16px; font-size: 1.3em; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid var(--bg-header); }
        th { color: var(--text-dim); font-weight: normal; }
        code {
            background: var(--bg-dark);
            padding: 2px 6px;
            border-radius: 4px;
            font-family: 'Fira Code', 'Consolas', monospace;
            color: var(--cyan);
        }
        .no-crashes { text-align: center; padding: 30px; color: var(--text-dim); }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{.Title}}</h1>
            <div class="meta">
                <span>Generated: {{formatTime .GeneratedAt}}</span>
                <span>Duration: {{formatDuration .Duration}}</span>
            </div>
        </header>

        <section class="section">
            <h2>Peers</h2>
            <table>
                <tr><th>Name</th><th>Execs</th><th>Corpus</th><th>Solutions</th></tr>
                {{range .Peers}}
                <tr>
                    <td>{{.Name}}</td>
                    <td>{{.Execs}}</td>
                    <td>{{.CorpusSize}}</td>
                    <td>{{.SolutionsCount}}</td>
                </tr>
                {{end}}
            </table>
        </section>

        <section class="section">
            <h2>Crashes ({{len .Crashes}})</h2>
            {{if .Crashes}}
            <table>
                <tr><th>Peer</th><th>Id</th><th>Size</th><th>Preview</th><th>Found</th></tr>
                {{range .Crashes}}
                <tr>
                    <td>{{.PeerName}}</td>
                    <td><code>{{.Id}}</code></td>
                    <td>{{.Size}}</td>
                    <td><code>{{.Preview}}</code></td>
                    <td>{{formatTime .DiscoveredAt}}</td>
                </tr>
                {{end}}
            </table>
            {{else}}
            <div class="no-crashes">No crashes found.</div>
            {{end}}
        </section>
    </div>
</body>
</html>`

// CustomHTMLGenerator builds an HTMLGenerator from a caller-supplied
// template string, using the same helper functions as the built-in one.
func CustomHTMLGenerator(templateStr string) (*HTMLGenerator, error) {
	tmpl, err := template.New("report").Funcs(htmlFuncs).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &HTMLGenerator{template: tmpl}, nil
}
