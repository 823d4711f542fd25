package command

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/tomatool/tomato-ui/internal/page"
	"github.com/urfave/cli/v2"
)

var docsCommand = &cli.Command{
	Name:   "docs",
	Usage:  "Generate a reference of step actions and page object methods",
	Hidden: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file (stdout when empty)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "markdown",
			Usage:   "Output format: markdown, html",
		},
	},
	Action: runDocs,
}

var docsFuncs = template.FuncMap{
	"join": strings.Join,
	"signature": func(m page.Method) string {
		if m.Kind == page.KindQuery {
			return m.Name
		}
		return fmt.Sprintf("%s(%s)", m.Name, strings.Join(m.Params, ", "))
	},
}

func runDocs(ctx *cli.Context) error {
	catalog, err := collectCatalog(page.NewRegistry(), "", "")
	if err != nil {
		return err
	}

	var w io.Writer = ctx.App.Writer
	if output := ctx.String("output"); output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return generateDocs(w, ctx.String("format"), catalog)
}

func generateDocs(w io.Writer, format string, catalog Catalog) error {
	var text string
	switch format {
	case "markdown", "md":
		text = markdownTemplate
	case "html":
		text = htmlTemplate
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	tmpl, err := template.New("docs").Funcs(docsFuncs).Parse(text)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	return tmpl.Execute(w, catalog)
}

const markdownTemplate = `# tomato-ui reference

## Step actions

| Action | Fields | Description |
|--------|--------|-------------|
{{range .Actions}}| ` + "`" + `{{.Name}}` + "`" + ` | {{join .Fields ", "}} | {{.Description}} |
{{end}}
## Page objects
{{range .Pages}}
### {{.Name}}

| Method | Kind | Description |
|--------|------|-------------|
{{range .Methods}}| ` + "`" + `{{signature .}}` + "`" + ` | {{.Kind}} | {{.Description}} |
{{end}}{{end}}`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>tomato-ui reference</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; }
        h1 { color: #e74c3c; }
        h2 { color: #2c3e50; border-bottom: 2px solid #e74c3c; padding-bottom: 10px; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f8f9fa; }
        code { background: #f8f9fa; padding: 2px 6px; border-radius: 4px; font-family: monospace; }
    </style>
</head>
<body>
    <h1>tomato-ui reference</h1>
    <h2>Step actions</h2>
    <table>
        <tr><th>Action</th><th>Fields</th><th>Description</th></tr>
        {{range .Actions}}
        <tr><td><code>{{.Name}}</code></td><td>{{join .Fields ", "}}</td><td>{{.Description}}</td></tr>
        {{end}}
    </table>
    {{range .Pages}}
    <h2>{{.Name}}</h2>
    <table>
        <tr><th>Method</th><th>Kind</th><th>Description</th></tr>
        {{range .Methods}}
        <tr><td><code>{{signature .}}</code></td><td>{{.Kind}}</td><td>{{.Description}}</td></tr>
        {{end}}
    </table>
    {{end}}
</body>
</html>`
