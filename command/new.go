package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomatool/tomato-ui/internal/page"
	"github.com/tomatool/tomato-ui/internal/screenshot"
	"github.com/tomatool/tomato-ui/internal/step"
	"github.com/tomatool/tomato-ui/internal/testcase"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var newCommand = &cli.Command{
	Name:      "new",
	Usage:     "Create a test case file for a page object",
	ArgsUsage: "<case name>",
	Description: `Writes tests/<case_name>.yaml with one case that loads the page, calls each
of its actions and asserts on its first query. Argument values are ${PARAM}
placeholders to be replaced or defined in the configuration.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "page",
			Aliases:  []string{"p"},
			Required: true,
			Usage:    "page object the case drives",
		},
		&cli.StringFlag{
			Name:  "dir",
			Value: testcase.DefaultDir,
			Usage: "directory to write the file to",
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "overwrite an existing file",
		},
	},
	Action: newCase,
}

// genericMethods are registered on every page and left out of generated cases
var genericMethods = map[string]bool{
	"click":               true,
	"fill":                true,
	"wait_for_page_ready": true,
}

func newCase(c *cli.Context) error {
	name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if name == "" {
		return fmt.Errorf("this command takes one argument: <case name>")
	}

	registry := page.NewRegistry()
	pageName := c.String("page")
	if !registry.Has(pageName) {
		return fmt.Errorf("page object not found: %s (available: %s)", pageName, strings.Join(registry.Names(), ", "))
	}
	p, err := registry.Create(pageName, page.Deps{})
	if err != nil {
		return err
	}

	content, err := generateCaseFile(name, p)
	if err != nil {
		return err
	}

	path := filepath.Join(c.String("dir"), caseFileName(name))
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("writing test case file: %w", err)
	}

	fmt.Fprintln(c.App.Writer, "\n"+successStyle.Render(fmt.Sprintf("✓ Created %s", path)))
	fmt.Fprintln(c.App.Writer)
	fmt.Fprintln(c.App.Writer, "Next steps:")
	fmt.Fprintln(c.App.Writer, "  1. Replace the ${...} placeholders or define them in the configuration")
	fmt.Fprintln(c.App.Writer, "  2. Run "+selectedStyle.Render("tomato-ui run "+path))
	fmt.Fprintln(c.App.Writer)
	return nil
}

func caseFileName(name string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(screenshot.Sanitize(name)), "_"))
	if slug == "" {
		slug = "case"
	}
	return slug + ".yaml"
}

func generateCaseFile(name string, p page.Object) ([]byte, error) {
	steps := []step.Step{{Action: step.ActionLoad, Description: "open " + p.Name()}}

	var query *page.Method
	var reference []string
	for _, m := range p.Methods() {
		sig := m.Name
		if m.Kind == page.KindAction {
			sig = fmt.Sprintf("%s(%s)", m.Name, strings.Join(m.Params, ", "))
		}
		reference = append(reference, fmt.Sprintf("#   %-40s %s", sig, m.Description))

		if genericMethods[m.Name] {
			continue
		}
		switch m.Kind {
		case page.KindAction:
			args := []any{m.Name}
			for _, param := range m.Params {
				args = append(args, "${"+strings.ToUpper(param)+"}")
			}
			steps = append(steps, step.Step{Action: step.ActionCallMethod, Args: args, Description: m.Description})
		case page.KindQuery:
			if query == nil {
				query = &m
			}
		}
	}

	if query != nil {
		assertion := step.Step{Action: step.ActionAssertEqual, Method: query.Name, Expected: "${EXPECTED}"}
		if strings.HasPrefix(query.Name, "is_") {
			assertion = step.Step{Action: step.ActionAssertTrue, Method: query.Name}
		}
		assertion.Description = query.Description
		steps = append(steps, assertion)
	}

	f := testcase.File{
		Name: name,
		Cases: []testcase.Case{{
			Name:       name,
			PageObject: p.Name(),
			Steps:      steps,
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("# Methods available on %s:\n", p.Name()))
	buf.WriteString(strings.Join(reference, "\n"))
	buf.WriteString("\n\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encoding test case: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding test case: %w", err)
	}
	return buf.Bytes(), nil
}
