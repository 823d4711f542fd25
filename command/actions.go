package command

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tomatool/tomato-ui/internal/page"
	"github.com/tomatool/tomato-ui/internal/step"
	"github.com/urfave/cli/v2"
)

var actionsCommand = &cli.Command{
	Name:  "actions",
	Usage: "List step actions and page object methods",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Filter methods by keyword",
		},
		&cli.StringFlag{
			Name:    "page",
			Aliases: []string{"p"},
			Usage:   "Only show one page object",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output in JSON format",
		},
	},
	Action: runActions,
}

// PageMethods lists the methods of one page object
type PageMethods struct {
	Name    string        `json:"name"`
	Methods []page.Method `json:"methods"`
}

// Catalog is everything a test case can reference
type Catalog struct {
	Actions []step.ActionInfo `json:"actions"`
	Pages   []PageMethods     `json:"pages"`
}

func runActions(c *cli.Context) error {
	catalog, err := collectCatalog(page.NewRegistry(), strings.ToLower(c.String("filter")), c.String("page"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		output, err := json.MarshalIndent(catalog, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(c.App.Writer, string(output))
		return nil
	}

	printCatalog(c.App.Writer, catalog)
	return nil
}

func collectCatalog(registry *page.Registry, filter, only string) (Catalog, error) {
	catalog := Catalog{Actions: step.Actions()}

	names := registry.Names()
	if only != "" {
		if !registry.Has(only) {
			return Catalog{}, fmt.Errorf("page object not found: %s", only)
		}
		names = []string{only}
	}

	for _, name := range names {
		p, err := registry.Create(name, page.Deps{})
		if err != nil {
			return Catalog{}, err
		}

		var methods []page.Method
		for _, m := range p.Methods() {
			if filter != "" &&
				!strings.Contains(strings.ToLower(m.Name), filter) &&
				!strings.Contains(strings.ToLower(m.Description), filter) {
				continue
			}
			methods = append(methods, m)
		}
		if len(methods) == 0 && filter != "" {
			continue
		}
		catalog.Pages = append(catalog.Pages, PageMethods{Name: name, Methods: methods})
	}
	return catalog, nil
}

func printCatalog(w io.Writer, catalog Catalog) {
	fmt.Fprintf(w, "\n\033[1;36m%s\033[0m\n", "Step actions")
	fmt.Fprintf(w, "\033[90m%s\033[0m\n\n", "Every step record names one action")
	for _, a := range catalog.Actions {
		fmt.Fprintf(w, "  \033[1m%s\033[0m\n", a.Name)
		fmt.Fprintf(w, "  \033[90m%s (fields: %s)\033[0m\n\n", a.Description, strings.Join(a.Fields, ", "))
	}

	for _, p := range catalog.Pages {
		fmt.Fprintf(w, "\n\033[1;36m%s\033[0m\n\n", p.Name)
		for _, m := range p.Methods {
			signature := m.Name
			if m.Kind == page.KindAction {
				signature = fmt.Sprintf("%s(%s)", m.Name, strings.Join(m.Params, ", "))
			}
			fmt.Fprintf(w, "  \033[1m%s\033[0m \033[33m%s\033[0m\n", signature, m.Kind)
			fmt.Fprintf(w, "  \033[90m%s\033[0m\n\n", m.Description)
		}
	}
}
