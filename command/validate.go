package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tomatool/tomato-ui/internal/apprunner"
	"github.com/tomatool/tomato-ui/internal/config"
	"github.com/tomatool/tomato-ui/internal/locator"
	"github.com/tomatool/tomato-ui/internal/page"
	"github.com/tomatool/tomato-ui/internal/services"
	"github.com/tomatool/tomato-ui/internal/step"
	"github.com/tomatool/tomato-ui/internal/suite"
	"github.com/tomatool/tomato-ui/internal/testcase"
	"github.com/urfave/cli/v2"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Validate configuration, locators and test cases without a browser",
	ArgsUsage: "[files or directories...]",
	Flags: append(projectFlags(),
		&cli.BoolFlag{
			Name:  "plain",
			Usage: "disable colors and interactive UI (for CI)",
		},
	),
	Action: runValidate,
}

// Result statuses
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// ValidationResult holds the result of a validation check
type ValidationResult struct {
	Category   string
	Item       string
	Status     string
	Message    string
	Suggestion string
}

// Validator performs all validation checks
type Validator struct {
	loadConfig   func() (*config.Config, error)
	locatorsPath func(cfg *config.Config) string
	paths        []string
	pages        *page.Registry

	config   *config.Config
	locators *locator.Locators
	files    []*testcase.File
	results  []ValidationResult
}

func runValidate(c *cli.Context) error {
	v := &Validator{
		loadConfig:   func() (*config.Config, error) { return loadConfig(c) },
		locatorsPath: func(cfg *config.Config) string { return locatorsPath(c, cfg) },
		paths:        testPaths(c),
		pages:        page.NewRegistry(),
	}

	if c.Bool("plain") {
		return v.runPlain(c.App.Writer)
	}
	return v.runInteractive()
}

func (v *Validator) add(r ValidationResult) {
	v.results = append(v.results, r)
}

func (v *Validator) count(status string) int {
	n := 0
	for _, r := range v.results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// runPlain runs validation without Bubble Tea UI
func (v *Validator) runPlain(w io.Writer) error {
	fmt.Fprintln(w, "Validating tomato-ui project...")
	fmt.Fprintln(w)

	v.validate()

	category := ""
	for _, r := range v.results {
		if r.Category != category {
			if category != "" {
				fmt.Fprintln(w)
			}
			category = r.Category
			fmt.Fprintf(w, "[%s]\n", category)
		}

		icon := "✓"
		if r.Status == statusError {
			icon = "✗"
		} else if r.Status == statusWarning {
			icon = "!"
		}

		fmt.Fprintf(w, "  %s %s", icon, r.Item)
		if r.Message != "" {
			fmt.Fprintf(w, ": %s", r.Message)
		}
		fmt.Fprintln(w)

		if r.Suggestion != "" {
			fmt.Fprintf(w, "    → %s\n", r.Suggestion)
		}
	}
	fmt.Fprintln(w)

	errorCount := v.count(statusError)
	warningCount := v.count(statusWarning)
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", v.count(statusOK), warningCount, errorCount)

	if errorCount > 0 {
		return fmt.Errorf("validation failed with %d error(s)", errorCount)
	}
	if warningCount > 0 {
		fmt.Fprintln(w, "Validation passed with warnings")
	} else {
		fmt.Fprintln(w, "Validation passed!")
	}
	return nil
}

// runInteractive runs validation with Bubble Tea UI
func (v *Validator) runInteractive() error {
	p := tea.NewProgram(newValidateModel(v))
	m, err := p.Run()
	if err != nil {
		return err
	}

	model := m.(validateModel)
	if model.hasErrors {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// validate performs all validation checks
func (v *Validator) validate() {
	v.validateConfig()
	if v.config == nil {
		return
	}
	v.validateApp()
	v.validateLocators()
	v.validateTestCases()
	if len(v.files) == 0 {
		return
	}
	v.validatePageObjects()
	v.validateSteps()
	v.validateCompile()
}

func (v *Validator) validateConfig() {
	cfg, err := v.loadConfig()
	if err != nil {
		v.add(ValidationResult{
			Category:   "Config",
			Item:       "configuration",
			Status:     statusError,
			Message:    err.Error(),
			Suggestion: "Check the config file syntax and the UI_AUTOMATION_* variables",
		})
		return
	}
	v.config = cfg

	if _, err := os.Stat(cfg.File()); os.IsNotExist(err) {
		v.add(ValidationResult{
			Category:   "Config",
			Item:       cfg.File(),
			Status:     statusWarning,
			Message:    "config file not found, using defaults",
			Suggestion: "Run 'tomato-ui init' or specify a path with --config",
		})
	}

	v.add(ValidationResult{
		Category: "Config",
		Item:     "configuration",
		Status:   statusOK,
		Message: fmt.Sprintf("env %s, browser %s, base_url %s",
			cfg.Env(), cfg.String("browser", ""), cfg.String("base_url", "")),
	})
}

// validateApp checks the app and services blocks when they are present
func (v *Validator) validateApp() {
	app, ok, err := apprunner.FromConfig(v.config)
	switch {
	case err != nil:
		v.add(ValidationResult{Category: "App", Item: "app", Status: statusError, Message: err.Error(),
			Suggestion: "Set app.command, app.image or app.build and a ready type of http, tcp or exec"})
	case ok:
		mode := "command"
		if app.UseContainer() {
			mode = "container"
		}
		v.add(ValidationResult{Category: "App", Item: app.GetName(), Status: statusOK,
			Message: fmt.Sprintf("runs as %s on port %d", mode, app.Port)})
	}

	configs, err := services.FromConfig(v.config)
	if err != nil {
		v.add(ValidationResult{Category: "App", Item: "services", Status: statusError, Message: err.Error(),
			Suggestion: "Every service needs an image and may only depend on other services"})
		return
	}
	if len(configs) == 0 {
		return
	}
	m, err := services.NewManager(configs)
	if err != nil {
		v.add(ValidationResult{Category: "App", Item: "services", Status: statusError, Message: err.Error(),
			Suggestion: "Remove the depends_on entry that closes the cycle"})
		return
	}
	v.add(ValidationResult{Category: "App", Item: "services", Status: statusOK,
		Message: "start order " + strings.Join(m.Order(), ", ")})
}

func (v *Validator) validateLocators() {
	path := v.locatorsPath(v.config)
	locators, err := locator.Load(path)
	if err != nil {
		v.add(ValidationResult{
			Category:   "Locators",
			Item:       path,
			Status:     statusError,
			Message:    err.Error(),
			Suggestion: "Locators map page names to element selectors, e.g. login_page: {login_button: \"#login\"}",
		})
		return
	}
	v.locators = locators
	v.add(ValidationResult{
		Category: "Locators",
		Item:     path,
		Status:   statusOK,
		Message:  fmt.Sprintf("%d page(s): %s", len(locators.Pages()), strings.Join(locators.Pages(), ", ")),
	})
}

func (v *Validator) validateTestCases() {
	found, err := testcase.Discover(v.paths)
	if err != nil {
		v.add(ValidationResult{
			Category:   "Test cases",
			Item:       strings.Join(v.paths, ", "),
			Status:     statusError,
			Message:    err.Error(),
			Suggestion: "Create .yaml test case files under " + testcase.DefaultDir,
		})
		return
	}

	for _, path := range found {
		f, err := testcase.Load(path)
		if err != nil {
			v.add(ValidationResult{
				Category: "Test cases",
				Item:     path,
				Status:   statusError,
				Message:  err.Error(),
			})
			continue
		}
		v.files = append(v.files, f)
		v.add(ValidationResult{
			Category: "Test cases",
			Item:     path,
			Status:   statusOK,
			Message:  fmt.Sprintf("%d case(s)", len(f.Cases)),
		})
	}
}

func (v *Validator) validatePageObjects() {
	used := map[string]bool{}
	for _, f := range v.files {
		for _, c := range f.Cases {
			if used[c.PageObject] {
				continue
			}
			used[c.PageObject] = true

			switch {
			case !v.pages.Has(c.PageObject):
				v.add(ValidationResult{
					Category:   "Page objects",
					Item:       c.PageObject,
					Status:     statusError,
					Message:    "page object not found",
					Suggestion: "Available: " + strings.Join(v.pages.Names(), ", "),
				})
			case v.locators != nil && !v.locators.HasPage(c.PageObject):
				v.add(ValidationResult{
					Category:   "Page objects",
					Item:       c.PageObject,
					Status:     statusWarning,
					Message:    "no locators defined for this page",
					Suggestion: fmt.Sprintf("Add a %s section to the locators file", c.PageObject),
				})
			default:
				v.add(ValidationResult{
					Category: "Page objects",
					Item:     c.PageObject,
					Status:   statusOK,
				})
			}
		}
	}
}

func (v *Validator) validateSteps() {
	deps := page.Deps{Locators: v.locators}
	for _, f := range v.files {
		for _, c := range f.Cases {
			if !v.pages.Has(c.PageObject) {
				continue
			}
			p, err := v.pages.Create(c.PageObject, deps)
			if err != nil {
				continue
			}

			var problems []string
			for i, s := range c.Steps {
				if err := step.Check(p, s); err != nil {
					problems = append(problems, fmt.Sprintf("step %d: %v", i+1, err))
				}
			}

			item := fmt.Sprintf("%s: %s", f.Title(), c.Name)
			if len(problems) > 0 {
				v.add(ValidationResult{
					Category:   "Steps",
					Item:       item,
					Status:     statusError,
					Message:    strings.Join(problems, "; "),
					Suggestion: "Run 'tomato-ui actions' to see available actions and methods",
				})
				continue
			}
			v.add(ValidationResult{
				Category: "Steps",
				Item:     item,
				Status:   statusOK,
				Message:  fmt.Sprintf("%d step(s)", len(c.Steps)),
			})
		}
	}
}

// validateCompile checks the generated scenarios parse
func (v *Validator) validateCompile() {
	offset := 0
	for _, f := range v.files {
		if _, err := suite.Compile(f, offset); err != nil {
			v.add(ValidationResult{
				Category: "Test cases",
				Item:     f.Path,
				Status:   statusError,
				Message:  err.Error(),
			})
		}
		offset += len(f.Cases)
	}
}

// Bubble Tea Model
type validateModel struct {
	validator   *Validator
	spinner     spinner.Model
	done        bool
	hasErrors   bool
	hasWarnings bool
}

func newValidateModel(v *Validator) validateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	return validateModel{
		validator: v,
		spinner:   s,
	}
}

type validationDoneMsg struct{}

func (m validateModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			m.validator.validate()
			return validationDoneMsg{}
		},
	)
}

func (m validateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case validationDoneMsg:
		m.done = true
		m.hasErrors = m.validator.count(statusError) > 0
		m.hasWarnings = m.validator.count(statusWarning) > 0
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m validateModel) View() string {
	var s strings.Builder

	categoryStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	suggestionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Italic(true)

	s.WriteString("\n")
	s.WriteString(titleStyle.Render("🍅 tomato-ui validate"))
	s.WriteString("\n")

	if !m.done {
		s.WriteString(m.spinner.View())
		s.WriteString(" Validating project...")
		return s.String()
	}

	category := ""
	for _, r := range m.validator.results {
		if r.Category != category {
			if category != "" {
				s.WriteString("\n")
			}
			category = r.Category
			s.WriteString(categoryStyle.Render(category))
			s.WriteString("\n")
		}

		var icon string
		switch r.Status {
		case statusOK:
			icon = successStyle.Render("✓")
		case statusWarning:
			icon = warnStyle.Render("!")
		default:
			icon = errorStyle.Render("✗")
		}

		s.WriteString(fmt.Sprintf("  %s %s", icon, r.Item))
		if r.Message != "" {
			s.WriteString(helpStyle.UnsetMarginTop().Render(": " + r.Message))
		}
		s.WriteString("\n")
		if r.Suggestion != "" {
			s.WriteString(suggestionStyle.Render("    → " + r.Suggestion))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	switch {
	case m.hasErrors:
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %d error(s)", m.validator.count(statusError))))
	case m.hasWarnings:
		s.WriteString(warnStyle.Render("Validation passed with warnings"))
	default:
		s.WriteString(successStyle.Render("✓ Validation passed"))
	}
	s.WriteString("\n")
	return s.String()
}
