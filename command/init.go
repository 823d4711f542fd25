package command

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tomatool/tomato-ui/internal/browser"
	"github.com/tomatool/tomato-ui/internal/config"
	"github.com/tomatool/tomato-ui/internal/locator"
	"github.com/tomatool/tomato-ui/internal/testcase"
	"github.com/urfave/cli/v2"
)

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "Initialize a new tomato-ui project",
	Description: `Create config/config.yaml, config/locators.yaml and tests/example.yaml.

Guides you through picking a browser, the base URL and, optionally, how to
start the application under test. Use --plain or --browser to skip the wizard.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "overwrite existing files",
		},
		&cli.BoolFlag{
			Name:  "plain",
			Usage: "skip the interactive wizard and use flags or defaults",
		},
		&cli.StringFlag{
			Name:  "browser",
			Usage: "browser to configure (chromium, firefox, webkit)",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Value: "http://localhost:3000",
			Usage: "base URL of the application under test",
		},
		&cli.StringFlag{
			Name:  "dir",
			Value: ".",
			Usage: "project directory",
		},
		&cli.BoolFlag{
			Name:  "install",
			Usage: "download the playwright driver and the selected browser",
		},
	},
	Action: runInit,
}

// initAnswers is what the wizard collects
type initAnswers struct {
	Browser    string
	BaseURL    string
	RunnerType string // "docker", "command" or empty
	AppValue   string // Dockerfile path or shell command
}

type initStep int

const (
	stepBrowser initStep = iota
	stepBaseURL
	stepAppRunner
	stepAppInput
	stepConfirm
)

var browserChoices = []struct {
	name        string
	description string
}{
	{"chromium", "Chrome and Edge engine, fastest to install"},
	{"firefox", "Gecko engine"},
	{"webkit", "Safari engine"},
}

var runnerChoices = []struct {
	name string
	desc string
}{
	{"Docker", "Build and run from Dockerfile"},
	{"Custom command", "Run with shell command (e.g., npm start, go run .)"},
	{"Skip", "The application is already running"},
}

type initModel struct {
	step   initStep
	cursor int

	answers     initAnswers
	dockerfiles []string
	input       textinput.Model

	done      bool
	cancelled bool
}

func initialInitModel(baseURL, dir string) initModel {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 256
	input.Width = 60

	return initModel{
		step:        stepBrowser,
		answers:     initAnswers{BaseURL: baseURL},
		dockerfiles: findDockerfiles(dir),
		input:       input,
	}
}

func findDockerfiles(dir string) []string {
	var files []string
	seen := map[string]bool{}

	candidates := []string{
		"Dockerfile",
		"Dockerfile.dev",
		"Dockerfile.test",
		"docker/Dockerfile",
		"build/Dockerfile",
	}
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(dir, c)); err == nil {
			files = append(files, c)
			seen[c] = true
		}
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "Dockerfile") && !seen[e.Name()] {
			files = append(files, e.Name())
			seen[e.Name()] = true
		}
	}
	return files
}

func (m initModel) Init() tea.Cmd {
	return nil
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.inputStep() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.inputStep() {
		return m.handleTextInput(key)
	}

	switch key.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < m.getMaxCursor() {
			m.cursor++
		}

	case "enter":
		return m.handleEnter()
	}
	return m, nil
}

func (m initModel) inputStep() bool {
	return m.step == stepBaseURL || m.step == stepAppInput
}

func (m initModel) handleTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancelled = true
		return m, tea.Quit

	case tea.KeyEsc:
		m.input.Blur()
		if m.step == stepBaseURL {
			m.step = stepBrowser
		} else {
			m.step = stepAppRunner
		}
		m.cursor = 0
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}
		m.input.Blur()
		if m.step == stepBaseURL {
			m.answers.BaseURL = value
			m.step = stepAppRunner
		} else {
			m.answers.AppValue = value
			m.step = stepConfirm
		}
		m.cursor = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m initModel) getMaxCursor() int {
	switch m.step {
	case stepBrowser:
		return len(browserChoices) - 1
	case stepAppRunner:
		return len(runnerChoices) - 1
	case stepConfirm:
		return 1 // Create, Cancel
	default:
		return 0
	}
}

func (m initModel) startInput(value, placeholder string) (initModel, tea.Cmd) {
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	m.input.CursorEnd()
	cmd := m.input.Focus()
	return m, cmd
}

func (m initModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepBrowser:
		m.answers.Browser = browserChoices[m.cursor].name
		m.step = stepBaseURL
		m.cursor = 0
		return m.startInput(m.answers.BaseURL, "http://localhost:3000")

	case stepAppRunner:
		switch m.cursor {
		case 0: // Docker
			m.answers.RunnerType = "docker"
			m.step = stepAppInput
			m.cursor = 0
			value := "Dockerfile"
			if len(m.dockerfiles) > 0 {
				value = m.dockerfiles[0]
			}
			return m.startInput(value, "Dockerfile")
		case 1: // Custom command
			m.answers.RunnerType = "command"
			m.step = stepAppInput
			m.cursor = 0
			return m.startInput("", "npm start")
		default: // Skip
			m.answers.RunnerType = ""
			m.answers.AppValue = ""
			m.step = stepConfirm
			m.cursor = 0
		}

	case stepConfirm:
		if m.cursor == 0 {
			m.done = true
		} else {
			m.cancelled = true
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("🍅 tomato-ui init"))
	s.WriteString("\n")

	switch m.step {
	case stepBrowser:
		s.WriteString(subtitleStyle.Render("Which browser should run the tests?"))
		s.WriteString("\n\n")
		for i, b := range browserChoices {
			s.WriteString(m.option(i, b.name, b.description))
		}
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("↑/↓ move • ENTER select • q quit"))

	case stepBaseURL:
		s.WriteString(subtitleStyle.Render("Base URL of the application under test:"))
		s.WriteString("\n\n")
		s.WriteString(m.input.View())
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("ENTER confirm • ESC back"))

	case stepAppRunner:
		s.WriteString(subtitleStyle.Render("Should tomato-ui start your application?"))
		s.WriteString("\n\n")
		for i, opt := range runnerChoices {
			s.WriteString(m.option(i, opt.name, opt.desc))
		}
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("ENTER select"))

	case stepAppInput:
		if m.answers.RunnerType == "docker" {
			s.WriteString(subtitleStyle.Render("Dockerfile path:"))
		} else {
			s.WriteString(subtitleStyle.Render("Command to run your application:"))
		}
		s.WriteString("\n\n")
		s.WriteString(m.input.View())
		s.WriteString("\n\n")
		if m.answers.RunnerType == "docker" && len(m.dockerfiles) > 0 {
			s.WriteString(helpStyle.Render("Found: " + strings.Join(m.dockerfiles, ", ")))
			s.WriteString("\n")
		}
		s.WriteString(helpStyle.Render("ENTER confirm • ESC back"))

	case stepConfirm:
		s.WriteString(subtitleStyle.Render("Ready to create the project"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Browser:  %s\n", m.answers.Browser))
		s.WriteString(fmt.Sprintf("Base URL: %s\n", m.answers.BaseURL))
		switch m.answers.RunnerType {
		case "docker":
			s.WriteString(fmt.Sprintf("App:      Docker: %s\n", m.answers.AppValue))
		case "command":
			s.WriteString(fmt.Sprintf("App:      Command: %s\n", m.answers.AppValue))
		default:
			s.WriteString("App:      (not started by tomato-ui)\n")
		}
		s.WriteString("\n")
		for i, opt := range []string{"Create project", "Cancel"} {
			s.WriteString(m.option(i, opt, ""))
		}
	}

	return s.String()
}

func (m initModel) option(i int, name, description string) string {
	cursor := "  "
	style := unselectedStyle
	if i == m.cursor {
		cursor = "> "
		style = selectedStyle
	}
	line := cursor + style.Render(name)
	if i == m.cursor && description != "" {
		line += helpStyle.UnsetMarginTop().Render("  " + description)
	}
	return line + "\n"
}

func runInit(c *cli.Context) error {
	dir := c.String("dir")
	force := c.Bool("force")

	if !force {
		if _, err := os.Stat(filepath.Join(dir, config.DefaultFile)); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", config.DefaultFile)
		}
	}

	answers := initAnswers{
		Browser: c.String("browser"),
		BaseURL: c.String("base-url"),
	}

	if answers.Browser == "" && !c.Bool("plain") {
		result, err := tea.NewProgram(initialInitModel(answers.BaseURL, dir)).Run()
		if err != nil {
			return fmt.Errorf("error running init: %w", err)
		}
		final := result.(initModel)
		if final.cancelled || !final.done {
			fmt.Fprintln(c.App.Writer, "\nCancelled.")
			return nil
		}
		answers = final.answers
	}
	if answers.Browser == "" {
		answers.Browser = "chromium"
	}

	created, err := writeScaffold(dir, answers, force)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer)
	for _, path := range created {
		fmt.Fprintln(c.App.Writer, successStyle.Render("✓ Created "+path))
	}

	if c.Bool("install") {
		fmt.Fprintf(c.App.Writer, "Installing playwright and %s...\n", answers.Browser)
		if err := browser.Install(answers.Browser); err != nil {
			return fmt.Errorf("installing %s: %w", answers.Browser, err)
		}
		fmt.Fprintln(c.App.Writer, successStyle.Render("✓ Installed "+answers.Browser))
	}

	fmt.Fprintln(c.App.Writer)
	fmt.Fprintln(c.App.Writer, "Next steps:")
	fmt.Fprintln(c.App.Writer, "  1. Point the selectors in "+locator.DefaultFile+" at your pages")
	fmt.Fprintln(c.App.Writer, "  2. Write test cases under "+testcase.DefaultDir+"/")
	fmt.Fprintln(c.App.Writer, "  3. Run "+selectedStyle.Render("tomato-ui validate")+" then "+selectedStyle.Render("tomato-ui run"))
	fmt.Fprintln(c.App.Writer)
	return nil
}

// writeScaffold writes the project files. Existing test cases are kept unless force is set.
func writeScaffold(dir string, answers initAnswers, force bool) ([]string, error) {
	files := []struct {
		path    string
		content string
		keep    bool
	}{
		{config.DefaultFile, generateConfig(answers), false},
		{locator.DefaultFile, exampleLocators, !force},
		{filepath.Join(testcase.DefaultDir, "example.yaml"), exampleCases, !force},
	}

	var created []string
	for _, f := range files {
		path := filepath.Join(dir, f.path)
		if _, err := os.Stat(path); err == nil && f.keep {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return created, fmt.Errorf("creating %s: %w", filepath.Dir(f.path), err)
		}
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return created, fmt.Errorf("creating %s: %w", f.path, err)
		}
		created = append(created, f.path)
	}
	return created, nil
}

func appPort(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Port() == "" {
		return "8080"
	}
	return u.Port()
}

func generateConfig(a initAnswers) string {
	var s strings.Builder

	s.WriteString("# tomato-ui configuration\n")
	s.WriteString("# Every value can be overridden with UI_AUTOMATION_<PATH>, e.g. UI_AUTOMATION_BROWSER=firefox\n\n")
	s.WriteString(fmt.Sprintf("base_url: %s\n", a.BaseURL))
	s.WriteString(fmt.Sprintf("browser: %s\n", a.Browser))
	s.WriteString("headless: true\n\n")

	s.WriteString("timeout:\n")
	s.WriteString("  page_load: 30000\n")
	s.WriteString("  element: 5000\n\n")

	s.WriteString("report:\n")
	s.WriteString("  allure_results: reports/allure-results\n")
	s.WriteString("  screenshots: screenshots\n\n")

	s.WriteString(fmt.Sprintf("locators: %s\n\n", locator.DefaultFile))

	s.WriteString("# ${NAME} placeholders in test cases resolve to top level values\n")
	s.WriteString("username: demo_user\n")
	s.WriteString("password: demo_password\n\n")
	s.WriteString("variables:\n")
	s.WriteString("  strict: false\n\n")

	if a.RunnerType != "" && a.AppValue != "" {
		s.WriteString("# Application under test\n")
		s.WriteString("app:\n")
		if a.RunnerType == "docker" {
			s.WriteString("  build:\n")
			s.WriteString(fmt.Sprintf("    dockerfile: %s\n", a.AppValue))
			s.WriteString("    context: .\n")
		} else {
			s.WriteString(fmt.Sprintf("  command: %q\n", a.AppValue))
		}
		s.WriteString(fmt.Sprintf("  port: %s\n", appPort(a.BaseURL)))
		s.WriteString("  ready:\n")
		s.WriteString("    type: http\n")
		s.WriteString("    path: /\n")
		s.WriteString("    timeout: 60s\n\n")
	}

	s.WriteString("environments:\n")
	s.WriteString("  test: {}\n")
	s.WriteString("  dev:\n")
	s.WriteString("    headless: false\n")
	s.WriteString("    slow_mo: 250\n")

	return s.String()
}

const exampleLocators = `# Selectors per page object. "url" is the page path joined onto base_url.
login_page:
  url: /login
  username_input: "#username"
  password_input: "#password"
  login_button: "button[type=submit]"
  error_message: ".error-message"
  success_message: ".success-message"

search_page:
  url: /search
  search_input: "input[name=q]"
  search_button: "button[type=submit]"
  results_container: "#results"
  result_item: "#results .result"
  no_results_message: ".no-results"
`

const exampleCases = `name: Example
cases:
  - name: search returns results
    description: Searching a common keyword shows at least one result
    page_object: search_page
    tags: [smoke]
    steps:
      - action: load
        description: open the search page
      - action: call_method
        args: [perform_search, tomato]
        description: search for a keyword
      - action: assert_greater_than
        method: get_search_result_count
        expected: 0
        description: results are listed

  - name: login with valid credentials
    page_object: login_page
    tags: [smoke]
    steps:
      - action: load
      - action: call_method
        args: [input_login_info, "${USERNAME}", "${PASSWORD}"]
        description: enter credentials
      - action: call_method
        args: [click_login_button]
      - action: assert_true
        method: is_login_success

  - name: login with an unknown user shows an error
    page_object: login_page
    steps:
      - action: load
      - action: call_method
        args: [input_login_info, "${RANDOM_EMAIL}", "${RANDOM_STRING:12}"]
      - action: call_method
        args: [click_login_button]
      - action: assert_true
        method: is_error_message_visible
`
