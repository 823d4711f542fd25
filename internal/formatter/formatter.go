package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cucumber/godog"
	"github.com/cucumber/godog/formatters"
	messages "github.com/cucumber/messages/go/v21"
)

// Format names registered with godog
const (
	FormatCases  = "cases"
	FormatEvents = "events"
)

// Event types for structured output
const (
	EventFileStart = "file_start"
	EventFileEnd   = "file_end"
	EventCaseStart = "case_start"
	EventCaseEnd   = "case_end"
	EventStepEnd   = "step_end"
	EventSummary   = "summary"
)

// Statuses
const (
	StatusPassed    = "passed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusUndefined = "undefined"
	StatusPending   = "pending"
	StatusAmbiguous = "ambiguous"
)

// Event is one JSON line of the events format
type Event struct {
	Type   string `json:"type"`
	File   string `json:"file,omitempty"`
	Case   string `json:"case,omitempty"`
	Step   string `json:"step,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`

	// Summary fields
	Total   int `json:"total,omitempty"`
	Passed  int `json:"passed,omitempty"`
	Failed  int `json:"failed,omitempty"`
	Skipped int `json:"skipped,omitempty"`
}

func init() {
	godog.Format(FormatCases, "Case by case results", CasesFormatterFunc)
	godog.Format(FormatEvents, "Structured JSON events, one per line", EventsFormatterFunc)
}

// StepTitle strips the "step N: " prefix used for compiled steps
func StepTitle(text string) string {
	if strings.HasPrefix(text, "step ") {
		if _, title, ok := strings.Cut(text, ": "); ok {
			return title
		}
	}
	return text
}

// Tally counts cases and steps as godog reports them
type Tally struct {
	file     string
	current  string
	failed   bool
	errMsg   string
	executed int
	skipped  int

	Cases, CasesPassed, CasesFailed, CasesSkipped int
	Steps, StepsPassed, StepsFailed, StepsSkipped int
}

func (t *Tally) startCase(name string) {
	t.current = name
	t.failed = false
	t.errMsg = ""
	t.executed = 0
	t.skipped = 0
	t.Cases++
}

// endCase closes the open case and returns its status, or "" if none was open
func (t *Tally) endCase() string {
	if t.current == "" {
		return ""
	}
	status := StatusPassed
	switch {
	case t.failed:
		status = StatusFailed
		t.CasesFailed++
	case t.executed == 0 && t.skipped > 0:
		status = StatusSkipped
		t.CasesSkipped++
	default:
		t.CasesPassed++
	}
	t.current = ""
	return status
}

func (t *Tally) step(status string, err error) {
	t.Steps++
	switch status {
	case StatusPassed:
		t.StepsPassed++
		t.executed++
	case StatusSkipped, StatusPending:
		t.StepsSkipped++
		t.skipped++
	default:
		t.StepsFailed++
		t.executed++
		t.failed = true
		if err != nil && t.errMsg == "" {
			t.errMsg = err.Error()
		}
	}
}

// EventsFormatter writes one JSON event per line
type EventsFormatter struct {
	out io.Writer
	Tally
}

// EventsFormatterFunc creates an EventsFormatter
func EventsFormatterFunc(suite string, out io.Writer) formatters.Formatter {
	return &EventsFormatter{out: out}
}

func (f *EventsFormatter) emit(event Event) {
	data, _ := json.Marshal(event)
	fmt.Fprintln(f.out, string(data))
}

func (f *EventsFormatter) TestRunStarted() {}

func (f *EventsFormatter) Feature(doc *messages.GherkinDocument, uri string, content []byte) {
	f.endCase()
	if f.file != "" {
		f.emit(Event{Type: EventFileEnd, File: f.file})
	}
	f.file = uri
	f.emit(Event{Type: EventFileStart, File: uri})
}

func (f *EventsFormatter) Pickle(pickle *messages.Pickle) {
	f.endCase()
	f.startCase(pickle.Name)
	f.emit(Event{Type: EventCaseStart, File: f.file, Case: pickle.Name})
}

func (f *EventsFormatter) endCase() {
	name, errMsg := f.current, f.errMsg
	if status := f.Tally.endCase(); status != "" {
		f.emit(Event{Type: EventCaseEnd, File: f.file, Case: name, Status: status, Error: errMsg})
	}
}

func (f *EventsFormatter) stepEnd(step *messages.PickleStep, status string, err error) {
	f.step(status, err)
	e := Event{Type: EventStepEnd, File: f.file, Case: f.current, Step: StepTitle(step.Text), Status: status}
	if err != nil {
		e.Error = err.Error()
	}
	f.emit(e)
}

func (f *EventsFormatter) Defined(*messages.Pickle, *messages.PickleStep, *formatters.StepDefinition) {}

func (f *EventsFormatter) Passed(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.stepEnd(step, StatusPassed, nil)
}

func (f *EventsFormatter) Failed(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition, err error) {
	f.stepEnd(step, StatusFailed, err)
}

func (f *EventsFormatter) Skipped(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.stepEnd(step, StatusSkipped, nil)
}

func (f *EventsFormatter) Undefined(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.stepEnd(step, StatusUndefined, nil)
}

func (f *EventsFormatter) Pending(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.stepEnd(step, StatusPending, nil)
}

func (f *EventsFormatter) Ambiguous(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition, err error) {
	f.stepEnd(step, StatusAmbiguous, err)
}

// Summary is called after all tests complete
func (f *EventsFormatter) Summary() {
	f.endCase()
	if f.file != "" {
		f.emit(Event{Type: EventFileEnd, File: f.file})
	}
	f.emit(Event{
		Type:    EventSummary,
		Total:   f.Cases,
		Passed:  f.CasesPassed,
		Failed:  f.CasesFailed,
		Skipped: f.CasesSkipped,
	})
}

var (
	fileStyle  = lipgloss.NewStyle().Bold(true)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	skipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// CasesFormatter prints one line per step grouped by case and file
type CasesFormatter struct {
	out io.Writer
	Tally
}

// CasesFormatterFunc creates a CasesFormatter
func CasesFormatterFunc(suite string, out io.Writer) formatters.Formatter {
	return &CasesFormatter{out: out}
}

func (f *CasesFormatter) TestRunStarted() {}

func (f *CasesFormatter) Feature(doc *messages.GherkinDocument, uri string, content []byte) {
	f.endCase()
	f.file = uri
	name := uri
	if doc != nil && doc.Feature != nil && doc.Feature.Name != "" {
		name = doc.Feature.Name
	}
	fmt.Fprintf(f.out, "\n%s %s\n", fileStyle.Render(name), mutedStyle.Render(uri))
}

func (f *CasesFormatter) Pickle(pickle *messages.Pickle) {
	f.endCase()
	f.startCase(pickle.Name)
	fmt.Fprintf(f.out, "  %s\n", pickle.Name)
}

func (f *CasesFormatter) endCase() {
	name := f.current
	switch f.Tally.endCase() {
	case StatusFailed:
		fmt.Fprintf(f.out, "  %s\n", failStyle.Render("✗ "+name))
	case StatusSkipped:
		fmt.Fprintf(f.out, "  %s\n", skipStyle.Render("- "+name+" (skipped)"))
	}
}

func (f *CasesFormatter) line(step *messages.PickleStep, status string, err error) {
	f.step(status, err)
	title := StepTitle(step.Text)
	switch status {
	case StatusPassed:
		fmt.Fprintf(f.out, "    %s %s\n", passStyle.Render("✓"), title)
	case StatusSkipped, StatusPending:
		fmt.Fprintf(f.out, "    %s %s\n", skipStyle.Render("-"), mutedStyle.Render(title))
	default:
		fmt.Fprintf(f.out, "    %s %s\n", failStyle.Render("✗"), title)
		if err != nil {
			fmt.Fprintf(f.out, "      %s\n", failStyle.Render(err.Error()))
		} else {
			fmt.Fprintf(f.out, "      %s\n", failStyle.Render(status))
		}
	}
}

func (f *CasesFormatter) Defined(*messages.Pickle, *messages.PickleStep, *formatters.StepDefinition) {}

func (f *CasesFormatter) Passed(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.line(step, StatusPassed, nil)
}

func (f *CasesFormatter) Failed(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition, err error) {
	f.line(step, StatusFailed, err)
}

func (f *CasesFormatter) Skipped(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.line(step, StatusSkipped, nil)
}

func (f *CasesFormatter) Undefined(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.line(step, StatusUndefined, nil)
}

func (f *CasesFormatter) Pending(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.line(step, StatusPending, nil)
}

func (f *CasesFormatter) Ambiguous(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition, err error) {
	f.line(step, StatusAmbiguous, err)
}

// Summary prints case and step totals
func (f *CasesFormatter) Summary() {
	f.endCase()

	fmt.Fprintln(f.out)
	fmt.Fprintf(f.out, "%d cases (%s", f.Cases, passStyle.Render(fmt.Sprintf("%d passed", f.CasesPassed)))
	if f.CasesFailed > 0 {
		fmt.Fprintf(f.out, ", %s", failStyle.Render(fmt.Sprintf("%d failed", f.CasesFailed)))
	}
	if f.CasesSkipped > 0 {
		fmt.Fprintf(f.out, ", %s", skipStyle.Render(fmt.Sprintf("%d skipped", f.CasesSkipped)))
	}
	fmt.Fprintln(f.out, ")")

	fmt.Fprintf(f.out, "%d steps (%d passed", f.Steps, f.StepsPassed)
	if f.StepsFailed > 0 {
		fmt.Fprintf(f.out, ", %d failed", f.StepsFailed)
	}
	if f.StepsSkipped > 0 {
		fmt.Fprintf(f.out, ", %d skipped", f.StepsSkipped)
	}
	fmt.Fprintln(f.out, ")")
}
