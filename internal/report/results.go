// Package report writes Allure compatible result files and per-run logs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/step"
)

// Status of a test case or step
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusBroken  Status = "broken"
	StatusSkipped Status = "skipped"
)

// StatusFor maps an error to a status. Assertion failures are failed,
// anything else that went wrong is broken.
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusPassed
	case step.IsAssertion(err):
		return StatusFailed
	default:
		return StatusBroken
	}
}

// Label is an Allure label such as suite, tag or feature
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attachment references a file copied into the results directory
type Attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// StatusDetails carries the failure message
type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// StepResult is one reported step
type StepResult struct {
	Name          string         `json:"name"`
	Status        Status         `json:"status"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         string         `json:"stage"`
	Attachments   []Attachment   `json:"attachments"`
	Start         int64          `json:"start"`
	Stop          int64          `json:"stop"`
}

// CaseResult is the content of a <uuid>-result.json file
type CaseResult struct {
	UUID          string         `json:"uuid"`
	HistoryID     string         `json:"historyId"`
	Name          string         `json:"name"`
	FullName      string         `json:"fullName"`
	Description   string         `json:"description,omitempty"`
	Status        Status         `json:"status"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         string         `json:"stage"`
	Steps         []*StepResult  `json:"steps"`
	Attachments   []Attachment   `json:"attachments"`
	Labels        []Label        `json:"labels"`
	Start         int64          `json:"start"`
	Stop          int64          `json:"stop"`
}

// Results is an Allure results directory
type Results struct {
	dir string
	now func() time.Time
}

// Open creates dir if needed
func Open(dir string) (*Results, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	return &Results{dir: dir, now: time.Now}, nil
}

// Dir returns the results directory
func (r *Results) Dir() string { return r.dir }

// WriteEnvironment writes environment.properties shown on the report overview
func (r *Results) WriteEnvironment(props map[string]string) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, props[k])
	}
	return os.WriteFile(filepath.Join(r.dir, "environment.properties"), []byte(b.String()), 0644)
}

// StartCase begins a test case result
func (r *Results) StartCase(name, fullName string, labels ...Label) *Case {
	return &Case{
		results: r,
		result: CaseResult{
			UUID:        uuid.New().String(),
			HistoryID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte(fullName)).String(),
			Name:        name,
			FullName:    fullName,
			Stage:       "running",
			Steps:       []*StepResult{},
			Attachments: []Attachment{},
			Labels:      labels,
			Start:       r.millis(),
		},
	}
}

func (r *Results) millis() int64 {
	return r.now().UnixMilli()
}

// Case collects steps and attachments until Finish writes it out
type Case struct {
	mu      sync.Mutex
	results *Results
	result  CaseResult
	current *StepResult
}

// UUID returns the result identifier
func (c *Case) UUID() string { return c.result.UUID }

// SetDescription sets the text shown under the case name
func (c *Case) SetDescription(description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Description = description
}

// StartStep opens a step; attachments go to it until FinishStep
func (c *Case) StartStep(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = &StepResult{
		Name:        name,
		Stage:       "running",
		Attachments: []Attachment{},
		Start:       c.results.millis(),
	}
	c.result.Steps = append(c.result.Steps, c.current)
}

// FinishStep closes the open step with the status derived from err
func (c *Case) FinishStep(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	c.current.Status = StatusFor(err)
	c.current.StatusDetails = details(err)
	c.current.Stage = "finished"
	c.current.Stop = c.results.millis()
	c.current = nil
}

// Attach copies the file at path into the results directory and references it
// from the open step, or from the case when no step is open.
func (c *Case) Attach(name, path, mediaType string) error {
	source := uuid.New().String() + "-attachment" + filepath.Ext(path)
	if err := copyFile(path, filepath.Join(c.results.dir, source)); err != nil {
		return fmt.Errorf("attaching %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	a := Attachment{Name: name, Source: source, Type: mediaType}
	if c.current != nil {
		c.current.Attachments = append(c.current.Attachments, a)
	} else {
		c.result.Attachments = append(c.result.Attachments, a)
	}
	return nil
}

// Finish closes any open step and writes <uuid>-result.json
func (c *Case) Finish(err error) error {
	c.FinishStep(err)

	c.mu.Lock()
	c.result.Status = StatusFor(err)
	c.result.StatusDetails = details(err)
	c.result.Stage = "finished"
	c.result.Stop = c.results.millis()
	data, merr := json.MarshalIndent(c.result, "", "  ")
	c.mu.Unlock()

	if merr != nil {
		return fmt.Errorf("encoding result: %w", merr)
	}

	path := filepath.Join(c.results.dir, c.result.UUID+"-result.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	log.Debug().Str("case", c.result.Name).Str("status", string(c.result.Status)).Str("path", path).Msg("result written")
	return nil
}

// Result returns a copy of the current result
func (c *Case) Result() CaseResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func details(err error) *StatusDetails {
	if err == nil {
		return nil
	}
	return &StatusDetails{Message: err.Error()}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
