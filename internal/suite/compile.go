package suite

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/tomatool/tomato-ui/internal/testcase"
)

const caseTagPrefix = "@case_"

// stepPattern matches the step lines Compile writes
var stepPattern = regexp.MustCompile(`^step (\d+)(?::.*)?$`)

var tagChars = regexp.MustCompile(`[^A-Za-z0-9_\-.]+`)

// Compile renders a test case file as a Gherkin feature. Each case becomes a
// scenario tagged @case_<n> where n is offset plus its position, so tags stay
// unique across files. Every YAML step becomes "step <i>: <title>".
func Compile(f *testcase.File, offset int) (godog.Feature, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Feature: %s\n", oneLine(f.Title()))

	for i, c := range f.Cases {
		tags := []string{caseTagPrefix + strconv.Itoa(offset+i+1)}
		for _, t := range c.Tags {
			if clean := tagChars.ReplaceAllString(strings.TrimPrefix(t, "@"), "_"); clean != "" {
				tags = append(tags, "@"+clean)
			}
		}

		fmt.Fprintf(&b, "\n  %s\n", strings.Join(tags, " "))
		fmt.Fprintf(&b, "  Scenario: %s\n", oneLine(c.Name))
		for j, s := range c.Steps {
			keyword := "And"
			if j == 0 {
				keyword = "When"
			}
			fmt.Fprintf(&b, "    %s step %d: %s\n", keyword, j+1, oneLine(s.Title()))
		}
	}

	content := b.Bytes()
	if _, err := gherkin.ParseGherkinDocument(bytes.NewReader(content), (&messages.Incrementing{}).NewId); err != nil {
		return godog.Feature{}, fmt.Errorf("compiling %s: %w", f.Path, err)
	}
	return godog.Feature{Name: f.Path, Contents: content}, nil
}

// oneLine flattens text so it cannot start a new Gherkin line
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// caseIndex returns n from the @case_<n> tag, or 0
func caseIndex(tags []*messages.PickleTag) int {
	for _, t := range tags {
		if strings.HasPrefix(t.Name, caseTagPrefix) {
			if n, err := strconv.Atoi(t.Name[len(caseTagPrefix):]); err == nil {
				return n
			}
		}
	}
	return 0
}
