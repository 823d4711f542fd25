package command

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomatool/tomato-ui/internal/page"
	"github.com/tomatool/tomato-ui/internal/step"
	"github.com/tomatool/tomato-ui/internal/testcase"
)

func TestCaseFileName(t *testing.T) {
	tests := map[string]string{
		"Login flow":          "login_flow.yaml",
		"search: no results!": "search_no_results.yaml",
		"  ":                  "case.yaml",
	}
	for in, want := range tests {
		if got := caseFileName(in); got != want {
			t.Errorf("caseFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateCaseFile(t *testing.T) {
	p, err := page.NewRegistry().Create("login_page", page.Deps{})
	if err != nil {
		t.Fatal(err)
	}

	content, err := generateCaseFile("Login flow", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(content), "# Methods available on login_page:") {
		t.Errorf("expected method reference header, got:\n%s", content)
	}

	path := filepath.Join(t.TempDir(), "login_flow.yaml")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	f, err := testcase.Load(path)
	if err != nil {
		t.Fatalf("generated file does not load: %v\n%s", err, content)
	}

	c := f.Cases[0]
	if c.Name != "Login flow" || c.PageObject != "login_page" {
		t.Errorf("unexpected case %q on %q", c.Name, c.PageObject)
	}

	var actions []string
	for _, s := range c.Steps {
		actions = append(actions, s.Action)
		if err := step.Check(p, s); err != nil {
			t.Errorf("generated step %+v does not check: %v", s, err)
		}
	}
	want := "load,call_method,call_method,assert_equal"
	if strings.Join(actions, ",") != want {
		t.Errorf("expected %s, got %v", want, actions)
	}

	input := c.Steps[2]
	if len(input.Args) != 3 || input.Args[0] != "input_login_info" || input.Args[1] != "${USERNAME}" {
		t.Errorf("unexpected input step args %v", input.Args)
	}
}

func TestGenerateDocs(t *testing.T) {
	catalog, err := collectCatalog(page.NewRegistry(), "", "")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		format   string
		contains []string
	}{
		{"markdown", []string{"## Step actions", "| `assert_true` | method |", "### search_page", "| `perform_search(keyword)` | action |"}},
		{"html", []string{"<h2>login_page</h2>", "<code>input_login_info(username, password)</code>"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			if err := generateDocs(&out, tt.format, catalog); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(out.String(), s) {
					t.Errorf("expected %q in:\n%s", s, out.String())
				}
			}
		})
	}

	if err := generateDocs(&bytes.Buffer{}, "pdf", catalog); err == nil {
		t.Error("expected unknown format error")
	}
}
