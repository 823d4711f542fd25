package locator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLocators(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locators.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write locators: %v", err)
	}
	return path
}

const sample = `
login_page:
  url: /login
  username_input: "  #username  "
  login_button: button[type=submit]
  blank: "   "
  numeric: 12
search_page:
`

func TestLoad(t *testing.T) {
	l, err := Load(writeLocators(t, sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := l.Pages()
	if strings.Join(got, ",") != "login_page,search_page" {
		t.Errorf("unexpected pages: %v", got)
	}
	if !l.HasPage("search_page") {
		t.Error("expected empty page to be defined")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name        string
		path        func(t *testing.T) string
		errContains string
	}{
		{
			name:        "missing file",
			path:        func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.yaml") },
			errContains: "not found",
		},
		{
			name:        "not a mapping",
			path:        func(t *testing.T) string { return writeLocators(t, "- a\n- b\n") },
			errContains: "mapping of pages",
		},
		{
			name:        "page not a mapping",
			path:        func(t *testing.T) string { return writeLocators(t, "login_page: nope\n") },
			errContains: "mapping of elements",
		},
		{
			name:        "invalid yaml",
			path:        func(t *testing.T) string { return writeLocators(t, "a: [b\n") },
			errContains: "parsing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			if !errors.Is(err, ErrLocator) {
				t.Fatalf("expected ErrLocator, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
			}
		})
	}
}

func TestSelector(t *testing.T) {
	l, err := Load(writeLocators(t, sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		page, element string
		want          string
		wantErr       string
	}{
		{"login_page", "username_input", "#username", ""},
		{"login_page", "login_button", "button[type=submit]", ""},
		{"login_page", "blank", "", "empty or not a string"},
		{"login_page", "numeric", "", "empty or not a string"},
		{"login_page", "missing", "", "element missing not found"},
		{"cart_page", "x", "", "page not found"},
	}

	for _, tt := range tests {
		got, err := l.Selector(tt.page, tt.element)
		if tt.wantErr != "" {
			if !errors.Is(err, ErrLocator) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Selector(%s, %s) error = %v, want %q", tt.page, tt.element, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Selector(%s, %s) unexpected error: %v", tt.page, tt.element, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Selector(%s, %s) = %q, want %q", tt.page, tt.element, got, tt.want)
		}
	}
}

func TestPageURL(t *testing.T) {
	l, err := Load(writeLocators(t, sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, err := l.PageURL("login_page"); err != nil || got != "/login" {
		t.Errorf("PageURL(login_page) = %q, %v", got, err)
	}
	if _, err := l.PageURL("search_page"); !errors.Is(err, ErrLocator) {
		t.Errorf("expected ErrLocator for page without url, got %v", err)
	}
}
