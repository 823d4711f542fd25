package locator

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the locator file read when none is configured
const DefaultFile = "config/locators.yaml"

// ErrLocator is returned when a page, element or locator file cannot be resolved
var ErrLocator = errors.New("locator error")

// Locators maps page name to element name to selector
type Locators struct {
	file  string
	pages map[string]map[string]any
}

// Load reads a locator file. Unlike configuration, a missing file is an error.
func Load(path string) (*Locators, error) {
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: locator file not found: %s", ErrLocator, path)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrLocator, path, err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrLocator, path, err)
	}

	l, err := FromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.file = path
	return l, nil
}

// FromMap builds Locators from an already decoded document
func FromMap(raw any) (*Locators, error) {
	l := &Locators{pages: map[string]map[string]any{}}
	if raw == nil {
		return l, nil
	}

	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: locator document must be a mapping of pages", ErrLocator)
	}

	for page, elements := range doc {
		switch e := elements.(type) {
		case map[string]any:
			l.pages[page] = e
		case nil:
			l.pages[page] = map[string]any{}
		default:
			return nil, fmt.Errorf("%w: page %q must be a mapping of elements", ErrLocator, page)
		}
	}
	return l, nil
}

// Selector returns the trimmed selector for an element on a page
func (l *Locators) Selector(page, element string) (string, error) {
	elements, ok := l.pages[page]
	if !ok {
		return "", fmt.Errorf("%w: page not found: %s", ErrLocator, page)
	}

	raw, ok := elements[element]
	if !ok {
		return "", fmt.Errorf("%w: element %s not found on page %s", ErrLocator, element, page)
	}

	selector, ok := raw.(string)
	if !ok || strings.TrimSpace(selector) == "" {
		return "", fmt.Errorf("%w: locator %s.%s is empty or not a string", ErrLocator, page, element)
	}
	return strings.TrimSpace(selector), nil
}

// PageURL returns the url element of a page
func (l *Locators) PageURL(page string) (string, error) {
	return l.Selector(page, "url")
}

// HasPage reports whether the page is defined
func (l *Locators) HasPage(page string) bool {
	_, ok := l.pages[page]
	return ok
}

// Pages returns the defined page names in sorted order
func (l *Locators) Pages() []string {
	names := make([]string, 0, len(l.pages))
	for name := range l.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// File returns the path the locators were read from
func (l *Locators) File() string { return l.file }
