package page

import (
	"fmt"
	"sort"

	"github.com/tomatool/tomato-ui/internal/browser"
	"github.com/tomatool/tomato-ui/internal/locator"
)

// Deps is everything a page object needs to be constructed
type Deps struct {
	Surface  browser.Surface
	Locators *locator.Locators
	Settings Settings
}

// Factory builds a page object
type Factory func(deps Deps) Object

// Registry maps page object names to factories
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in page objects
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("login_page", NewLoginPage)
	r.Register("search_page", NewSearchPage)
	return r
}

// Register adds or replaces a factory
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Create builds the named page object
func (r *Registry) Create(name string, deps Deps) (Object, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("page object not found: %s", name)
	}
	return f(deps), nil
}

// Names returns registered names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
