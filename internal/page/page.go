package page

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/browser"
	"github.com/tomatool/tomato-ui/internal/locator"
)

// ErrMalformedArgument is returned when a method receives arguments it cannot use
var ErrMalformedArgument = errors.New("malformed argument")

// Action performs an interaction with positional arguments
type Action func(ctx context.Context, args ...any) error

// Query reads a value from the page for assertions
type Query func(ctx context.Context) (any, error)

// Method kinds
const (
	KindAction = "action"
	KindQuery  = "query"
)

// Method describes a registered page object method
type Method struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Params      []string `json:"params,omitempty"`
	Description string   `json:"description"`
}

// Object is the capability surface the step runner drives. Methods are
// looked up by name from an explicit registry.
type Object interface {
	// Name returns the page object identifier, e.g. login_page
	Name() string

	// Load navigates to the page. An optional first argument overrides the URL.
	Load(ctx context.Context, args ...any) error

	// Action returns the named action
	Action(name string) (Action, bool)

	// Query returns the named zero-argument query
	Query(name string) (Query, bool)

	// Methods lists every registered method
	Methods() []Method
}

// Settings carries the configuration values page objects use
type Settings struct {
	BaseURL         string
	PageLoadTimeout time.Duration
	ElementTimeout  time.Duration
}

// Base implements Object on top of a browser surface and a locator file.
// Concrete pages embed it and register their own methods.
type Base struct {
	name     string
	surface  browser.Surface
	locators *locator.Locators
	settings Settings

	methods map[string]Method
	actions map[string]Action
	queries map[string]Query
}

// NewBase creates a page with the generic click, fill and wait actions registered
func NewBase(name string, deps Deps) *Base {
	b := &Base{
		name:     name,
		surface:  deps.Surface,
		locators: deps.Locators,
		settings: deps.Settings,
		methods:  make(map[string]Method),
		actions:  make(map[string]Action),
		queries:  make(map[string]Query),
	}

	b.RegisterAction("click", "Click an element", []string{"element"},
		func(ctx context.Context, args ...any) error {
			if err := Arity("click", args, 1); err != nil {
				return err
			}
			element, err := StringArg("click", args, 0)
			if err != nil {
				return err
			}
			return b.Click(ctx, element)
		})

	b.RegisterAction("fill", "Type a value into an element", []string{"value", "element"},
		func(ctx context.Context, args ...any) error {
			if err := Arity("fill", args, 2); err != nil {
				return err
			}
			value, err := StringArg("fill", args, 0)
			if err != nil {
				return err
			}
			element, err := StringArg("fill", args, 1)
			if err != nil {
				return err
			}
			return b.Fill(ctx, value, element)
		})

	b.RegisterAction("wait_for_page_ready", "Wait until the network is idle", nil,
		func(ctx context.Context, args ...any) error {
			if err := Arity("wait_for_page_ready", args, 0); err != nil {
				return err
			}
			return b.WaitForPageReady(ctx)
		})

	return b
}

// Name implements Object
func (b *Base) Name() string { return b.name }

// RegisterAction adds or replaces a named action
func (b *Base) RegisterAction(name, description string, params []string, fn Action) {
	delete(b.queries, name)
	b.actions[name] = fn
	b.methods[name] = Method{Name: name, Kind: KindAction, Params: params, Description: description}
}

// RegisterQuery adds or replaces a named query
func (b *Base) RegisterQuery(name, description string, fn Query) {
	delete(b.actions, name)
	b.queries[name] = fn
	b.methods[name] = Method{Name: name, Kind: KindQuery, Description: description}
}

// Action implements Object
func (b *Base) Action(name string) (Action, bool) {
	fn, ok := b.actions[name]
	return fn, ok
}

// Query implements Object
func (b *Base) Query(name string) (Query, bool) {
	fn, ok := b.queries[name]
	return fn, ok
}

// Methods implements Object
func (b *Base) Methods() []Method {
	out := make([]Method, 0, len(b.methods))
	for _, m := range b.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load navigates to the URL argument, the page's url locator, or the base URL,
// in that order. Relative targets are joined onto the base URL.
func (b *Base) Load(ctx context.Context, args ...any) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: load takes at most one url, got %d arguments", ErrMalformedArgument, len(args))
	}

	var target string
	if len(args) == 1 && args[0] != nil {
		url, err := StringArg("load", args, 0)
		if err != nil {
			return err
		}
		target = url
	}
	if target == "" {
		if url, err := b.locators.PageURL(b.name); err == nil {
			target = url
		}
	}
	if target == "" {
		target = b.settings.BaseURL
	}
	target = b.absolute(target)

	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debug().Str("page", b.name).Str("url", target).Msg("loading page")
	if err := b.surface.Goto(target, b.settings.PageLoadTimeout); err != nil {
		return err
	}
	return b.WaitForPageReady(ctx)
}

func (b *Base) absolute(target string) string {
	if strings.HasPrefix(target, "http") {
		return target
	}
	base := strings.TrimRight(b.settings.BaseURL, "/")
	if target == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(target, "/")
}

// WaitForPageReady waits for network idle
func (b *Base) WaitForPageReady(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.surface.WaitIdle(b.settings.ElementTimeout)
}

// Selector resolves an element name on this page
func (b *Base) Selector(element string) (string, error) {
	return b.locators.Selector(b.name, element)
}

// Click clicks the named element
func (b *Base) Click(ctx context.Context, element string) error {
	selector, err := b.ready(ctx, element)
	if err != nil {
		return err
	}
	return b.surface.Click(selector, b.settings.ElementTimeout)
}

// Fill types value into the named element
func (b *Base) Fill(ctx context.Context, value, element string) error {
	selector, err := b.ready(ctx, element)
	if err != nil {
		return err
	}
	return b.surface.Fill(selector, value, b.settings.ElementTimeout)
}

// Text returns the trimmed text of the named element
func (b *Base) Text(ctx context.Context, element string) (string, error) {
	selector, err := b.ready(ctx, element)
	if err != nil {
		return "", err
	}
	return b.surface.Text(selector, b.settings.ElementTimeout)
}

// Visible reports whether the named element is visible
func (b *Base) Visible(ctx context.Context, element string) (bool, error) {
	selector, err := b.ready(ctx, element)
	if err != nil {
		return false, err
	}
	return b.surface.Visible(selector, b.settings.ElementTimeout)
}

// Count returns how many elements match the named locator
func (b *Base) Count(ctx context.Context, element string) (int, error) {
	selector, err := b.ready(ctx, element)
	if err != nil {
		return 0, err
	}
	return b.surface.Count(selector)
}

func (b *Base) ready(ctx context.Context, element string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.Selector(element)
}

// Arity checks the number of positional arguments
func Arity(method string, args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrMalformedArgument, method, want, len(args))
	}
	return nil
}

// StringArg returns args[i] as a string. Numbers and booleans are formatted,
// anything else is rejected.
func StringArg(method string, args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%w: %s is missing argument %d", ErrMalformedArgument, method, i+1)
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case int, int64, float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("%w: %s argument %d must be a string, got %T", ErrMalformedArgument, method, i+1, args[i])
	}
}
