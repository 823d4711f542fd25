package suite

import (
	"github.com/cucumber/godog"
	"github.com/tomatool/tomato-ui/internal/browser"
)

// Session is one browser lifecycle, started before a case and stopped after it
type Session interface {
	Start() (browser.Surface, error)
	Stop() error
}

// SessionFactory creates a fresh session per case
type SessionFactory func() Session

// ScenarioContext abstracts godog.ScenarioContext for testing
type ScenarioContext interface {
	Before(h godog.BeforeScenarioHook)
	After(h godog.AfterScenarioHook)
	Step(expr interface{}, stepFunc interface{})
}
