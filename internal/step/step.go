package step

// Step actions
const (
	ActionLoad              = "load"
	ActionCallMethod        = "call_method"
	ActionAssertEqual       = "assert_equal"
	ActionAssertGreaterThan = "assert_greater_than"
	ActionAssertTrue        = "assert_true"
)

// Step is one declarative instruction from a test case
type Step struct {
	Action      string `yaml:"action" json:"action"`
	Args        []any  `yaml:"args,omitempty" json:"args,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Method      string `yaml:"method,omitempty" json:"method,omitempty"`
	Expected    any    `yaml:"expected,omitempty" json:"expected,omitempty"`
}

// Title returns the description, or one derived from the action
func (s Step) Title() string {
	if s.Description != "" {
		return s.Description
	}
	return "execute action: " + s.Action
}

// IsAssertion reports whether the step compares a query result
func (s Step) IsAssertion() bool {
	switch s.Action {
	case ActionAssertEqual, ActionAssertGreaterThan, ActionAssertTrue:
		return true
	}
	return false
}

// ActionInfo documents a step action
type ActionInfo struct {
	Name        string   `json:"name"`
	Fields      []string `json:"fields"`
	Description string   `json:"description"`
}

// Actions lists every supported action
func Actions() []ActionInfo {
	return []ActionInfo{
		{Name: ActionLoad, Fields: []string{"args"}, Description: "Open the page, optionally at the URL in args[0]"},
		{Name: ActionCallMethod, Fields: []string{"args"}, Description: "Call the page method named by args[0] with the remaining args"},
		{Name: ActionAssertEqual, Fields: []string{"method", "expected"}, Description: "Assert the query result equals expected"},
		{Name: ActionAssertGreaterThan, Fields: []string{"method", "expected"}, Description: "Assert the query result is greater than expected"},
		{Name: ActionAssertTrue, Fields: []string{"method"}, Description: "Assert the query result is true"},
	}
}
