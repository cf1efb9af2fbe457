// Package diagnostics suggests next steps for a pasted error message. Like
// the delegation linter it is an ordered list of regular expressions, not an
// understanding of the error.
package diagnostics

import (
	"regexp"
	"strings"
)

// Step is one suggested next step
type Step struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Rule suggests Message when Pattern matches the error text
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Message string
}

var defaultRules = []Rule{
	{
		Name:    "delegation",
		Pattern: regexp.MustCompile(`(?i)delegat`),
		Message: "Check if your data source supports delegation for the operators you use.",
	},
	{
		Name:    "syntax",
		Pattern: regexp.MustCompile(`(?i)invalid|unexpected`),
		Message: "Locate the token/character index in the message and inspect the expression around it.",
	},
	{
		Name:    "reference",
		Pattern: regexp.MustCompile(`(?i)reference|not defined|unknown`),
		Message: "Verify control, variable, or column names for typos and scope.",
	},
	{
		Name:    "permission",
		Pattern: regexp.MustCompile(`(?i)permission|auth|401|403`),
		Message: "Verify credentials/connection references and API permissions.",
	},
	{
		Name:    "throttling",
		Pattern: regexp.MustCompile(`(?i)timeout|429|throttle`),
		Message: "Consider pagination/batching and exponential backoff.",
	},
}

// DefaultStep is suggested when no rule matches
var DefaultStep = Step{
	Rule:    "default",
	Message: "Search known issues and consult feature docs for the component that emitted this error.",
}

// DefaultRules returns a copy of the built-in rules in evaluation order
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// Diagnoser applies an ordered rule list
type Diagnoser struct {
	rules []Rule
}

func NewDiagnoser(rules []Rule) *Diagnoser {
	return &Diagnoser{rules: rules}
}

// Diagnose returns one step per matching rule in rule order, or DefaultStep
// when none match. A blank message yields no steps.
func (d *Diagnoser) Diagnose(message string) []Step {
	steps := []Step{}
	if strings.TrimSpace(message) == "" {
		return steps
	}
	for _, r := range d.rules {
		if r.Pattern.MatchString(message) {
			steps = append(steps, Step{Rule: r.Name, Message: r.Message})
		}
	}
	if len(steps) == 0 {
		steps = append(steps, DefaultStep)
	}
	return steps
}

var defaultDiagnoser = NewDiagnoser(defaultRules)

// Diagnose runs the built-in rules
func Diagnose(message string) []Step {
	return defaultDiagnoser.Diagnose(message)
}
