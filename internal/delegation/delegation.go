// Package delegation flags Power Fx constructs that may stop a formula from
// being delegated to its data source.
//
// The scan is lexical. Keywords inside string literals or comments match
// like live calls, and nesting is ignored. No finding means "possibly
// delegable", never "delegable".
package delegation

import (
	"regexp"
	"strings"
)

// Level is the severity of a finding
type Level string

const (
	LevelWarn Level = "warn"
	LevelInfo Level = "info"
)

// Finding is one observation about a formula
type Finding struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

// Rule emits Message at Level when Pattern matches
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Level   Level
	Message string
}

var defaultRules = []Rule{
	{
		Name:    "search",
		Pattern: regexp.MustCompile(`(?i)\bSearch\s*\(`),
		Level:   LevelWarn,
		Message: "Search() is not delegable for most data sources; only rows up to the data row limit are searched.",
	},
	{
		Name:    "forall",
		Pattern: regexp.MustCompile(`(?i)\bForAll\s*\(`),
		Level:   LevelWarn,
		Message: "ForAll() is not delegable; records are processed locally and calls such as Patch() inside it run row by row.",
	},
	{
		Name:    "in-operator",
		Pattern: regexp.MustCompile(`(?i)[^A-Za-z]in[^A-Za-z]`),
		Level:   LevelWarn,
		Message: "The 'in' operator is only delegable for some sources such as Dataverse; SharePoint evaluates it locally.",
	},
	{
		Name:    "startswith",
		Pattern: regexp.MustCompile(`(?i)\bStartsWith\s*\(`),
		Level:   LevelInfo,
		Message: "StartsWith() is delegable for SharePoint, Dataverse and SQL Server.",
	},
	{
		Name:    "endswith",
		Pattern: regexp.MustCompile(`(?i)\bEndsWith\s*\(`),
		Level:   LevelWarn,
		Message: "EndsWith() is not delegable for SharePoint or Dataverse.",
	},
	{
		Name:    "string-functions",
		Pattern: regexp.MustCompile(`(?i)\b(Len|Left|Right|Mid|Upper|Lower|Trim)\s*\(`),
		Level:   LevelWarn,
		Message: "String functions such as Len(), Left(), Mid() or Upper() applied to columns inside a filter prevent delegation.",
	},
	{
		Name:    "first-last",
		Pattern: regexp.MustCompile(`(?i)\b(First|Last|LastN)\s*\(`),
		Level:   LevelWarn,
		Message: "Last() and LastN() are not delegable, and First() only sees rows already retrieved when its table is not delegable.",
	},
	{
		Name:    "count",
		Pattern: regexp.MustCompile(`(?i)\b(CountRows|CountIf)\s*\(`),
		Level:   LevelWarn,
		Message: "CountRows() and CountIf() are not delegable for SharePoint; counts may be capped at the data row limit.",
	},
	{
		Name:    "aggregates",
		Pattern: regexp.MustCompile(`(?i)\b(Sum|Average|Min|Max)\s*\(`),
		Level:   LevelWarn,
		Message: "Aggregates (Sum, Average, Min, Max) are only delegable for SQL Server and Dataverse.",
	},
	{
		Name:    "column-shaping",
		Pattern: regexp.MustCompile(`(?i)\b(AddColumns|DropColumns|ShowColumns|RenameColumns)\s*\(`),
		Level:   LevelWarn,
		Message: "AddColumns(), DropColumns(), ShowColumns() and RenameColumns() produce local tables limited to the data row limit.",
	},
	{
		Name:    "grouping",
		Pattern: regexp.MustCompile(`(?i)\b(GroupBy|Ungroup)\s*\(`),
		Level:   LevelWarn,
		Message: "GroupBy() and Ungroup() are not delegable.",
	},
	{
		Name:    "distinct",
		Pattern: regexp.MustCompile(`(?i)\bDistinct\s*\(`),
		Level:   LevelWarn,
		Message: "Distinct() is not delegable for SharePoint and only returns values from retrieved rows.",
	},
	{
		Name:    "lookup",
		Pattern: regexp.MustCompile(`(?i)\bLookUp\s*\(`),
		Level:   LevelInfo,
		Message: "LookUp() delegates when its condition is delegable.",
	},
	{
		Name:    "filter",
		Pattern: regexp.MustCompile(`(?i)\bFilter\s*\(`),
		Level:   LevelInfo,
		Message: "Filter() delegates only when every predicate is delegable for the data source.",
	},
	{
		Name:    "sort",
		Pattern: regexp.MustCompile(`(?i)\b(Sort|SortByColumns)\s*\(`),
		Level:   LevelInfo,
		Message: "Sort() and SortByColumns() delegate when sorting on a column rather than a calculated value.",
	},
	{
		Name:    "isblank",
		Pattern: regexp.MustCompile(`(?i)\bIsBlank\s*\(`),
		Level:   LevelInfo,
		Message: "IsBlank() delegates for Dataverse and SQL Server; for SharePoint compare against Blank() instead.",
	},
}

// hint findings are appended after rule findings when the data source
// hint mentions the key
var sourceHints = []struct {
	key     string
	finding Finding
}{
	{"sharepoint", Finding{Level: LevelInfo, Rule: "source-sharepoint",
		Message: "SharePoint: Search(), 'in' and most string functions are not delegable; keep filters on indexed columns."}},
	{"excel", Finding{Level: LevelWarn, Rule: "source-excel",
		Message: "Excel is not a delegable source; only the first 500 rows (up to 2000 with the data row limit raised) are used."}},
	{"dataverse", Finding{Level: LevelInfo, Rule: "source-dataverse",
		Message: "Dataverse delegates most comparisons, StartsWith(), 'in' and aggregates."}},
	{"sql", Finding{Level: LevelInfo, Rule: "source-sql",
		Message: "SQL Server delegates comparisons, StartsWith() and aggregates; EndsWith() and column string functions are not delegated."}},
	{"collection", Finding{Level: LevelInfo, Rule: "source-collection",
		Message: "Collections are local; delegation does not apply but they only hold what was loaded into them."}},
}

// DefaultRules returns a copy of the built-in rule list in evaluation order
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// Analyser applies an ordered rule list
type Analyser struct {
	rules []Rule
}

// NewAnalyser creates an analyser over rules
func NewAnalyser(rules []Rule) *Analyser {
	return &Analyser{rules: rules}
}

// Analyse returns at most one finding per rule, in rule order, followed by
// findings for the data source hint. A blank formula yields none.
func (a *Analyser) Analyse(formula, dataSourceHint string) []Finding {
	findings := []Finding{}
	if strings.TrimSpace(formula) == "" {
		return findings
	}

	for _, r := range a.rules {
		if r.Pattern.MatchString(formula) {
			findings = append(findings, Finding{Level: r.Level, Message: r.Message, Rule: r.Name})
		}
	}

	hint := strings.ToLower(dataSourceHint)
	for _, h := range sourceHints {
		if strings.Contains(hint, h.key) {
			findings = append(findings, h.finding)
		}
	}
	return findings
}

var defaultAnalyser = NewAnalyser(defaultRules)

// Analyse runs the built-in rules
func Analyse(formula, dataSourceHint string) []Finding {
	return defaultAnalyser.Analyse(formula, dataSourceHint)
}
