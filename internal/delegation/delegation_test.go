package delegation

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasFinding(findings []Finding, level Level, mention string) bool {
	for _, f := range findings {
		if f.Level == level && strings.Contains(f.Message, mention) {
			return true
		}
	}
	return false
}

func rules(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Rule)
	}
	return out
}

func TestAnalyse_ForAllWarns(t *testing.T) {
	findings := Analyse("ForAll(Contacts, Patch(...))", "")
	assert.True(t, hasFinding(findings, LevelWarn, "ForAll"), "findings: %+v", findings)
}

func TestAnalyse_StartsWithInfo(t *testing.T) {
	findings := Analyse(`StartsWith(Name,"A")`, "")
	assert.True(t, hasFinding(findings, LevelInfo, "StartsWith"), "findings: %+v", findings)
}

func TestAnalyse_BlankFormula(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t  \n"} {
		findings := Analyse(in, "SharePoint")
		assert.Empty(t, findings, "input %q", in)
		assert.NotNil(t, findings)
	}
}

func TestAnalyse_RuleOrderNotSeverity(t *testing.T) {
	formula := `Sort(Filter(Accounts, StartsWith(Name, txt.Text)), Name) & Search(Accounts, "x", "Name")`
	got := rules(Analyse(formula, ""))
	assert.Equal(t, []string{"search", "startswith", "filter", "sort"}, got)
}

func TestAnalyse_OneFindingPerRule(t *testing.T) {
	formula := "Search(A, x, \"c\") & Search(B, y, \"d\") & Search(C, z, \"e\")"
	findings := Analyse(formula, "")
	assert.Equal(t, []string{"search"}, rules(findings))
}

func TestAnalyse_CaseInsensitive(t *testing.T) {
	assert.True(t, hasFinding(Analyse("forall(Orders, Remove(Orders, ThisRecord))", ""), LevelWarn, "ForAll"))
	assert.True(t, hasFinding(Analyse("LOOKUP(Users, Email = x)", ""), LevelInfo, "LookUp"))
}

func TestAnalyse_InOperator(t *testing.T) {
	findings := Analyse(`Filter(Tasks, Status in ["Open", "Blocked"])`, "")
	assert.Contains(t, rules(findings), "in-operator")

	// "in" embedded in identifiers is not the operator
	findings = Analyse(`Filter(Invoices, Total > 0)`, "")
	assert.NotContains(t, rules(findings), "in-operator")
}

func TestAnalyse_Table(t *testing.T) {
	tests := []struct {
		formula string
		rule    string
		level   Level
	}{
		{`Filter(T, EndsWith(Email, "@contoso.com"))`, "endswith", LevelWarn},
		{`Filter(T, Len(Title) > 3)`, "string-functions", LevelWarn},
		{`Filter(T, Upper(City) = "OSLO")`, "string-functions", LevelWarn},
		{`LastN(Orders, 5)`, "first-last", LevelWarn},
		{`CountRows(Orders)`, "count", LevelWarn},
		{`CountIf(Orders, Paid)`, "count", LevelWarn},
		{`Sum(Orders, Total)`, "aggregates", LevelWarn},
		{`Average(Orders, Total)`, "aggregates", LevelWarn},
		{`AddColumns(Orders, "Net", Total - Tax)`, "column-shaping", LevelWarn},
		{`ShowColumns(Orders, "Id")`, "column-shaping", LevelWarn},
		{`GroupBy(Orders, "Region", "Rows")`, "grouping", LevelWarn},
		{`Distinct(Orders, Region)`, "distinct", LevelWarn},
		{`LookUp(Users, Id = 1)`, "lookup", LevelInfo},
		{`SortByColumns(Orders, "Total")`, "sort", LevelInfo},
		{`Filter(T, IsBlank(Manager))`, "isblank", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			findings := Analyse(tt.formula, "")
			var found *Finding
			for i := range findings {
				if findings[i].Rule == tt.rule {
					found = &findings[i]
				}
			}
			require.NotNil(t, found, "no %s finding for %q: %+v", tt.rule, tt.formula, findings)
			assert.Equal(t, tt.level, found.Level)
		})
	}
}

func TestAnalyse_DataSourceHint(t *testing.T) {
	findings := Analyse(`Filter(Items, Status = "Open")`, "SharePoint list")
	require.Len(t, findings, 2)
	assert.Equal(t, "filter", findings[0].Rule)
	assert.Equal(t, "source-sharepoint", findings[1].Rule)

	findings = Analyse(`Filter(Sheet1, Amount > 0)`, "Excel table")
	assert.True(t, hasFinding(findings, LevelWarn, "Excel"))

	findings = Analyse(`Filter(Items, Status = "Open")`, "Oracle")
	assert.Equal(t, []string{"filter"}, rules(findings))
}

func TestAnalyser_CustomRules(t *testing.T) {
	a := NewAnalyser([]Rule{{
		Name:    "patch",
		Pattern: regexp.MustCompile(`(?i)\bPatch\s*\(`),
		Level:   LevelInfo,
		Message: "Patch() writes one record per call.",
	}})

	findings := a.Analyse("ForAll(Rows, Patch(T, Defaults(T), ThisRecord))", "")
	assert.Equal(t, []string{"patch"}, rules(findings))
	assert.Len(t, DefaultRules(), 16)
}

func TestAnalyse_KnownLimitationStringLiterals(t *testing.T) {
	// keywords inside string literals are reported like live calls
	findings := Analyse(`Notify("Use Search( carefully")`, "")
	assert.Contains(t, rules(findings), "search")
}
