package requirements

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return "gen-" + string(rune('0'+n))
	}
}

func TestMapRows_RoundTrip(t *testing.T) {
	sheet := BuildSheet([][]string{
		{"Req ID", "Title", "Description"},
		{"R1", "Login", "User can log in"},
	})
	m := InferMapping(sheet.Headers)
	assert.Equal(t, Mapping{ID: "Req ID", Title: "Title", Description: "Description"}, m)

	got := MapRows(sheet, m, seqIDs())
	require.Len(t, got, 1)
	assert.Equal(t, Requirement{ID: "R1", Title: "Login", Description: "User can log in"}, got[0])
	assert.Nil(t, got[0].Metadata)
}

func TestMapRows_DerivedTitle(t *testing.T) {
	long := strings.Repeat("a", 100)
	sheet := BuildSheet([][]string{
		{"Details"},
		{"Short description"},
		{long},
	})
	m := InferMapping(sheet.Headers)
	assert.Equal(t, Mapping{Description: "Details"}, m)

	got := MapRows(sheet, m, seqIDs())
	require.Len(t, got, 2)
	assert.Equal(t, "Short description", got[0].Title)
	assert.Equal(t, strings.Repeat("a", 77)+"…", got[1].Title)
	assert.Equal(t, "gen-1", got[0].ID)
	assert.Equal(t, "gen-2", got[1].ID)
}

func TestDeriveTitle(t *testing.T) {
	exact := strings.Repeat("é", 80)
	assert.Equal(t, exact, DeriveTitle(exact))

	over := strings.Repeat("é", 81)
	got := DeriveTitle(over)
	assert.Equal(t, 78, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestMapRows_DropsEmptyRows(t *testing.T) {
	sheet := BuildSheet([][]string{
		{"ID", "Title", "Description", "Owner"},
		{"R1", "", "", "alice"},
		{"R2", "  ", " ", ""},
		{"R3", "Keep", "", ""},
	})
	got := MapRows(sheet, InferMapping(sheet.Headers), seqIDs())
	require.Len(t, got, 1)
	assert.Equal(t, "R3", got[0].ID)
}

func TestMapRows_Metadata(t *testing.T) {
	sheet := BuildSheet([][]string{
		{"ID", "Title", "Owner", "Priority"},
		{"R1", "Export", "alice", ""},
		{"R2", "Import", "bob"},
	})
	got := MapRows(sheet, InferMapping(sheet.Headers), seqIDs())
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"Owner": "alice", "Priority": ""}, got[0].Metadata, "empty cells pass through")
	assert.Equal(t, map[string]any{"Owner": "bob"}, got[1].Metadata, "absent cells are skipped")
}

func TestMapRows_NothingMapped(t *testing.T) {
	sheet := BuildSheet([][]string{
		{"Owner", "Priority"},
		{"alice", "high"},
	})
	got := MapRows(sheet, InferMapping(sheet.Headers), seqIDs())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBuildSheet_HeaderDetection(t *testing.T) {
	sheet := BuildSheet([][]string{
		{"", ""},
		{},
		{" Title ", "", "Description"},
		{"A", "ignored", "first"},
		{"B"},
	})
	assert.Equal(t, []string{"Title", "Description"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, Row{"Title": "A", "Description": "first"}, sheet.Rows[0])

	_, ok := sheet.Rows[1]["Description"]
	assert.False(t, ok, "short rows leave missing cells unset")
}

func TestBuildSheet_NoHeaderWithinWindow(t *testing.T) {
	aoa := make([][]string, 60)
	aoa[55] = []string{"Title"}
	sheet := BuildSheet(aoa)
	assert.Empty(t, sheet.Headers)
	assert.Empty(t, sheet.Rows)
}

func TestInferMapping_CandidateOrder(t *testing.T) {
	m := InferMapping([]string{"Requirement", "NAME", "Description", "Reference"})
	assert.Equal(t, "Reference", m.ID)
	assert.Equal(t, "NAME", m.Title)
	assert.Equal(t, "Description", m.Description, "description is listed before requirement")
}

func TestSession_SelectSheetReinfers(t *testing.T) {
	wb := &Workbook{
		Names: []string{"One", "Two", "Empty"},
		Sheets: map[string]Sheet{
			"One":   BuildSheet([][]string{{"Title"}, {"a"}}),
			"Two":   BuildSheet([][]string{{"Summary", "Details"}, {"b", "c"}}),
			"Empty": BuildSheet(nil),
		},
	}
	s, err := NewSession(wb)
	require.NoError(t, err)
	assert.Equal(t, "One", s.SheetName())
	assert.Equal(t, Mapping{Title: "Title"}, s.Mapping())

	s.SetMapping(Mapping{})
	assert.Empty(t, s.Preview(seqIDs()))

	require.NoError(t, s.SelectSheet("Two"))
	assert.Equal(t, Mapping{Title: "Summary", Description: "Details"}, s.Mapping())
	got := s.Preview(seqIDs())
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Title)

	assert.ErrorIs(t, s.SelectSheet("Empty"), ErrNoHeaders)
	assert.ErrorIs(t, s.SelectSheet("Missing"), ErrUnknownSheet)
	assert.Equal(t, "Two", s.SheetName())
}
