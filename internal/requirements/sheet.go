package requirements

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	headerSearchRows = 50
	titleMaxLen      = 80
	titleKeepLen     = 77
)

// Row maps header labels to cell text. Cells missing from a short row are
// not set.
type Row map[string]string

// Sheet is one parsed table
type Sheet struct {
	Headers []string
	Rows    []Row
}

// BuildSheet treats the first row with a non-empty cell among the first 50
// as the header row and materializes every later row against it. Columns
// with an empty header are ignored.
func BuildSheet(aoa [][]string) Sheet {
	headerIdx := -1
	for i := 0; i < min(len(aoa), headerSearchRows); i++ {
		if slices.ContainsFunc(aoa[i], func(c string) bool { return strings.TrimSpace(c) != "" }) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return Sheet{Headers: []string{}, Rows: []Row{}}
	}

	hdrs := make([]string, len(aoa[headerIdx]))
	for i, c := range aoa[headerIdx] {
		hdrs[i] = strings.TrimSpace(c)
	}

	rows := make([]Row, 0, len(aoa)-headerIdx-1)
	for _, cells := range aoa[headerIdx+1:] {
		row := make(Row, len(hdrs))
		for i, h := range hdrs {
			if h == "" || i >= len(cells) {
				continue
			}
			row[h] = cells[i]
		}
		rows = append(rows, row)
	}

	headers := make([]string, 0, len(hdrs))
	for _, h := range hdrs {
		if h != "" {
			headers = append(headers, h)
		}
	}
	return Sheet{Headers: headers, Rows: rows}
}

// Mapping names the source column of each target field; "" is unmapped
type Mapping struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

var (
	idCandidates          = []string{"id", "req id", "requirement id", "req no", "req #", "reference"}
	titleCandidates       = []string{"title", "name", "summary", "requirement title", "req title", "heading"}
	descriptionCandidates = []string{"description", "details", "requirement", "requirement description", "req details", "detail"}
)

// InferMapping matches the lower-cased headers with the candidate names of
// each field. Candidates are tried in list order and the first present wins.
func InferMapping(headers []string) Mapping {
	lower := make(map[string]string, len(headers))
	for _, h := range headers {
		k := strings.ToLower(h)
		if _, ok := lower[k]; !ok {
			lower[k] = h
		}
	}
	find := func(cands []string) string {
		for _, c := range cands {
			if h, ok := lower[c]; ok {
				return h
			}
		}
		return ""
	}
	return Mapping{
		ID:          find(idCandidates),
		Title:       find(titleCandidates),
		Description: find(descriptionCandidates),
	}
}

// DeriveTitle shortens a description to at most 80 characters
func DeriveTitle(description string) string {
	if utf8.RuneCountInString(description) <= titleMaxLen {
		return description
	}
	runes := []rune(description)
	return string(runes[:titleKeepLen]) + "…"
}

// MapRows converts sheet rows into requirements. Nothing is produced unless
// title or description is mapped. Rows ending up with neither a title nor a
// description are dropped. Unmapped, non-empty cells go to Metadata.
func MapRows(sheet Sheet, m Mapping, newID func() string) []Requirement {
	if m.Title == "" && m.Description == "" {
		return []Requirement{}
	}

	known := map[string]bool{}
	for _, h := range []string{m.ID, m.Title, m.Description} {
		if h != "" {
			known[h] = true
		}
	}

	out := make([]Requirement, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		id := ""
		if m.ID != "" {
			id = strings.TrimSpace(row[m.ID])
		}
		if id == "" {
			id = newID()
		}

		title := ""
		if m.Title != "" {
			title = strings.TrimSpace(row[m.Title])
		}
		description := ""
		if m.Description != "" {
			description = strings.TrimSpace(row[m.Description])
		}
		if title == "" && description != "" {
			title = DeriveTitle(description)
		}
		if title == "" && description == "" {
			continue
		}

		var metadata map[string]any
		for _, h := range sheet.Headers {
			if known[h] {
				continue
			}
			v, ok := row[h]
			if !ok {
				continue
			}
			if metadata == nil {
				metadata = map[string]any{}
			}
			metadata[h] = v
		}

		out = append(out, Requirement{
			ID:          id,
			Title:       title,
			Description: description,
			Metadata:    metadata,
		})
	}
	return out
}

// Session holds one parse per sheet of a workbook and the mapping for the
// selected sheet. Selecting a sheet re-infers the mapping from its headers.
type Session struct {
	workbook *Workbook
	current  string
	mapping  Mapping
}

// NewSession selects the first sheet. It fails with ErrNoHeaders when that
// sheet has no header row.
func NewSession(wb *Workbook) (*Session, error) {
	if len(wb.Names) == 0 {
		return nil, ErrNoHeaders
	}
	s := &Session{workbook: wb}
	if err := s.SelectSheet(wb.Names[0]); err != nil {
		return nil, err
	}
	return s, nil
}

// SelectSheet switches to name and replaces the mapping with the inferred one
func (s *Session) SelectSheet(name string) error {
	sheet, ok := s.workbook.Sheets[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSheet, name)
	}
	if len(sheet.Headers) == 0 {
		return ErrNoHeaders
	}
	s.current = name
	s.mapping = InferMapping(sheet.Headers)
	return nil
}

// SheetName returns the selected sheet
func (s *Session) SheetName() string { return s.current }

// Sheet returns the parse of the selected sheet
func (s *Session) Sheet() Sheet { return s.workbook.Sheets[s.current] }

// Mapping returns the active mapping
func (s *Session) Mapping() Mapping { return s.mapping }

// SetMapping overrides the inferred mapping for the selected sheet
func (s *Session) SetMapping(m Mapping) { s.mapping = m }

// Preview maps the selected sheet with the active mapping
func (s *Session) Preview(newID func() string) []Requirement {
	return MapRows(s.Sheet(), s.mapping, newID)
}
