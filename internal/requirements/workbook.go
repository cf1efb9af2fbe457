package requirements

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook is a parsed file with one Sheet per worksheet, in file order
type Workbook struct {
	Names  []string
	Sheets map[string]Sheet
}

// ReadWorkbook parses a CSV or XLSX file. The format is chosen by the
// extension of name. Entirely blank rows are skipped before header
// detection.
func ReadWorkbook(name string, r io.Reader) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		aoa, err := readCSV(r)
		if err != nil {
			return nil, err
		}
		sheetName := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		return &Workbook{
			Names:  []string{sheetName},
			Sheets: map[string]Sheet{sheetName: BuildSheet(dropBlankRows(aoa))},
		}, nil
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	aoa, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(aoa) > 0 && len(aoa[0]) > 0 {
		aoa[0][0] = strings.TrimPrefix(aoa[0][0], "\ufeff")
	}
	return aoa, nil
}

func readXLSX(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb := &Workbook{Sheets: map[string]Sheet{}}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		wb.Names = append(wb.Names, name)
		wb.Sheets[name] = BuildSheet(dropBlankRows(rows))
	}
	return wb, nil
}

func dropBlankRows(aoa [][]string) [][]string {
	out := aoa[:0:0]
	for _, row := range aoa {
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
