package requirements

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ExportCSV writes id, title and description followed by every metadata key
// in first-seen order. Nested metadata values are written as JSON.
func ExportCSV(w io.Writer, reqs []Requirement) error {
	headers := []string{"id", "title", "description"}
	seen := map[string]bool{"id": true, "title": true, "description": true}
	for _, r := range reqs {
		for _, k := range sortedKeys(r.Metadata) {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, r := range reqs {
		record := []string{r.ID, r.Title, r.Description}
		for _, h := range headers[3:] {
			record = append(record, cellText(r.Metadata[h]))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
