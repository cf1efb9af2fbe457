// Package estimating keeps the planning worksheet and the licensing dataset
// shared by the planning and licensing tools.
package estimating

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Size is a T-shirt estimate
type Size string

const (
	SizeXS Size = "XS"
	SizeS  Size = "S"
	SizeM  Size = "M"
	SizeL  Size = "L"
	SizeXL Size = "XL"
)

// Sizes lists sizes from smallest to largest
func Sizes() []Size { return []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL} }

// Valid reports whether s is a known size
func (s Size) Valid() bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL:
		return true
	}
	return false
}

// Plan item categories
const (
	CategoryPowerPlatform = "Power Platform"
	CategoryAzure         = "Azure"
	CategoryOther         = "Other"
)

// PlanItem is one line of the planning worksheet
type PlanItem struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Component  string `json:"component"`
	Complexity string `json:"complexity,omitempty"`
	Size       Size   `json:"size"`
	Qty        int    `json:"qty"`
	Notes      string `json:"notes,omitempty"`
}

// DefaultPlanItems is the starter worksheet
func DefaultPlanItems() []PlanItem {
	return []PlanItem{
		{ID: "pp-app-simple", Category: CategoryPowerPlatform, Component: "Power App (simple)", Size: SizeS, Qty: 1},
		{ID: "pp-flow-simple", Category: CategoryPowerPlatform, Component: "Power Automate Flow (simple)", Size: SizeS, Qty: 1},
		{ID: "pp-flow-complex", Category: CategoryPowerPlatform, Component: "Power Automate Flow (complex)", Size: SizeL, Qty: 0},
		{ID: "pp-dataverse-tables", Category: CategoryPowerPlatform, Component: "Dataverse tables", Size: SizeM, Qty: 0, Notes: "Number of tables"},
		{ID: "az-keyvault", Category: CategoryAzure, Component: "Azure Key Vault", Size: SizeM, Qty: 0},
		{ID: "az-functions", Category: CategoryAzure, Component: "Azure Functions", Size: SizeM, Qty: 0},
	}
}

// HoursTable maps a size to effort hours per unit
type HoursTable map[Size]float64

// DefaultHours doubles per size step
func DefaultHours() HoursTable {
	return HoursTable{SizeXS: 4, SizeS: 8, SizeM: 16, SizeL: 32, SizeXL: 64}
}

// TotalHours sums hours × qty over items. Negative quantities and sizes
// missing from the table count as zero.
func TotalHours(items []PlanItem, table HoursTable) float64 {
	total := 0.0
	for _, it := range items {
		total += table[it.Size] * float64(max(it.Qty, 0))
	}
	return total
}

// Total is the summed quantity of one component at one size
type Total struct {
	Component string `json:"component"`
	Size      Size   `json:"size"`
	Qty       int    `json:"qty"`
}

// Totals groups items by component and size in first-seen order
func Totals(items []PlanItem) []Total {
	index := map[[2]string]int{}
	out := []Total{}
	for _, it := range items {
		k := [2]string{it.Component, string(it.Size)}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Total{Component: it.Component, Size: it.Size})
		}
		out[i].Qty += it.Qty
	}
	return out
}

// ExportCSV writes the worksheet as Category, Component, T-Shirt, Qty, Notes
func ExportCSV(w io.Writer, items []PlanItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Category", "Component", "T-Shirt", "Qty", "Notes"}); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{it.Category, it.Component, string(it.Size), strconv.Itoa(it.Qty), it.Notes}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
