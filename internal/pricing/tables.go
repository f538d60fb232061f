package pricing

import (
	"sort"
	"strings"
)

// SupplierTable holds the built-in default category discounts for one known
// supplier. Tables are immutable package data loaded once at startup; they
// are consulted only when no contract override matches.
type SupplierTable struct {
	Name      string
	Discounts map[string]float64
}

// builtinSuppliers ships three supplier tables with the system. Order
// matters: an unrecognised supplier falls back to the first table.
var builtinSuppliers = []SupplierTable{
	{
		Name: "Grainger",
		Discounts: map[string]float64{
			"Fasteners":         40,
			"Power Tools":       35,
			"Hand Tools":        38,
			"Safety":            42,
			"Electrical":        30,
			"Plumbing":          32,
			"Abrasives":         36,
			"Lighting":          28,
			"Janitorial":        33,
			"Material Handling": 29,
			"General":           25,
		},
	},
	{
		Name: "Fastenal",
		Discounts: map[string]float64{
			"Fasteners":         48,
			"Hand Tools":        34,
			"Safety":            36,
			"Welding":           31,
			"Material Handling": 29,
			"Cutting Tools":     37,
			"General":           26,
		},
	},
	{
		Name: "MSC Industrial",
		Discounts: map[string]float64{
			"Cutting Tools":         44,
			"Abrasives":             41,
			"Measuring Instruments": 33,
			"Machinery":             27,
			"Hand Tools":            35,
			"General":               24,
		},
	},
}

// classificationCategories maps UNSPSC-style 8-digit codes to catalog
// categories. Family-level codes (trailing zeros) double as prefix targets
// for the 6- and 4-digit fallbacks.
var classificationCategories = map[string]string{
	"31160000": "Fasteners",
	"31161500": "Fasteners",
	"31161600": "Fasteners",
	"31161700": "Fasteners",
	"31190000": "Abrasives",
	"31191500": "Abrasives",
	"27110000": "Hand Tools",
	"27111500": "Hand Tools",
	"27112700": "Power Tools",
	"23241600": "Cutting Tools",
	"23271400": "Welding",
	"46180000": "Safety",
	"46181500": "Safety",
	"46181600": "Safety",
	"39120000": "Electrical",
	"39121700": "Electrical",
	"39111500": "Lighting",
	"40140000": "Plumbing",
	"40141700": "Plumbing",
	"47130000": "Janitorial",
	"24100000": "Material Handling",
	"41110000": "Measuring Instruments",
}

// DefaultCategory is assumed when neither the row nor its classification
// code yields a category.
const DefaultCategory = "General"

// CategoryFromCode derives a category from a hierarchical classification
// code: exact 8-digit match first, then the 6-digit family prefix padded
// with two zeros, then the 4-digit segment prefix padded with four. Returns
// the empty string when nothing matches.
func CategoryFromCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if cat, ok := classificationCategories[code]; ok {
		return cat
	}
	if len(code) >= 6 {
		if cat, ok := classificationCategories[code[:6]+"00"]; ok {
			return cat
		}
	}
	if len(code) >= 4 {
		if cat, ok := classificationCategories[code[:4]+"0000"]; ok {
			return cat
		}
	}
	return ""
}

// SupplierDefaults selects the built-in table for a supplier by
// case-insensitive substring match on the supplier name. Unknown suppliers
// get the first built-in table.
func SupplierDefaults(supplier string) SupplierTable {
	needle := strings.ToLower(strings.TrimSpace(supplier))
	if needle != "" {
		for _, tbl := range builtinSuppliers {
			name := strings.ToLower(tbl.Name)
			if strings.Contains(name, needle) || strings.Contains(needle, name) {
				return tbl
			}
		}
	}
	return builtinSuppliers[0]
}

// MatchCategory looks a category up in a discount table: exact match first,
// then bidirectional case-insensitive substring match. When several keys
// match the substring stage, the lexicographically first key wins so the
// result is deterministic.
func MatchCategory(table map[string]float64, category string) (float64, bool) {
	if len(table) == 0 || strings.TrimSpace(category) == "" {
		return 0, false
	}
	if pct, ok := table[category]; ok {
		return pct, true
	}
	needle := strings.ToLower(strings.TrimSpace(category))
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lower := strings.ToLower(key)
		if lower == needle || strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			return table[key], true
		}
	}
	return 0, false
}
