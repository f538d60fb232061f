package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryFromCode(t *testing.T) {
	require.Equal(t, "Fasteners", CategoryFromCode("31161500"))
	require.Equal(t, "Safety", CategoryFromCode("46181500"))

	// 8-digit code with no exact entry falls back to the 6-digit family.
	require.Equal(t, "Fasteners", CategoryFromCode("31161599"))
	// Then to the 4-digit segment.
	require.Equal(t, "Fasteners", CategoryFromCode("31169999"))
	// Unknown hierarchy yields nothing.
	require.Equal(t, "", CategoryFromCode("99999999"))
	require.Equal(t, "", CategoryFromCode(""))
	require.Equal(t, "", CategoryFromCode("  "))
}

func TestSupplierDefaults(t *testing.T) {
	require.Equal(t, "Fastenal", SupplierDefaults("Fastenal").Name)
	require.Equal(t, "Fastenal", SupplierDefaults("fastenal").Name)
	require.Equal(t, "MSC Industrial", SupplierDefaults("MSC Industrial Supply Co.").Name)
	require.Equal(t, "Grainger", SupplierDefaults("W.W. Grainger, Inc.").Name)

	// Unknown suppliers get the first built-in table.
	require.Equal(t, "Grainger", SupplierDefaults("Acme Widgets").Name)
	require.Equal(t, "Grainger", SupplierDefaults("").Name)
}

func TestMatchCategoryExactBeatsSubstring(t *testing.T) {
	table := map[string]float64{
		"Tools":      10,
		"Hand Tools": 20,
	}
	pct, ok := MatchCategory(table, "Hand Tools")
	require.True(t, ok)
	require.Equal(t, 20.0, pct)
}

func TestMatchCategorySubstringBothDirections(t *testing.T) {
	table := map[string]float64{"Hand Tools": 20}

	// Query is a substring of the key.
	pct, ok := MatchCategory(table, "tools")
	require.True(t, ok)
	require.Equal(t, 20.0, pct)

	// Key is a substring of the query.
	pct, ok = MatchCategory(table, "Hand Tools & Storage")
	require.True(t, ok)
	require.Equal(t, 20.0, pct)
}

func TestMatchCategoryDeterministicTieBreak(t *testing.T) {
	table := map[string]float64{
		"Tools A": 11,
		"Tools B": 22,
	}
	// Both keys contain "tools"; the lexicographically first key wins
	// every time.
	for i := 0; i < 20; i++ {
		pct, ok := MatchCategory(table, "tools")
		require.True(t, ok)
		require.Equal(t, 11.0, pct)
	}
}

func TestMatchCategoryMiss(t *testing.T) {
	table := map[string]float64{"Fasteners": 40}
	_, ok := MatchCategory(table, "Lubricants")
	require.False(t, ok)
	_, ok = MatchCategory(table, "")
	require.False(t, ok)
	_, ok = MatchCategory(nil, "Fasteners")
	require.False(t, ok)
}
