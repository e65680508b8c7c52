package graph

import (
	"cmp"
	"math"
	"slices"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
)

// Rank turns a stake mapping into display rows. Percentages are the fraction
// scaled by 100 and rounded to two decimals; rows are ordered by descending
// percent, then ascending id. Zero stakes are omitted; a positive stake too
// small to show keeps its row with Percent 0.
func Rank(stakes map[string]float64) []common.OwnershipRow {
	return RankWithNames(stakes, nil)
}

// RankWithNames is Rank with a name resolver for the rows. A nil resolver
// leaves names empty.
func RankWithNames(stakes map[string]float64, name func(id string) string) []common.OwnershipRow {
	rows := make([]common.OwnershipRow, 0, len(stakes))
	for id, fraction := range stakes {
		if fraction <= 0 || math.IsNaN(fraction) {
			continue
		}
		row := common.OwnershipRow{ID: id, Percent: RoundPercent(fraction)}
		if name != nil {
			row.Name = name(id)
		}
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b common.OwnershipRow) int {
		if c := cmp.Compare(b.Percent, a.Percent); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return rows
}

// RoundPercent converts a fraction to a percentage rounded to two decimals.
func RoundPercent(fraction float64) float64 {
	return math.Round(fraction*100*100) / 100
}
