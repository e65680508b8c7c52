package graph

import (
	"testing"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	rows := Rank(map[string]float64{
		"P-B": 0.25,
		"P-A": 0.25,
		"P-C": 0.5,
		"P-D": 0.123456,
		"P-E": 0.00001,
		"P-F": 0,
	})

	assert.Equal(t, []common.OwnershipRow{
		{ID: "P-C", Percent: 50},
		{ID: "P-A", Percent: 25},
		{ID: "P-B", Percent: 25},
		{ID: "P-D", Percent: 12.35},
		{ID: "P-E", Percent: 0},
	}, rows)
}

func TestRankKeepsTinyIndirectStake(t *testing.T) {
	g := mustBuild(t,
		[]common.Node{person("P"), company("C"), company("T")},
		[]Edge{
			{Source: "P", Target: "C", Weight: 0.001},
			{Source: "C", Target: "T", Weight: 0.04},
		},
	)

	stakes, err := ComputeEffectiveOwnership(g, "T")
	require.NoError(t, err)
	assert.InDelta(t, 0.00004, stakes["P"], 1e-15)

	assert.Equal(t, []common.OwnershipRow{{ID: "P", Percent: 0}}, Rank(stakes))
}

func TestRankEmpty(t *testing.T) {
	rows := Rank(nil)
	require.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 17.5, RoundPercent(0.175))
	assert.Equal(t, 33.33, RoundPercent(1.0/3))
	assert.Equal(t, 100.0, RoundPercent(1))
}

func TestCapTable(t *testing.T) {
	g := sampleGraph(t)

	assert.Equal(t, []common.OwnershipRow{
		{ID: "P-ANNA", Name: "Anna Berg", Percent: 60},
		{ID: "P-ERIK", Name: "Erik Lind", Percent: 25},
		{ID: store.BorealHolding, Name: "Boreal Holding AB", Percent: 15},
	}, CapTable(g, store.NordicWidgets))

	assert.Equal(t, []common.OwnershipRow{
		{ID: store.NWLogistics, Name: "Nordic Widgets Logistics AB", Percent: 100},
		{ID: store.NWResearch, Name: "NW Research Oy", Percent: 70},
	}, Subsidiaries(g, store.NordicWidgets))

	assert.Empty(t, Subsidiaries(g, "P-ANNA"))
}

func TestCheckCapTables(t *testing.T) {
	assert.Empty(t, CheckCapTables(sampleGraph(t)))

	g := mustBuild(t,
		[]common.Node{person("P"), person("Q"), company("T")},
		[]Edge{
			{Source: "P", Target: "T", Weight: 0.7},
			{Source: "Q", Target: "T", Weight: 0.4},
		},
	)
	anomalies := CheckCapTables(g)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "T", anomalies[0].NodeID)
	assert.Equal(t, 2, anomalies[0].Owners)
	assert.InDelta(t, 1.1, anomalies[0].Total, 1e-12)
}
