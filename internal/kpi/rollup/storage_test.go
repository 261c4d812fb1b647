package rollup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storageFixture() []ComputedStorage {
	raw := []Storage{
		{ID: "s1", PlantID: "p1", PlantName: "Detroit", Width: 1000, Length: 1000,
			Links:         []PackagingLink{{Qty: 10, MaxQty: 20, UnitValue: 5}},
			StaffingLines: []StaffingLine{{Qty: 2}}},
		{ID: "s2", PlantID: "p2", PlantName: "Lyon",
			Links: []PackagingLink{{Qty: 3, MaxQty: 3, UnitValue: 100}, {Qty: 1, MaxQty: 5, UnitValue: 1}}},
		{ID: "s3", PlantID: "p1", PlantName: "Detroit",
			StaffingLines: []StaffingLine{{Qty: 1}, {Qty: 4}}},
	}
	out := make([]ComputedStorage, 0, len(raw))
	for _, s := range raw {
		out = append(out, DeriveStorage(s))
	}
	return out
}

func TestAggregateStorages(t *testing.T) {
	agg := AggregateStorages(storageFixture())

	assert.Equal(t, StorageTotals{Qty: 14, MaxQty: 28, Value: 351, Workforce: 7}, agg.Totals)
	assert.Equal(t, 50.0, agg.Totals.OccupancyPct())
	assert.Equal(t, 14.0, agg.Totals.SlotsRemaining())

	require.Len(t, agg.OccupancyByPlant, 2)
	detroit := agg.OccupancyByPlant[0]
	assert.Equal(t, PlantRollup{Key: "p1", Label: "Detroit", Count: 2, Qty: 10, MaxQty: 20, Value: 50, OccupancyPct: 50}, detroit)

	require.Len(t, agg.WorkforceByPlant, 2)
	assert.Equal(t, ValueRollup{Key: "p1", Label: "Detroit", Count: 2, Value: 7}, agg.WorkforceByPlant[0])
	assert.Equal(t, ValueRollup{Key: "p2", Label: "Lyon", Count: 1, Value: 0}, agg.WorkforceByPlant[1])
}

func TestTotalsFromPlants_MatchesInMemoryTotals(t *testing.T) {
	agg := AggregateStorages(storageFixture())

	totals := TotalsFromPlants(agg.OccupancyByPlant, agg.WorkforceByPlant)

	assert.Equal(t, agg.Totals, totals)
}

func TestStorageTotals_EmptyIsZero(t *testing.T) {
	var totals StorageTotals
	assert.Equal(t, 0.0, totals.OccupancyPct())
	assert.Equal(t, 0.0, totals.SlotsRemaining())
}
