package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoutigo/smc-kpi/internal/kpi/cache"
	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"github.com/zoutigo/smc-kpi/internal/kpi/repository"
	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
)

func TestCategory_DetroitScenario(t *testing.T) {
	items, categories := detroitFixture()
	loader := &fakePackagings{byCategory: map[string][]rollup.Packaging{"c1": items}}
	svc := newTestService(t, Sources{Categories: categories, Packagings: loader}, cache.NewManualClock(testNow))

	p, err := svc.Category(context.Background(), "galia", repository.Filters{})
	require.NoError(t, err)

	assert.False(t, p.Degraded)
	assert.Equal(t, "category:galia", p.Scope)
	assert.Equal(t, "Galia", p.Category.Name)
	assert.Equal(t, testNow, p.GeneratedAt)

	require.Len(t, p.Overview.Charts.CapacityByPlant, 1)
	detroit := p.Overview.Charts.CapacityByPlant[0]
	assert.Equal(t, "Detroit", detroit.Label)
	assert.Equal(t, 4.0, detroit.Value)
	assert.Equal(t, 2, detroit.Count)

	hist := p.Overview.Charts.VolumeHistogram
	require.Len(t, hist, len(volumeThresholds)+1)
	assert.Equal(t, 1, hist[0].Count, "asset B has a zero volume")
	assert.Equal(t, 1, hist[3].Count, "asset A is 0.96 m³")

	cards := p.Overview.Cards
	assert.Equal(t, 2, cards.PackagingCount)
	assert.Equal(t, 3, cards.TotalUnits)
	assert.Equal(t, 1, cards.CountNoCapacity)
	assert.Equal(t, 125.0, cards.AvgEuroPerCapacity, "only assets with capacity count")
	assert.Equal(t, 1300.0, cards.TotalValue)
	assert.InDelta(t, 0.96, cards.TotalVolume, 1e-9)

	require.Len(t, p.Overview.Table, 2)
	assert.Equal(t, "A", p.Overview.Table[0].ID)

	assert.Equal(t, 400.0, p.Cost.Cards.MedianFullUnitCost)
	assert.Equal(t, 1, p.Capacity.Cards.CountNoCapacity)
	assert.Equal(t, 50.0, p.Parts.Cards.MonoPartPct)
	assert.Equal(t, 0.0, p.Parts.Cards.MultiPartPct)
	assert.Equal(t, []rollup.Cell{{OuterKey: "p1", Outer: "Detroit", InnerKey: "fam1", Inner: "Doors", Count: 1}},
		p.Parts.Charts.PlantFamilyCoverage)
	assert.Equal(t, 100.0, p.Accessories.Cards.WithoutAccessoriesPct)

	require.Len(t, p.Cost.Charts.ValueBySupplier, 2)
	assert.Equal(t, "Schoeller", p.Cost.Charts.ValueBySupplier[0].Label)
	assert.Equal(t, rollup.UnknownLabel, p.Cost.Charts.ValueBySupplier[1].Label)
}

func TestCategory_UnknownSlug(t *testing.T) {
	categories := &fakeCategories{bySlug: map[string]*entity.Category{}}
	loader := &fakePackagings{}
	svc := newTestService(t, Sources{Categories: categories, Packagings: loader}, cache.NewManualClock(testNow))

	for i := 0; i < 2; i++ {
		p, err := svc.Category(context.Background(), "missing", repository.Filters{})
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrCategoryNotFound)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
	assert.Equal(t, int32(2), categories.calls.Load(), "not-found is never cached")
	assert.Equal(t, int32(0), loader.calls.Load())
}

func TestCategory_SlugCannotReachAnotherScope(t *testing.T) {
	items, categories := detroitFixture()
	loader := &fakePackagings{byCategory: map[string][]rollup.Packaging{"c1": items}}
	svc := newTestService(t, Sources{Categories: categories, Packagings: loader}, cache.NewManualClock(testNow))
	ctx := context.Background()

	_, err := svc.Category(ctx, "galia", repository.Filters{PlantID: "p1"})
	require.NoError(t, err)

	p, err := svc.Category(ctx, "galia|plant=p1|flow=|status=ACTIVE", repository.Filters{})
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, _, err = svc.ExportCategory(ctx, "galia|plant=p1|flow=|status=ACTIVE", repository.Filters{})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, int32(1), categories.calls.Load())
}

func TestCategory_LoaderFailureServesEmptyPayload(t *testing.T) {
	_, categories := detroitFixture()
	loader := &fakePackagings{err: errors.New("connection refused")}
	svc := newTestService(t, Sources{Categories: categories, Packagings: loader}, cache.NewManualClock(testNow))
	ctx := context.Background()

	p, err := svc.Category(ctx, "galia", repository.Filters{})
	require.NoError(t, err)

	assert.True(t, p.Degraded)
	assert.Equal(t, "galia", p.Category.Slug)
	assert.Equal(t, OverviewCards{}, p.Overview.Cards)
	assert.Equal(t, CostCards{}, p.Cost.Cards)
	assert.NotNil(t, p.Overview.Table)
	assert.Empty(t, p.Overview.Table)
	assert.NotNil(t, p.Overview.Charts.ValueByPlant)
	assert.NotNil(t, p.Parts.Table)
	assert.NotNil(t, p.Parts.Charts.PlantFamilyCoverage)
	assert.NotNil(t, p.Cost.Charts.CostScatter)
	assert.NotNil(t, p.Accessories.Charts.TopAccessories)
	for _, b := range p.Overview.Charts.VolumeHistogram {
		assert.Zero(t, b.Count)
	}

	_, err = svc.Category(ctx, "galia", repository.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.calls.Load(), "degraded payloads are not cached")
}

func TestCategory_CacheHitExpiryAndInvalidate(t *testing.T) {
	items, categories := detroitFixture()
	loader := &fakePackagings{byCategory: map[string][]rollup.Packaging{"c1": items}}
	clock := cache.NewManualClock(testNow)
	svc := newTestService(t, Sources{Categories: categories, Packagings: loader}, clock)
	ctx := context.Background()

	first, err := svc.Category(ctx, "galia", repository.Filters{})
	require.NoError(t, err)
	second, err := svc.Category(ctx, "galia", repository.Filters{})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), loader.calls.Load())

	clock.Advance(cache.DefaultTTL)
	_, err = svc.Category(ctx, "galia", repository.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.calls.Load(), "recomputed after the ttl")

	require.NoError(t, svc.Invalidate(ctx, cache.CategoryScope("galia")))
	_, err = svc.Category(ctx, "galia", repository.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), loader.calls.Load(), "invalidate drops the raw snapshot too")

	require.NoError(t, svc.Invalidate(ctx, ""))
	_, err = svc.Category(ctx, "galia", repository.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(4), loader.calls.Load())
}

func TestCategory_FiltersGetTheirOwnEntry(t *testing.T) {
	items, categories := detroitFixture()
	loader := &fakePackagings{byCategory: map[string][]rollup.Packaging{"c1": items}}
	svc := newTestService(t, Sources{Categories: categories, Packagings: loader}, cache.NewManualClock(testNow))
	ctx := context.Background()

	_, err := svc.Category(ctx, "galia", repository.Filters{})
	require.NoError(t, err)
	p, err := svc.Category(ctx, "galia", repository.Filters{Status: entity.StatusAll, PlantID: "p1"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), loader.calls.Load())
	assert.Equal(t, "category:galia|plant=p1|flow=|status=ALL", p.Scope)
	assert.Equal(t, "p1", loader.lastFilter.PlantID)

	require.NoError(t, svc.Invalidate(ctx, cache.CategoryScope("galia")))
	_, err = svc.Category(ctx, "galia", repository.Filters{Status: entity.StatusAll, PlantID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), loader.calls.Load(), "filter variants belong to the scope")
}

func TestCategory_TopNKeepsLoadOrderOnTies(t *testing.T) {
	_, categories := detroitFixture()
	items := make([]rollup.Packaging, 0, 5)
	for i := 1; i <= 5; i++ {
		items = append(items, rollup.Packaging{
			ID: fmt.Sprintf("P%d", i), PlantID: "p1", PlantName: "Detroit", Price: 100, NumberOfPackagings: 3,
		})
	}
	loader := &fakePackagings{byCategory: map[string][]rollup.Packaging{"c1": items}}
	svc := newTestService(t, Sources{Categories: categories, Packagings: loader}, cache.NewManualClock(testNow))

	p, err := svc.Category(context.Background(), "galia", repository.Filters{})
	require.NoError(t, err)

	ids := make([]string, 0, len(p.Overview.Table))
	for _, row := range p.Overview.Table {
		ids = append(ids, row.ID)
	}
	assert.Equal(t, []string{"P1", "P2", "P3", "P4", "P5"}, ids)
}

func TestCategory_TruncatedLoad(t *testing.T) {
	_, categories := detroitFixture()
	items := make([]rollup.Packaging, 0, 3)
	for i := 0; i < 3; i++ {
		items = append(items, rollup.Packaging{ID: fmt.Sprintf("P%d", i), PlantID: "p1"})
	}
	loader := &fakePackagings{byCategory: map[string][]rollup.Packaging{"c1": items}}
	clock := cache.NewManualClock(testNow)
	caches := NewMemoryCaches(cache.Options{Clock: clock})
	svc := NewDashboardService(Sources{Categories: categories, Packagings: loader}, caches, Options{MaxItems: 2, Clock: clock})

	p, err := svc.Category(context.Background(), "galia", repository.Filters{})
	require.NoError(t, err)
	assert.True(t, p.Truncated)
	assert.Equal(t, 2, p.Overview.Cards.PackagingCount)
}

func globalSources(aggErr error, withAggregator bool) (Sources, *fakeStorages, *fakeAggregator) {
	storages := &fakeStorages{items: storageFixture()}
	agg := &fakeAggregator{storages: storageFixture(), err: aggErr}
	src := Sources{Storages: storages}
	if withAggregator {
		src.Aggregates = agg
	}
	return src, storages, agg
}

func TestGlobal_DualPathEquivalence(t *testing.T) {
	ctx := context.Background()

	dbSrc, _, dbAgg := globalSources(nil, true)
	fallbackSrc, _, fallbackAgg := globalSources(errors.New("relation does not exist"), true)
	memorySrc, _, _ := globalSources(nil, false)

	viaDB, err := newTestService(t, dbSrc, cache.NewManualClock(testNow)).Global(ctx, repository.Filters{})
	require.NoError(t, err)
	viaFallback, err := newTestService(t, fallbackSrc, cache.NewManualClock(testNow)).Global(ctx, repository.Filters{})
	require.NoError(t, err)
	viaMemory, err := newTestService(t, memorySrc, cache.NewManualClock(testNow)).Global(ctx, repository.Filters{})
	require.NoError(t, err)

	assert.Equal(t, PathDB, viaDB.AggregatePath)
	assert.Equal(t, PathMemory, viaFallback.AggregatePath)
	assert.Equal(t, PathMemory, viaMemory.AggregatePath)
	assert.Equal(t, int32(2), dbAgg.calls.Load())
	assert.GreaterOrEqual(t, fallbackAgg.calls.Load(), int32(1))

	for _, key := range []string{"storage_count", "total_qty", "total_max_qty", "total_value", "occupancy_pct", "slots_remaining", "workforce"} {
		assert.Equal(t, viaDB.MetricValue(key), viaFallback.MetricValue(key), key)
		assert.Equal(t, viaDB.MetricValue(key), viaMemory.MetricValue(key), key)
	}
	assert.Equal(t, viaDB.OccupancyByPlant, viaFallback.OccupancyByPlant)
	assert.Equal(t, viaDB.WorkforceByPlant, viaFallback.WorkforceByPlant)

	assert.Equal(t, 3.0, viaDB.MetricValue("storage_count"))
	assert.Equal(t, 10.0, viaDB.MetricValue("total_qty"))
	assert.Equal(t, 18.0, viaDB.MetricValue("total_max_qty"))
	assert.Equal(t, 520.0, viaDB.MetricValue("total_value"))
	assert.Equal(t, 4.0, viaDB.MetricValue("workforce"))
	assert.Equal(t, 8.0, viaDB.MetricValue("slots_remaining"))
}

func TestGlobal_DBTotalsAreNotAddedTwice(t *testing.T) {
	src, _, _ := globalSources(nil, true)
	// the database sees a storage the capped loader never returned
	src.Aggregates.(*fakeAggregator).storages = append(storageFixture(), rollup.Storage{
		ID: "s4", PlantID: "p2", PlantName: "Lyon",
		Links: []rollup.PackagingLink{{Qty: 10, MaxQty: 10, UnitValue: 1}},
	})
	svc := newTestService(t, src, cache.NewManualClock(testNow))

	p, err := svc.Global(context.Background(), repository.Filters{})
	require.NoError(t, err)

	assert.Equal(t, 20.0, p.MetricValue("total_qty"))
	assert.Equal(t, 28.0, p.MetricValue("total_max_qty"))
	assert.Equal(t, 530.0, p.MetricValue("total_value"))
	assert.Equal(t, 4.0, p.MetricValue("storage_count"))
}

func TestGlobal_Breakdowns(t *testing.T) {
	src, _, _ := globalSources(nil, false)
	p, err := newTestService(t, src, cache.NewManualClock(testNow)).Global(context.Background(), repository.Filters{})
	require.NoError(t, err)

	assert.Equal(t, "global", p.Scope)
	assert.Equal(t, 3.0, p.MetricValue("total_surface"))
	assert.Equal(t, 2.0, p.MetricValue("total_lanes"))
	assert.Equal(t, 10.0, p.MetricValue("total_lane_length"))

	require.Len(t, p.OccupancyByPlant, 2)
	assert.Equal(t, "Detroit", p.OccupancyByPlant[0].Label)
	assert.Equal(t, 40.0, p.OccupancyByPlant[0].OccupancyPct)
	assert.Equal(t, "Lyon", p.OccupancyByPlant[1].Label)
	assert.Equal(t, 75.0, p.OccupancyByPlant[1].OccupancyPct)

	require.Len(t, p.EfficiencyByCategory, 2)
	assert.Equal(t, "Rack", p.EfficiencyByCategory[0].Label)
	assert.Equal(t, 6.0, p.EfficiencyByCategory[0].Ratio, "18 slots over 3 m²")
	assert.Equal(t, rollup.UnknownLabel, p.EfficiencyByCategory[1].Label)
	assert.Equal(t, 0.0, p.EfficiencyByCategory[1].Ratio)

	require.Len(t, p.TopBySurface, 3)
	assert.Equal(t, "s1", p.TopBySurface[0].ID)
	assert.Equal(t, "s1", p.TopByWorkforce[0].ID)
}

func TestGlobal_LoaderFailureServesEmptyPayload(t *testing.T) {
	src, storages, _ := globalSources(nil, true)
	storages.err = errors.New("timeout")
	svc := newTestService(t, src, cache.NewManualClock(testNow))
	ctx := context.Background()

	p, err := svc.Global(ctx, repository.Filters{})
	require.NoError(t, err)

	assert.True(t, p.Degraded)
	assert.Equal(t, PathMemory, p.AggregatePath, "zeroed payload is not reported as db-backed")
	require.NotEmpty(t, p.Metrics)
	for _, m := range p.Metrics {
		assert.Zero(t, m.Value, m.Key)
	}
	assert.NotNil(t, p.SurfaceByPlant)
	assert.NotNil(t, p.EfficiencyByCategory)
	assert.NotNil(t, p.LanesByPlant)
	assert.NotNil(t, p.WorkforceByPlant)
	assert.NotNil(t, p.OccupancyByPlant)
	assert.NotNil(t, p.TopBySurface)
	assert.NotNil(t, p.TopByWorkforce)

	_, err = svc.Global(ctx, repository.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), storages.calls.Load())
}

func TestGlobal_CachedWithinTTL(t *testing.T) {
	src, storages, _ := globalSources(nil, true)
	clock := cache.NewManualClock(testNow)
	svc := newTestService(t, src, clock)
	ctx := context.Background()

	_, err := svc.Global(ctx, repository.Filters{})
	require.NoError(t, err)
	clock.Advance(4 * time.Minute)
	_, err = svc.Global(ctx, repository.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), storages.calls.Load())

	require.NoError(t, svc.Invalidate(ctx, cache.GlobalScope))
	_, err = svc.Global(ctx, repository.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), storages.calls.Load())
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "global", ScopeKey(cache.GlobalScope, repository.Filters{}))
	assert.Equal(t, "global", ScopeKey(cache.GlobalScope, repository.Filters{Status: entity.StatusActive}))
	assert.Equal(t, "category:galia|plant=|flow=f1|status=ACTIVE",
		ScopeKey(cache.CategoryScope("galia"), repository.Filters{FlowID: "f1"}))
	assert.True(t, cache.InScope(ScopeKey(cache.CategoryScope("galia"), repository.Filters{Status: entity.StatusDraft}), "category:galia"))
}
