package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoutigo/smc-kpi/internal/kpi/cache"
	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"github.com/zoutigo/smc-kpi/internal/kpi/repository"
	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
	"go.uber.org/zap/zaptest"
)

type fakeCategories struct {
	bySlug map[string]*entity.Category
	err    error
	calls  atomic.Int32
}

func (f *fakeCategories) FindBySlug(_ context.Context, slug string) (*entity.Category, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.bySlug[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

type fakePackagings struct {
	byCategory map[string][]rollup.Packaging
	err        error
	calls      atomic.Int32
	lastFilter repository.Filters
}

func (f *fakePackagings) LoadPackagings(_ context.Context, categoryID string, filters repository.Filters, limit int) ([]rollup.Packaging, bool, error) {
	f.calls.Add(1)
	f.lastFilter = filters
	if f.err != nil {
		return nil, false, f.err
	}
	items := f.byCategory[categoryID]
	if len(items) > limit {
		return items[:limit], true, nil
	}
	return items, false, nil
}

type fakeStorages struct {
	items []rollup.Storage
	err   error
	calls atomic.Int32
}

func (f *fakeStorages) LoadStorages(_ context.Context, _ repository.Filters, limit int) ([]rollup.Storage, bool, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, false, f.err
	}
	if len(f.items) > limit {
		return f.items[:limit], true, nil
	}
	return f.items, false, nil
}

// fakeAggregator stands in for the GROUP BY queries. It walks the raw
// records directly, newest first, without going through DeriveStorage.
type fakeAggregator struct {
	storages []rollup.Storage
	err      error
	calls    atomic.Int32
}

func (f *fakeAggregator) StockByPlant(_ context.Context, _ repository.Filters) ([]rollup.PlantRollup, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	index := make(map[string]int)
	out := make([]rollup.PlantRollup, 0)
	for i := len(f.storages) - 1; i >= 0; i-- {
		s := f.storages[i]
		j, ok := index[s.PlantID]
		if !ok {
			j = len(out)
			index[s.PlantID] = j
			out = append(out, rollup.PlantRollup{
				Key:   s.PlantID,
				Label: rollup.Key{ID: s.PlantID, Name: s.PlantName}.Label(),
			})
		}
		out[j].Count++
		for _, l := range s.Links {
			out[j].Qty += float64(l.Qty)
			out[j].MaxQty += float64(l.MaxQty)
			out[j].Value += float64(l.Qty) * l.UnitValue
		}
	}
	for i := range out {
		out[i].OccupancyPct, _ = rollup.Occupancy(out[i].Qty, out[i].MaxQty)
	}
	return out, nil
}

func (f *fakeAggregator) WorkforceByPlant(_ context.Context, _ repository.Filters) ([]rollup.ValueRollup, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	index := make(map[string]int)
	out := make([]rollup.ValueRollup, 0)
	for i := len(f.storages) - 1; i >= 0; i-- {
		s := f.storages[i]
		j, ok := index[s.PlantID]
		if !ok {
			j = len(out)
			index[s.PlantID] = j
			out = append(out, rollup.ValueRollup{
				Key:   s.PlantID,
				Label: rollup.Key{ID: s.PlantID, Name: s.PlantName}.Label(),
			})
		}
		out[j].Count++
		for _, line := range s.StaffingLines {
			out[j].Value += line.Qty
		}
	}
	return out, nil
}

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, src Sources, clock *cache.ManualClock) *DashboardService {
	t.Helper()
	logger := zaptest.NewLogger(t)
	caches := NewMemoryCaches(cache.Options{TTL: cache.DefaultTTL, Clock: clock, Logger: logger})
	return NewDashboardService(src, caches, Options{Clock: clock, Logger: logger})
}

func storageFixture() []rollup.Storage {
	return []rollup.Storage{
		{
			ID: "s1", Name: "Rack 1", PlantID: "p1", PlantName: "Detroit", CategoryID: "c2", CategoryName: "Rack",
			Width: 2000, Length: 1000, Height: 3000,
			Lanes:         []rollup.Lane{{Length: 5000, NumberOfLanes: 2}},
			StaffingLines: []rollup.StaffingLine{{Role: "driver", Qty: 2}},
			Links:         []rollup.PackagingLink{{PackagingID: "pk1", Qty: 4, MaxQty: 10, UnitValue: 100}},
		},
		{
			ID: "s2", Name: "Rack 2", PlantID: "p2", PlantName: "Lyon", CategoryID: "c2", CategoryName: "Rack",
			Width: 1000, Length: 1000, Height: 2000,
			StaffingLines: []rollup.StaffingLine{{Role: "picker", Qty: 1.5}},
			Links:         []rollup.PackagingLink{{PackagingID: "pk3", Qty: 6, MaxQty: 8, UnitValue: 20}},
		},
		{
			ID: "s3", Name: "Floor 1", PlantID: "p1", PlantName: "Detroit",
			StaffingLines: []rollup.StaffingLine{{Role: "lead", Qty: 0.5}},
		},
	}
}

func detroitFixture() ([]rollup.Packaging, *fakeCategories) {
	categories := &fakeCategories{bySlug: map[string]*entity.Category{
		"galia": {ID: "c1", Name: "Galia", Slug: "galia", Family: "packaging"},
	}}
	items := []rollup.Packaging{
		{
			ID: "A", Name: "Asset A", PlantID: "p1", PlantName: "Detroit", SupplierID: "sup1", SupplierName: "Schoeller",
			Price: 500, Width: 800, Length: 1200, Height: 1000, NumberOfPackagings: 2,
			Parts: []rollup.Part{{ID: "pt1", Name: "Door", FamilyID: "fam1", FamilyName: "Doors", PartsPerPackaging: 4}},
		},
		{
			ID: "B", Name: "Asset B", PlantID: "p1", PlantName: "Detroit",
			Price: 300, Width: 0, Length: 1200, Height: 1000, NumberOfPackagings: 1,
		},
	}
	return items, categories
}
