package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/zoutigo/smc-kpi/internal/kpi/repository"
	"github.com/zoutigo/smc-kpi/internal/kpi/service"
	"github.com/zoutigo/smc-kpi/internal/kpi/testutil"
)

type stubProvider struct {
	lastSlug    string
	lastFilters repository.Filters
	invalidated []string
	categoryErr error
}

func (s *stubProvider) Global(_ context.Context, f repository.Filters) (*service.GlobalPayload, error) {
	s.lastFilters = f
	return &service.GlobalPayload{
		Scope:         "global",
		AggregatePath: service.PathDB,
		Metrics:       []service.Metric{{Key: "total_qty", Label: "Stored packagings", Value: 10}},
	}, nil
}

func (s *stubProvider) Category(_ context.Context, slug string, f repository.Filters) (*service.CategoryPayload, error) {
	s.lastSlug = slug
	s.lastFilters = f
	if s.categoryErr != nil {
		return nil, s.categoryErr
	}
	return &service.CategoryPayload{
		Scope:    "category:" + slug,
		Category: service.CategoryRef{ID: "c1", Name: "Galia", Slug: slug},
		Overview: service.OverviewSection{Cards: service.OverviewCards{PackagingCount: 2}},
	}, nil
}

func (s *stubProvider) ExportCategory(_ context.Context, slug string, _ repository.Filters) (*excelize.File, string, error) {
	if s.categoryErr != nil {
		return nil, "", s.categoryErr
	}
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "ID")
	return f, "KPI_" + slug + ".xlsx", nil
}

func (s *stubProvider) Invalidate(_ context.Context, scope string) error {
	s.invalidated = append(s.invalidated, scope)
	return nil
}

func setupDashboardTest(t *testing.T) (*gin.Engine, *stubProvider) {
	t.Helper()
	stub := &stubProvider{}
	r := testutil.SetupRouter()
	RegisterRoutes(testutil.AuthGroup(r, "/api/v1"), NewHandlers(stub))
	return r, stub
}

func TestGlobal(t *testing.T) {
	r, stub := setupDashboardTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(r, "GET", "/api/v1/kpi/global?plant_id=p1&status=ALL", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["aggregate_path"] != "db" {
		t.Fatalf("expected aggregate_path db, got %v", data["aggregate_path"])
	}
	if stub.lastFilters.PlantID != "p1" || stub.lastFilters.Status != "ALL" {
		t.Fatalf("filters not forwarded: %+v", stub.lastFilters)
	}
}

func TestGlobal_RejectsUnknownStatus(t *testing.T) {
	r, _ := setupDashboardTest(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/kpi/global?status=ARCHIVED", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40000 {
		t.Fatalf("expected code 40000, got %v", resp["code"])
	}
}

func TestGlobal_RequiresToken(t *testing.T) {
	r, _ := setupDashboardTest(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/kpi/global", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCategory(t *testing.T) {
	r, stub := setupDashboardTest(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/kpi/categories/galia?flow_id=f1", nil, testutil.ViewerTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stub.lastSlug != "galia" || stub.lastFilters.FlowID != "f1" {
		t.Fatalf("unexpected call: slug=%s filters=%+v", stub.lastSlug, stub.lastFilters)
	}

	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	cards := data["overview"].(map[string]interface{})["cards"].(map[string]interface{})
	if cards["packaging_count"].(float64) != 2 {
		t.Fatalf("expected packaging_count 2, got %v", cards["packaging_count"])
	}
}

func TestCategory_NotFound(t *testing.T) {
	r, stub := setupDashboardTest(t)
	stub.categoryErr = service.ErrCategoryNotFound

	w := testutil.DoRequest(r, "GET", "/api/v1/kpi/categories/missing", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if testutil.ParseResponse(w)["code"].(float64) != 40400 {
		t.Fatalf("expected code 40400")
	}
}

func TestCategory_RejectsKeySeparatorInSlug(t *testing.T) {
	r, stub := setupDashboardTest(t)
	token := testutil.DefaultTestToken()

	for _, path := range []string{
		"/api/v1/kpi/categories/galia%7Cplant=p1%7Cflow=%7Cstatus=ACTIVE",
		"/api/v1/kpi/categories/galia%7Cplant=p1/export",
	} {
		w := testutil.DoRequest(r, "GET", path, nil, token)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", path, w.Code, w.Body.String())
		}
	}
	if stub.lastSlug != "" {
		t.Fatalf("provider should not be called, got slug %q", stub.lastSlug)
	}
}

func TestCategory_InternalError(t *testing.T) {
	r, stub := setupDashboardTest(t)
	stub.categoryErr = errors.New("boom")

	w := testutil.DoRequest(r, "GET", "/api/v1/kpi/categories/galia", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestExport(t *testing.T) {
	r, _ := setupDashboardTest(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/kpi/categories/galia/export", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "KPI_galia.xlsx") {
		t.Fatalf("unexpected Content-Disposition: %s", w.Header().Get("Content-Disposition"))
	}
	if _, err := excelize.OpenReader(w.Body); err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	r, stub := setupDashboardTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(r, "POST", "/api/v1/kpi/cache/invalidate", map[string]string{"scope": "category:galia"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, "POST", "/api/v1/kpi/cache/invalidate", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty body, got %d: %s", w.Code, w.Body.String())
	}

	if len(stub.invalidated) != 2 || stub.invalidated[0] != "category:galia" || stub.invalidated[1] != "" {
		t.Fatalf("unexpected invalidations: %v", stub.invalidated)
	}
}

func TestInvalidate_RejectsBadScope(t *testing.T) {
	r, stub := setupDashboardTest(t)

	for _, scope := range []string{"category:", "plants", "category:galia|status=ALL"} {
		w := testutil.DoRequest(r, "POST", "/api/v1/kpi/cache/invalidate", map[string]string{"scope": scope}, testutil.DefaultTestToken())
		if w.Code != http.StatusBadRequest {
			t.Fatalf("scope %q: expected 400, got %d", scope, w.Code)
		}
	}
	if len(stub.invalidated) != 0 {
		t.Fatalf("nothing should be invalidated, got %v", stub.invalidated)
	}
}

func TestInvalidate_RequiresPermission(t *testing.T) {
	r, stub := setupDashboardTest(t)

	w := testutil.DoRequest(r, "POST", "/api/v1/kpi/cache/invalidate", nil, testutil.ViewerTestToken())
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if len(stub.invalidated) != 0 {
		t.Fatalf("invalidate must not run without permission")
	}
}
