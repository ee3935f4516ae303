package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/bitfantasy/nimo-qms/internal/qms/testutil"
)

func TestAnalyticsReportOverSeededData(t *testing.T) {
	env := testutil.SetupEnv(t)
	base := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)

	hours := 4.0
	testutil.SeedDefect(t, env.DB, "DEF-0001", func(d *entity.Defect) {
		d.Timestamp = base
		d.Status = entity.StatusResolved
		d.ResolutionTimeHours = &hours
	})
	testutil.SeedDefect(t, env.DB, "DEF-0002", func(d *entity.Defect) {
		d.Timestamp = base.AddDate(0, 0, 1)
		d.DefectType = "Short Circuit"
	})

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/analytics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 0 {
		t.Fatalf("code = %v, want 0", resp["code"])
	}
	data := resp["data"].(map[string]interface{})
	if data["totalDefects"].(float64) != 2 {
		t.Fatalf("totalDefects = %v, want 2", data["totalDefects"])
	}
	if data["resolvedDefects"].(float64) != 1 {
		t.Fatalf("resolvedDefects = %v, want 1", data["resolvedDefects"])
	}
	if data["mttr"].(float64) != 4 {
		t.Fatalf("mttr = %v, want 4", data["mttr"])
	}

	trend := data["trendData"].([]interface{})
	if len(trend) != 2 {
		t.Fatalf("expected 2 trend days, got %d", len(trend))
	}
}

func TestAnalyticsRangeFilter(t *testing.T) {
	env := testutil.SetupEnv(t)
	base := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)

	testutil.SeedDefect(t, env.DB, "DEF-0001", func(d *entity.Defect) { d.Timestamp = base })
	testutil.SeedDefect(t, env.DB, "DEF-0002", func(d *entity.Defect) { d.Timestamp = base.AddDate(0, 1, 0) })

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/analytics?from=2025-07-01&to=2025-07-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["totalDefects"].(float64) != 1 {
		t.Fatalf("totalDefects = %v, want 1 inside July", data["totalDefects"])
	}
}

func TestAnalyticsBadRangeParam(t *testing.T) {
	env := testutil.SetupEnv(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/analytics?from=notadate", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAnalyticsReportDownload(t *testing.T) {
	env := testutil.SetupEnv(t)
	testutil.SeedDefect(t, env.DB, "DEF-0001", nil)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/analytics/report", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Content-Disposition") == "" {
		t.Fatal("missing Content-Disposition")
	}

	resp := testutil.ParseResponse(w)
	summary, ok := resp["summary"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing summary: %s", w.Body.String())
	}
	if summary["totalDefects"].(float64) != 1 {
		t.Fatalf("summary.totalDefects = %v, want 1", summary["totalDefects"])
	}
	if _, ok := resp["generatedAt"]; !ok {
		t.Fatal("missing generatedAt")
	}
}
