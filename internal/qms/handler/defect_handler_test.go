package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/bitfantasy/nimo-qms/internal/qms/testutil"
)

func validCreateBody() map[string]interface{} {
	return map[string]interface{}{
		"operator":    "Ahmed Benali",
		"defectType":  "Cold Solder",
		"component":   "Resistor",
		"partNumber":  "P0042",
		"testStation": "ICT-1",
		"boardSerial": "PCB00042",
		"severity":    "high",
	}
}

func TestCreateDefectMissingRequiredField(t *testing.T) {
	env := testutil.SetupEnv(t)

	body := validCreateBody()
	delete(body, "partNumber")

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/defects", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["success"] != false {
		t.Fatalf("expected success=false, got %v", resp)
	}
	if resp["error"] != "Missing required field: partNumber" {
		t.Fatalf("unexpected error message: %v", resp["error"])
	}
}

func TestCreateDefectAssignsSequentialIDs(t *testing.T) {
	env := testutil.SetupEnv(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/defects", validCreateBody())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["success"] != true || resp["message"] != "Defect created successfully" {
		t.Fatalf("unexpected response: %v", resp)
	}
	data := resp["data"].(map[string]interface{})
	if data["id"] != "DEF-0001" {
		t.Fatalf("first id = %v, want DEF-0001", data["id"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/defects", validCreateBody())
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	if data["id"] != "DEF-0002" {
		t.Fatalf("second id = %v, want DEF-0002", data["id"])
	}
}

func TestCreateDefectDefaultsOperator(t *testing.T) {
	env := testutil.SetupEnv(t)

	body := validCreateBody()
	delete(body, "operator")

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/defects", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["operator"] != "System" {
		t.Fatalf("operator = %v, want System", data["operator"])
	}
}

func TestCreateDefectNotifiesAssignee(t *testing.T) {
	env := testutil.SetupEnv(t)

	body := validCreateBody()
	body["assignedTo"] = "Omar Tazi"

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/defects", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	notifications, total, _ := env.Notifications.ListByUser("Omar Tazi", 10, 0)
	if total != 1 {
		t.Fatalf("assignee notifications = %d, want 1", total)
	}
	if notifications[0].Type != entity.NotifyDefectCreated {
		t.Fatalf("notification type = %s", notifications[0].Type)
	}
	if notifications[0].DefectID != "DEF-0001" {
		t.Fatalf("notification defectId = %s", notifications[0].DefectID)
	}
}

func TestListAllDefectsShape(t *testing.T) {
	env := testutil.SetupEnv(t)
	testutil.SeedDefect(t, env.DB, "DEF-0001", nil)
	testutil.SeedDefect(t, env.DB, "DEF-0002", nil)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/defects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := testutil.ParseResponse(w)
	data, ok := resp["data"].([]interface{})
	if !ok {
		t.Fatalf("expected data array, got %v", resp)
	}
	if len(data) != 2 {
		t.Fatalf("expected 2 defects, got %d", len(data))
	}
	first := data[0].(map[string]interface{})
	if _, ok := first["defectType"]; !ok {
		t.Fatalf("expected camelCase defectType key: %v", first)
	}
}

func TestUpdateDefectRejectsResolvedBeforeTimestamp(t *testing.T) {
	env := testutil.SetupEnv(t)
	seeded := testutil.SeedDefect(t, env.DB, "DEF-0001", nil)

	early := seeded.Timestamp.Add(-2 * time.Hour)
	body := map[string]interface{}{
		"operator":     seeded.Operator,
		"defectType":   seeded.DefectType,
		"component":    seeded.Component,
		"partNumber":   seeded.PartNumber,
		"testStation":  seeded.TestStation,
		"boardSerial":  seeded.BoardSerial,
		"timestamp":    seeded.Timestamp.Format(time.RFC3339),
		"status":       entity.StatusResolved,
		"resolvedDate": early.Format(time.RFC3339),
	}

	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/defects/DEF-0001", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40000 {
		t.Fatalf("expected code 40000, got %v", resp["code"])
	}
}

func TestUpdateDefectComputesResolutionHours(t *testing.T) {
	env := testutil.SetupEnv(t)
	seeded := testutil.SeedDefect(t, env.DB, "DEF-0001", nil)

	resolved := seeded.Timestamp.Add(6 * time.Hour)
	body := map[string]interface{}{
		"operator":     seeded.Operator,
		"defectType":   seeded.DefectType,
		"component":    seeded.Component,
		"partNumber":   seeded.PartNumber,
		"testStation":  seeded.TestStation,
		"boardSerial":  seeded.BoardSerial,
		"timestamp":    seeded.Timestamp.Format(time.RFC3339),
		"status":       entity.StatusResolved,
		"resolvedDate": resolved.Format(time.RFC3339),
	}

	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/defects/DEF-0001", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	hours, ok := data["resolutionTimeHours"].(float64)
	if !ok || hours < 5.9 || hours > 6.1 {
		t.Fatalf("resolutionTimeHours = %v, want ~6", data["resolutionTimeHours"])
	}
}

func TestGetAndDeleteDefectNotFound(t *testing.T) {
	env := testutil.SetupEnv(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/defects/DEF-9999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET status = %d, want 404", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodDelete, "/api/defects/DEF-9999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("DELETE status = %d, want 404", w.Code)
	}
}

func TestDefectListFiltersBySeverity(t *testing.T) {
	env := testutil.SetupEnv(t)
	testutil.SeedDefect(t, env.DB, "DEF-0001", func(d *entity.Defect) { d.Severity = entity.SeverityHigh })
	testutil.SeedDefect(t, env.DB, "DEF-0002", func(d *entity.Defect) { d.Severity = entity.SeverityLow })

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/defects/list?severity=high", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total"].(float64) != 1 {
		t.Fatalf("total = %v, want 1", data["total"])
	}
}

func TestDefectQRCode(t *testing.T) {
	env := testutil.SetupEnv(t)
	testutil.SeedDefect(t, env.DB, "DEF-0001", nil)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/defects/DEF-0001/qrcode", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %s, want image/png", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("empty PNG body")
	}
}

func TestDefectExportCSV(t *testing.T) {
	env := testutil.SetupEnv(t)
	testutil.SeedDefect(t, env.DB, "DEF-0001", nil)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/defects/export?format=csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Fatal("missing Content-Disposition header")
	}
}
