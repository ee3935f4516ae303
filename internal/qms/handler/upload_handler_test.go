package handler_test

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-qms/internal/qms/testutil"
)

func TestUploadCSVNoFile(t *testing.T) {
	env := testutil.SetupEnv(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/upload-csv", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if testutil.ParseResponse(w)["error"] != "No file uploaded" {
		t.Fatalf("unexpected error: %s", w.Body.String())
	}
}

func TestUploadCSVParsesAndEnriches(t *testing.T) {
	env := testutil.SetupEnv(t)

	csv := "2025-07-01T10:00:00Z,Ahmed Benali,Cold Solder,Resistor,Pin 1,flux residue\n" +
		"2025-07-01T11:00:00Z,Fatima Zahra,Scratches,Capacitor,Pin 2,\n"

	w := testutil.DoUpload(env.Router, "/api/upload-csv", "defects.csv", []byte(csv), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	if resp["success"] != true {
		t.Fatalf("expected success=true: %v", resp)
	}
	if resp["totalCount"].(float64) != 2 {
		t.Fatalf("totalCount = %v, want 2", resp["totalCount"])
	}

	problems := resp["problems"].([]interface{})
	first := problems[0].(map[string]interface{})
	if first["severity"] != "high" {
		t.Fatalf("Cold Solder severity = %v, want high", first["severity"])
	}
	if first["pinExplanation"] != "Input side - check for cold solder joint, ensure proper connection" {
		t.Fatalf("unexpected pinExplanation: %v", first["pinExplanation"])
	}
	second := problems[1].(map[string]interface{})
	if second["severity"] != "low" {
		t.Fatalf("Scratches severity = %v, want low", second["severity"])
	}
}

func TestUploadCSVEmptyFile(t *testing.T) {
	env := testutil.SetupEnv(t)

	w := testutil.DoUpload(env.Router, "/api/upload-csv", "empty.csv", []byte("   \n"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if testutil.ParseResponse(w)["error"] != "Empty file" {
		t.Fatalf("unexpected error: %s", w.Body.String())
	}
}

func TestUploadFileUnsupportedFormat(t *testing.T) {
	env := testutil.SetupEnv(t)

	w := testutil.DoUpload(env.Router, "/api/upload-file", "photo.png", []byte{0x89, 0x50}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if testutil.ParseResponse(w)["error"] != "Unsupported file format" {
		t.Fatalf("unexpected error: %s", w.Body.String())
	}
}

func TestUploadFileSemicolonDelimited(t *testing.T) {
	env := testutil.SetupEnv(t)

	text := "Date;Technician;Issue;Part;Pin Number;Notes\n" +
		"2025-07-02;Omar Tazi;Short Circuit;Diode;Pin 2;reverse bias\n"

	w := testutil.DoUpload(env.Router, "/api/upload-file", "upload.csv", []byte(text), map[string]string{"format": "csv"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	if resp["fileFormat"] != "csv" {
		t.Fatalf("fileFormat = %v, want csv", resp["fileFormat"])
	}
	problems := resp["problems"].([]interface{})
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %d", len(problems))
	}
	row := problems[0].(map[string]interface{})
	if row["operator"] != "Omar Tazi" || row["defectType"] != "Short Circuit" {
		t.Fatalf("synonym mapping failed: %v", row)
	}
}
