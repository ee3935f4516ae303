package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/xuri/excelize/v2"
)

func exportFixture() []entity.Defect {
	ts := time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)
	return []entity.Defect{
		{
			ID:          "DEF-0001",
			Timestamp:   ts,
			Operator:    "Ahmed Benali",
			DefectType:  "Cold Solder",
			Component:   "Resistor",
			PartNumber:  "P0042",
			Pin:         "Pin 1",
			TestStation: "ICT-3",
			BoardSerial: "PCB00042",
			Status:      entity.StatusOpen,
			Severity:    entity.SeverityHigh,
			RootCause:   "Process Issue",
			AssignedTo:  "Omar Tazi",
			Comment:     `flux residue, needs "rework"`,
			Suggestion:  "Check solder joints",
		},
		{
			ID:          "DEF-0002",
			Timestamp:   ts.Add(time.Hour),
			Operator:    "Fatima Zahra",
			DefectType:  "Short Circuit",
			Component:   "IC",
			PartNumber:  "P0100",
			Pin:         "Pin 4",
			TestStation: "ICT-1",
			BoardSerial: "PCB00100",
			Status:      entity.StatusResolved,
			Severity:    entity.SeverityMedium,
		},
	}
}

func TestExportCSVRoundTrip(t *testing.T) {
	svc := NewExportService(nil)
	file, err := svc.Export(context.Background(), exportFixture(), "csv", nil, nil)
	if err != nil {
		t.Fatalf("Export csv failed: %v", err)
	}
	if !strings.HasPrefix(file.Filename, "ict-defects-") || !strings.HasSuffix(file.Filename, ".csv") {
		t.Fatalf("unexpected filename: %s", file.Filename)
	}

	// 标准CSV解析器能原样读回，引号转义无损
	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV not parseable: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if len(records[0]) != len(exportHeaders) {
		t.Fatalf("header has %d columns, want %d", len(records[0]), len(exportHeaders))
	}
	if records[0][0] != "ID" || records[0][14] != "Suggestion" {
		t.Fatalf("unexpected header row: %v", records[0])
	}
	if records[1][13] != `flux residue, needs "rework"` {
		t.Fatalf("quoted comment did not round-trip: %q", records[1][13])
	}
}

func TestExportXLSX(t *testing.T) {
	svc := NewExportService(nil)
	file, err := svc.Export(context.Background(), exportFixture(), "xlsx", nil, nil)
	if err != nil {
		t.Fatalf("Export xlsx failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("exported xlsx not readable: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Defects")
	if err != nil {
		t.Fatalf("read Defects sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "DEF-0001" || rows[2][0] != "DEF-0002" {
		t.Fatalf("unexpected ids: %v %v", rows[1][0], rows[2][0])
	}
}

func TestExportPDFProducesDocument(t *testing.T) {
	svc := NewExportService(nil)
	file, err := svc.Export(context.Background(), exportFixture(), "pdf", nil, nil)
	if err != nil {
		t.Fatalf("Export pdf failed: %v", err)
	}
	if !bytes.HasPrefix(file.Data, []byte("%PDF")) {
		t.Fatal("output does not look like a PDF")
	}
	if file.ContentType != "application/pdf" {
		t.Fatalf("content type = %s", file.ContentType)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := NewExportService(nil)
	if _, err := svc.Export(context.Background(), nil, "docx", nil, nil); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestGenerateSampleDefects(t *testing.T) {
	a := GenerateSampleDefects(42, 200)
	b := GenerateSampleDefects(42, 200)

	if len(a) != 200 {
		t.Fatalf("expected 200 samples, got %d", len(a))
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Timestamp.Equal(b[i].Timestamp) {
			t.Fatal("same seed should be reproducible")
		}
	}

	for i := range a {
		d := &a[i]
		if i > 0 && d.Timestamp.Before(a[i-1].Timestamp) {
			t.Fatal("samples must be sorted by timestamp")
		}
		if !entity.ValidSeverity(d.Severity) || !entity.ValidStatus(d.Status) {
			t.Fatalf("invalid severity/status: %+v", d)
		}
		if d.ResolvedDate != nil {
			if d.ResolutionTimeHours == nil {
				t.Fatal("resolved sample missing resolution hours")
			}
			if d.ResolvedDate.Before(d.Timestamp) {
				t.Fatal("resolvedDate before timestamp")
			}
			if *d.ResolutionTimeHours < 0.5 || *d.ResolutionTimeHours >= 48.5 {
				t.Fatalf("resolution hours out of range: %v", *d.ResolutionTimeHours)
			}
		} else if d.Status == entity.StatusResolved || d.Status == entity.StatusVerified {
			t.Fatalf("closed sample without resolvedDate: %+v", d)
		}
	}
}

func TestSampleJSONUsesCamelCase(t *testing.T) {
	samples := GenerateSampleDefects(1, 1)
	data, err := json.Marshal(samples[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"defectType"`, `"partNumber"`, `"boardSerial"`, `"testStation"`, `"rootCause"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in JSON: %s", key, data)
		}
	}
}
