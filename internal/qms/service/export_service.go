package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// exportHeaders 导出列，三种表格格式共用同一列序
var exportHeaders = []string{
	"ID", "Timestamp", "Operator", "Defect Type", "Component", "Part Number",
	"Pin", "Test Station", "Board Serial", "Status", "Severity", "Root Cause",
	"Assigned To", "Comment", "Suggestion",
}

// ExportFile 导出结果
type ExportFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportService 缺陷导出服务
type ExportService struct {
	analytics *AnalyticsService
}

// NewExportService 创建导出服务
func NewExportService(analytics *AnalyticsService) *ExportService {
	return &ExportService{analytics: analytics}
}

// Export 按格式导出缺陷列表。json格式输出聚合分析报告而非明细。
func (s *ExportService) Export(ctx context.Context, defects []entity.Defect, format string, from, to *time.Time) (*ExportFile, error) {
	date := time.Now().Format("2006-01-02")
	switch format {
	case "csv":
		return &ExportFile{
			Data:        s.renderCSV(defects),
			Filename:    fmt.Sprintf("ict-defects-%s.csv", date),
			ContentType: "text/csv",
		}, nil
	case "xlsx":
		data, err := s.renderXLSX(defects)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Data:        data,
			Filename:    fmt.Sprintf("ict-defects-%s.xlsx", date),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil
	case "pdf":
		data, err := s.renderPDF(defects)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Data:        data,
			Filename:    fmt.Sprintf("ict-defects-%s.pdf", date),
			ContentType: "application/pdf",
		}, nil
	case "json":
		data, err := s.analytics.RenderReportJSON(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Data:        data,
			Filename:    fmt.Sprintf("ict-analytics-report-%s.json", date),
			ContentType: "application/json",
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported export format: %s", ErrInvalidInput, format)
	}
}

func exportRow(d *entity.Defect) []string {
	return []string{
		d.ID,
		d.Timestamp.Format("2006-01-02 15:04:05"),
		d.Operator,
		d.DefectType,
		d.Component,
		d.PartNumber,
		d.Pin,
		d.TestStation,
		d.BoardSerial,
		d.Status,
		d.Severity,
		d.RootCause,
		d.AssignedTo,
		d.Comment,
		d.Suggestion,
	}
}

// renderCSV 每个字段统一双引号包裹，内部引号转义为两个引号
func (s *ExportService) renderCSV(defects []entity.Defect) []byte {
	var buf bytes.Buffer
	writeRow := func(fields []string) {
		for i, field := range fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}

	writeRow(exportHeaders)
	for i := range defects {
		writeRow(exportRow(&defects[i]))
	}
	return buf.Bytes()
}

func (s *ExportService) renderXLSX(defects []entity.Defect) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Defects"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx := range defects {
		row := exportRow(&defects[rowIdx])
		for colIdx, value := range row {
			col, _ := excelize.ColumnNumberToName(colIdx + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, rowIdx+2), value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// renderPDF 横版A4表格
func (s *ExportService) renderPDF(defects []entity.Defect) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "ICT Defect Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, "Generated "+time.Now().Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	widths := []float64{16, 28, 22, 22, 18, 18, 13, 16, 18, 16, 15, 22, 22, 22, 25}

	pdf.SetFont("Arial", "B", 7)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range exportHeaders {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	pdf.SetTextColor(0, 0, 0)
	fill := false
	for i := range defects {
		pdf.SetFillColor(240, 244, 248)
		row := exportRow(&defects[i])
		for j, value := range row {
			if len(value) > 24 {
				value = value[:21] + "..."
			}
			pdf.CellFormat(widths[j], 6, value, "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
