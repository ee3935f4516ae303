package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bitfantasy/nimo-qms/internal/qms/storage"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var (
	// ErrEmptyFile 上传文件为空
	ErrEmptyFile = errors.New("empty file")
	// ErrUnsupportedFormat 不支持的文件格式
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// pinExplanations 元件引脚排查说明，按元件+引脚查找，兜底Default
var pinExplanations = map[string]map[string]string{
	"Resistor": {
		"Pin 1":   "Input side - check for cold solder joint, ensure proper connection",
		"Pin 2":   "Output side - verify continuity and resistance value",
		"Default": "Check solder joints and component orientation",
	},
	"Capacitor": {
		"Pin 1":   "Positive lead - inspect for damage, verify polarity marking",
		"Pin 2":   "Negative lead - check polarity, ensure proper grounding",
		"Default": "Verify polarity and check for bulging or leakage",
	},
	"IC": {
		"Pin 1":   "Usually VCC or input - check power supply connection",
		"Pin 2":   "Data/signal pin - verify signal integrity",
		"Pin 3":   "Ground or output - ensure proper grounding",
		"Pin 4":   "Control pin - check logic levels",
		"Default": "Verify pin configuration and check for bent pins",
	},
	"Transistor": {
		"Pin 1":   "Base - check biasing circuit and signal input",
		"Pin 2":   "Collector - verify load connection and voltage levels",
		"Pin 3":   "Emitter - check grounding and current path",
		"Default": "Verify transistor type and pin configuration",
	},
	"Diode": {
		"Pin 1":   "Anode - check forward bias conditions",
		"Pin 2":   "Cathode - verify reverse bias protection",
		"Default": "Check polarity and forward voltage drop",
	},
	"Inductor": {
		"Pin 1":   "Input terminal - check for continuity",
		"Pin 2":   "Output terminal - verify inductance value",
		"Default": "Check for open circuit or short circuit",
	},
}

// repairSuggestions 元件返修建议，兜底Other
var repairSuggestions = map[string]string{
	"Resistor":   "Check solder joints, verify resistance value with multimeter, ensure proper wattage rating",
	"Capacitor":  "Verify polarity, check for bulging or leakage, test capacitance value",
	"IC":         "Check pin connections, verify power supply, test with known good IC",
	"Transistor": "Verify pin configuration, check biasing, test with curve tracer",
	"Diode":      "Check polarity, test forward/reverse bias, verify voltage drop",
	"Inductor":   "Test continuity, check for physical damage, verify inductance value",
	"Other":      "Perform visual inspection, check connections, verify component specifications",
}

// defectSeverity 缺陷类型到严重度的映射，未知类型按medium
var defectSeverity = map[string]string{
	"Cold Solder":       "high",
	"Open Circuit":      "high",
	"Short Circuit":     "high",
	"Component Failure": "high",
	"Loose Connection":  "medium",
	"Oxidation":         "medium",
	"Misalignment":      "medium",
	"Scratches":         "low",
	"Discoloration":     "low",
	"Minor Damage":      "low",
}

// columnSynonyms 表头同义词（小写比较）
var columnSynonyms = map[string][]string{
	"timestamp":  {"timestamp", "time", "date", "datetime"},
	"operator":   {"operator", "user", "technician"},
	"defectType": {"defect type", "defect", "issue"},
	"component":  {"component", "part", "device"},
	"pin":        {"pin", "pin number"},
	"comment":    {"comment", "remarks", "notes", "note"},
}

// ParsedDefect 上传解析后的单条问题记录
type ParsedDefect struct {
	Timestamp      string `json:"timestamp"`
	Operator       string `json:"operator"`
	DefectType     string `json:"defectType"`
	Component      string `json:"component"`
	Pin            string `json:"pin"`
	Comment        string `json:"comment"`
	Suggestion     string `json:"suggestion"`
	PinExplanation string `json:"pinExplanation"`
	Severity       string `json:"severity"`
}

// ImportResult 上传解析结果
type ImportResult struct {
	Success    bool           `json:"success"`
	Problems   []ParsedDefect `json:"problems"`
	TotalCount int            `json:"totalCount"`
	Skipped    int            `json:"skipped"`
	FileFormat string         `json:"fileFormat,omitempty"`
}

// ImportService 上传解析服务
type ImportService struct {
	archive *storage.ObjectStore
	logger  *zap.Logger
}

// NewImportService 创建上传解析服务
func NewImportService(archive *storage.ObjectStore, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{archive: archive, logger: logger}
}

// ParseUpload 解析上传文件。format可由表单显式指定，否则按扩展名判断。
// CSV按UTF-8读入，非法UTF-8时按GBK回退解码。
func (s *ImportService) ParseUpload(ctx context.Context, filename, format string, data []byte) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var result *ImportResult
	var err error
	switch {
	case format == "csv" || ext == ".csv" || ext == ".txt":
		result, err = s.parseDelimitedText(decodeText(data))
		if result != nil {
			result.FileFormat = "csv"
		}
	case format == "xlsx" || format == "xls" || ext == ".xlsx" || ext == ".xls":
		result, err = s.parseXLSX(data)
		if result != nil {
			result.FileFormat = "xlsx"
		}
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	// 归档原始文件，失败不影响解析结果
	if s.archive != nil {
		if _, aerr := s.archive.Archive(ctx, filename, "application/octet-stream", bytes.NewReader(data), int64(len(data))); aerr != nil {
			s.logger.Warn("Upload archive failed", zap.String("file", filename), zap.Error(aerr))
		}
	}
	return result, nil
}

// ParseCSVStrict 严格CSV解析（仅逗号分隔，按固定列序）。
// 首行含timestamp/operator视为表头跳过，不足4列的行丢弃并计入skipped。
func (s *ImportService) ParseCSVStrict(ctx context.Context, filename string, data []byte) (*ImportResult, error) {
	lines := splitLines(decodeText(data))
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	start := 0
	first := strings.ToLower(lines[0])
	if strings.Contains(first, "timestamp") || strings.Contains(first, "operator") {
		start = 1
	}

	result := &ImportResult{Success: true, Problems: []ParsedDefect{}}
	for _, line := range lines[start:] {
		columns := splitColumns(line, ",")
		if len(columns) < 4 {
			result.Skipped++
			continue
		}
		result.Problems = append(result.Problems, enrich(ParsedDefect{
			Timestamp:  valueOr(columns, 0, time.Now().Format(time.RFC3339)),
			Operator:   valueOr(columns, 1, "Unknown"),
			DefectType: valueOr(columns, 2, "Unknown"),
			Component:  valueOr(columns, 3, "Unknown"),
			Pin:        valueOr(columns, 4, "N/A"),
			Comment:    valueOr(columns, 5, ""),
		}))
	}
	result.TotalCount = len(result.Problems)

	if s.archive != nil {
		if _, aerr := s.archive.Archive(ctx, filename, "text/csv", bytes.NewReader(data), int64(len(data))); aerr != nil {
			s.logger.Warn("Upload archive failed", zap.String("file", filename), zap.Error(aerr))
		}
	}
	return result, nil
}

// parseDelimitedText 宽松解析：分隔符自动识别（逗号/分号/制表符），
// 表头按同义词映射，无有效表头时所有字段走默认值。
func (s *ImportService) parseDelimitedText(text string) (*ImportResult, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}
	return s.parseRows(rowsFromLines(lines))
}

// parseXLSX Excel解析，取第一张工作表
func (s *ImportService) parseXLSX(data []byte) (*ImportResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}

	trimmed := make([][]string, 0, len(rows))
	for _, row := range rows {
		empty := true
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
			if row[i] != "" {
				empty = false
			}
		}
		if !empty {
			trimmed = append(trimmed, row)
		}
	}
	if len(trimmed) == 0 {
		return nil, ErrEmptyFile
	}
	return s.parseRows(trimmed)
}

// parseRows 表头映射 + 逐行取值 + 知识表富化
func (s *ImportService) parseRows(rows [][]string) (*ImportResult, error) {
	columnIndex := mapColumns(rows[0])

	headerValid := false
	for _, idx := range columnIndex {
		if idx != -1 {
			headerValid = true
			break
		}
	}
	start := 0
	if headerValid {
		start = 1
	}

	getCol := func(row []string, key, fallback string) string {
		idx := columnIndex[key]
		if idx >= 0 && idx < len(row) && row[idx] != "" {
			return row[idx]
		}
		return fallback
	}

	result := &ImportResult{Success: true, Problems: []ParsedDefect{}}
	for _, row := range rows[start:] {
		if len(row) == 0 {
			result.Skipped++
			continue
		}
		result.Problems = append(result.Problems, enrich(ParsedDefect{
			Timestamp:  getCol(row, "timestamp", time.Now().Format(time.RFC3339)),
			Operator:   getCol(row, "operator", "Unknown"),
			DefectType: getCol(row, "defectType", "Unknown"),
			Component:  getCol(row, "component", "Unknown"),
			Pin:        getCol(row, "pin", "N/A"),
			Comment:    getCol(row, "comment", ""),
		}))
	}
	result.TotalCount = len(result.Problems)
	return result, nil
}

// enrich 按知识表补建议、引脚说明和严重度
func enrich(p ParsedDefect) ParsedDefect {
	if sug, ok := repairSuggestions[p.Component]; ok {
		p.Suggestion = sug
	} else {
		p.Suggestion = repairSuggestions["Other"]
	}

	p.PinExplanation = "No specific information available for this pin"
	if pins, ok := pinExplanations[p.Component]; ok {
		if exp, ok := pins[p.Pin]; ok {
			p.PinExplanation = exp
		} else if exp, ok := pins["Default"]; ok {
			p.PinExplanation = exp
		}
	}

	if sev, ok := defectSeverity[p.DefectType]; ok {
		p.Severity = sev
	} else {
		p.Severity = "medium"
	}
	return p
}

func mapColumns(header []string) map[string]int {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(stripQuotes(h)))
	}

	columnIndex := make(map[string]int, len(columnSynonyms))
	for key, synonyms := range columnSynonyms {
		columnIndex[key] = -1
		for i, h := range lowered {
			for _, syn := range synonyms {
				if h == syn {
					columnIndex[key] = i
					break
				}
			}
			if columnIndex[key] != -1 {
				break
			}
		}
	}
	return columnIndex
}

// rowsFromLines 按逗号/分号/制表符切分每行
func rowsFromLines(lines []string) [][]string {
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, splitAny(line))
	}
	return rows
}

// splitAny 按任一分隔符切列，保留空列的位置
func splitAny(line string) []string {
	var columns []string
	current := strings.Builder{}
	for _, r := range line {
		if r == ',' || r == ';' || r == '\t' {
			columns = append(columns, cleanColumn(current.String()))
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	columns = append(columns, cleanColumn(current.String()))
	return columns
}

func splitColumns(line, sep string) []string {
	parts := strings.Split(line, sep)
	for i := range parts {
		parts[i] = cleanColumn(parts[i])
	}
	return parts
}

func cleanColumn(col string) string {
	return stripQuotes(strings.TrimSpace(col))
}

func stripQuotes(col string) string {
	col = strings.TrimPrefix(col, `"`)
	return strings.TrimSuffix(col, `"`)
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func valueOr(columns []string, idx int, fallback string) string {
	if idx < len(columns) && columns[idx] != "" {
		return columns[idx]
	}
	return fallback
}

// decodeText UTF-8优先，失败时按GBK回退解码
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	reader := transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}
