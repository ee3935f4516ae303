package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/analytics"
	"github.com/bitfantasy/nimo-qms/internal/qms/repository"
)

// AnalyticsService 聚合分析服务
type AnalyticsService struct {
	repo *repository.DefectRepository
}

// NewAnalyticsService 创建分析服务
func NewAnalyticsService(repo *repository.DefectRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// GetReport 查询时间区间内的缺陷并聚合成完整报表
func (s *AnalyticsService) GetReport(ctx context.Context, from, to *time.Time) (*analytics.Report, error) {
	defects, err := s.repo.FindByRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load defects: %w", err)
	}
	defects = analytics.FilterByRange(defects, from, to)
	return analytics.Aggregate(defects), nil
}

// ReportDocument 可下载的分析报告
type ReportDocument struct {
	GeneratedAt string                      `json:"generatedAt"`
	DateRange   ReportDateRange             `json:"dateRange"`
	Summary     ReportSummary               `json:"summary"`
	Categories  []analytics.CategoryCount   `json:"defectsByCategory"`
	Departments []analytics.DepartmentCount `json:"defectsByDepartment"`
	RootCauses  []analytics.RootCause       `json:"topRootCauses"`
	Trend       []analytics.TrendPoint      `json:"trendData"`
}

// ReportDateRange 报告覆盖的时间区间
type ReportDateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ReportSummary 报告摘要指标
type ReportSummary struct {
	TotalDefects    int     `json:"totalDefects"`
	ResolvedDefects int     `json:"resolvedDefects"`
	ResolutionRate  int     `json:"resolutionRate"`
	MTBF            float64 `json:"mtbf"`
	MTTR            float64 `json:"mttr"`
}

// BuildReport 组装分析报告文档
func (s *AnalyticsService) BuildReport(ctx context.Context, from, to *time.Time) (*ReportDocument, error) {
	report, err := s.GetReport(ctx, from, to)
	if err != nil {
		return nil, err
	}

	dateRange := ReportDateRange{From: "all", To: "all"}
	if from != nil {
		dateRange.From = from.UTC().Format("2006-01-02")
	}
	if to != nil {
		dateRange.To = to.UTC().Format("2006-01-02")
	}

	return &ReportDocument{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		DateRange:   dateRange,
		Summary: ReportSummary{
			TotalDefects:    report.TotalDefects,
			ResolvedDefects: report.ResolvedDefects,
			ResolutionRate:  report.ResolutionRate(),
			MTBF:            report.MTBF,
			MTTR:            report.MTTR,
		},
		Categories:  report.DefectsByCategory,
		Departments: report.DefectsByDepartment,
		RootCauses:  report.TopRootCauses,
		Trend:       report.TrendData,
	}, nil
}

// RenderReportJSON 生成JSON格式的报告文件内容
func (s *AnalyticsService) RenderReportJSON(ctx context.Context, from, to *time.Time) ([]byte, error) {
	doc, err := s.BuildReport(ctx, from, to)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}
