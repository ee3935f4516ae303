// Package analytics computes chart-ready summaries from defect records.
// All functions are pure: they never touch the database and tolerate
// empty input (zero values, never NaN).
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
)

// mtbfWindowHours is the fixed observation window for the MTBF
// approximation: hours in a 30-day period divided by failure count.
// Not a true inter-arrival mean; kept deliberately (see DESIGN.md).
const mtbfWindowHours = 24 * 30

// CategoryCount is one row of a count/percentage breakdown.
type CategoryCount struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ComponentCount groups defects by component + part number.
type ComponentCount struct {
	Component  string `json:"component"`
	PartNumber string `json:"partNumber"`
	Count      int    `json:"count"`
	Vendor     string `json:"vendor"`
}

// DepartmentCount is the per-department breakdown row.
type DepartmentCount struct {
	Department string  `json:"department"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TrendPoint is one calendar day in the daily trend series.
type TrendPoint struct {
	Date       string `json:"date"`
	Defects    int    `json:"defects"`
	Resolved   int    `json:"resolved"`
	Cumulative int    `json:"cumulative"`
}

// RootCause is one row of the Pareto series. CumulativePercentage is
// computed in descending-count order; that ordering is what makes the
// 80/20 reading valid.
type RootCause struct {
	Cause                string  `json:"cause"`
	Count                int     `json:"count"`
	Percentage           float64 `json:"percentage"`
	CumulativePercentage float64 `json:"cumulativePercentage"`
}

// SeverityCount is the severity distribution row, label capitalized for
// display.
type SeverityCount struct {
	Severity   string  `json:"severity"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// HeatmapCell counts defects observed in one weekday/hour bucket (UTC).
type HeatmapCell struct {
	Day     string `json:"day"`
	Hour    int    `json:"hour"`
	Defects int    `json:"defects"`
}

// ControlPoint is one sample of the daily-count control chart.
type ControlPoint struct {
	Sample     int     `json:"sample"`
	Value      float64 `json:"value"`
	UCL        float64 `json:"ucl"`
	LCL        float64 `json:"lcl"`
	CenterLine float64 `json:"centerLine"`
}

// Report is the aggregated, read-only view over a defect collection.
// It has no identity of its own and is recomputed whenever inputs change.
type Report struct {
	TotalDefects    int     `json:"totalDefects"`
	ResolvedDefects int     `json:"resolvedDefects"`
	MTBF            float64 `json:"mtbf"`
	MTTR            float64 `json:"mttr"`

	DefectsByCategory    []CategoryCount   `json:"defectsByCategory"`
	DefectsByComponent   []ComponentCount  `json:"defectsByComponent"`
	DefectsByDepartment  []DepartmentCount `json:"defectsByDepartment"`
	TrendData            []TrendPoint      `json:"trendData"`
	TopRootCauses        []RootCause       `json:"topRootCauses"`
	SeverityDistribution []SeverityCount   `json:"severityDistribution"`
	HeatmapData          []HeatmapCell     `json:"heatmapData"`
	ControlChartData     []ControlPoint    `json:"controlChartData"`
}

// ResolutionRate returns the closed percentage rounded to an integer,
// 0 for an empty collection.
func (r *Report) ResolutionRate() int {
	if r.TotalDefects == 0 {
		return 0
	}
	return int(math.Round(float64(r.ResolvedDefects) / float64(r.TotalDefects) * 100))
}

// FilterByRange returns the defects whose timestamp falls inside the
// inclusive interval [from, to]. A missing bound disables filtering
// entirely (the input is returned unchanged). from > to yields an empty
// result, never an error.
func FilterByRange(defects []entity.Defect, from, to *time.Time) []entity.Defect {
	if from == nil || to == nil {
		return defects
	}
	out := make([]entity.Defect, 0, len(defects))
	for _, d := range defects {
		if d.Timestamp.Before(*from) || d.Timestamp.After(*to) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Aggregate computes the full report for a (usually pre-filtered) defect
// collection.
func Aggregate(defects []entity.Defect) *Report {
	r := &Report{
		DefectsByCategory:    []CategoryCount{},
		DefectsByComponent:   []ComponentCount{},
		DefectsByDepartment:  []DepartmentCount{},
		TrendData:            []TrendPoint{},
		TopRootCauses:        []RootCause{},
		SeverityDistribution: []SeverityCount{},
		HeatmapData:          []HeatmapCell{},
		ControlChartData:     []ControlPoint{},
	}
	if len(defects) == 0 {
		return r
	}

	total := len(defects)
	r.TotalDefects = total

	var resolutionSum float64
	var resolutionN int
	for i := range defects {
		if defects[i].IsClosed() {
			r.ResolvedDefects++
		}
		// records without a resolution time are excluded from the mean,
		// not treated as zero
		if defects[i].ResolutionTimeHours != nil {
			resolutionSum += *defects[i].ResolutionTimeHours
			resolutionN++
		}
	}
	if resolutionN > 0 {
		r.MTTR = round1(resolutionSum / float64(resolutionN))
	}
	r.MTBF = round1(float64(mtbfWindowHours) / float64(total))

	r.DefectsByCategory = categoryBreakdown(defects, total, func(d *entity.Defect) string { return d.DefectType })

	deptRows := categoryBreakdown(defects, total, func(d *entity.Defect) string { return d.Department })
	for _, row := range deptRows {
		r.DefectsByDepartment = append(r.DefectsByDepartment, DepartmentCount{
			Department: row.Category,
			Count:      row.Count,
			Percentage: row.Percentage,
		})
	}

	r.DefectsByComponent = componentBreakdown(defects)
	r.TrendData = dailyTrend(defects)
	r.TopRootCauses = paretoRootCauses(defects, total)
	r.SeverityDistribution = severityDistribution(defects, total)
	r.HeatmapData = heatmap(defects)
	r.ControlChartData = controlChart(r.TrendData)

	return r
}

// categoryBreakdown groups by an exact (case-sensitive) key, sorted
// descending by count; ties keep first-encounter order.
func categoryBreakdown(defects []entity.Defect, total int, key func(*entity.Defect) string) []CategoryCount {
	index := make(map[string]int)
	rows := make([]CategoryCount, 0)
	for i := range defects {
		k := key(&defects[i])
		pos, ok := index[k]
		if !ok {
			pos = len(rows)
			index[k] = pos
			rows = append(rows, CategoryCount{Category: k})
		}
		rows[pos].Count++
	}
	for i := range rows {
		rows[i].Percentage = float64(rows[i].Count) / float64(total) * 100
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	return rows
}

// componentBreakdown groups by component+partNumber and keeps the top 10.
// The vendor shown is the first one encountered for the pair.
func componentBreakdown(defects []entity.Defect) []ComponentCount {
	index := make(map[string]int)
	rows := make([]ComponentCount, 0)
	for i := range defects {
		d := &defects[i]
		k := d.Component + "-" + d.PartNumber
		pos, ok := index[k]
		if !ok {
			pos = len(rows)
			index[k] = pos
			rows = append(rows, ComponentCount{
				Component:  d.Component,
				PartNumber: d.PartNumber,
				Vendor:     d.Vendor,
			})
		}
		rows[pos].Count++
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if len(rows) > 10 {
		rows = rows[:10]
	}
	return rows
}

// dailyTrend buckets by UTC calendar day and carries a running cumulative
// total across the ascending date sequence.
func dailyTrend(defects []entity.Defect) []TrendPoint {
	type bucket struct {
		defects  int
		resolved int
	}
	byDay := make(map[string]*bucket)
	for i := range defects {
		day := defects[i].Timestamp.UTC().Format("2006-01-02")
		b, ok := byDay[day]
		if !ok {
			b = &bucket{}
			byDay[day] = b
		}
		b.defects++
		if defects[i].IsClosed() {
			b.resolved++
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	points := make([]TrendPoint, 0, len(days))
	cumulative := 0
	for _, day := range days {
		b := byDay[day]
		cumulative += b.defects
		points = append(points, TrendPoint{
			Date:       day,
			Defects:    b.defects,
			Resolved:   b.resolved,
			Cumulative: cumulative,
		})
	}
	return points
}

// paretoRootCauses sorts causes descending by count FIRST, then
// accumulates. Reversing that order breaks the Pareto interpretation.
func paretoRootCauses(defects []entity.Defect, total int) []RootCause {
	index := make(map[string]int)
	rows := make([]RootCause, 0)
	for i := range defects {
		k := defects[i].RootCause
		pos, ok := index[k]
		if !ok {
			pos = len(rows)
			index[k] = pos
			rows = append(rows, RootCause{Cause: k})
		}
		rows[pos].Count++
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })

	cumulative := 0
	for i := range rows {
		cumulative += rows[i].Count
		rows[i].Percentage = float64(rows[i].Count) / float64(total) * 100
		rows[i].CumulativePercentage = float64(cumulative) / float64(total) * 100
	}
	return rows
}

func severityDistribution(defects []entity.Defect, total int) []SeverityCount {
	index := make(map[string]int)
	rows := make([]SeverityCount, 0)
	for i := range defects {
		k := defects[i].Severity
		pos, ok := index[k]
		if !ok {
			pos = len(rows)
			index[k] = pos
			rows = append(rows, SeverityCount{Severity: capitalize(k)})
		}
		rows[pos].Count++
	}
	for i := range rows {
		rows[i].Percentage = float64(rows[i].Count) / float64(total) * 100
	}
	return rows
}

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// heatmap counts defects per (weekday, hour) bucket in UTC. All 7x24
// cells are emitted so the chart grid stays rectangular.
func heatmap(defects []entity.Defect) []HeatmapCell {
	var counts [7][24]int
	for i := range defects {
		ts := defects[i].Timestamp.UTC()
		counts[int(ts.Weekday())][ts.Hour()]++
	}
	cells := make([]HeatmapCell, 0, 7*24)
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			cells = append(cells, HeatmapCell{
				Day:     weekdayLabels[day],
				Hour:    hour,
				Defects: counts[day][hour],
			})
		}
	}
	return cells
}

// controlChart derives control limits from the daily defect counts:
// center line at the mean, limits at mean ± 3 sigma (LCL floored at 0).
func controlChart(trend []TrendPoint) []ControlPoint {
	if len(trend) == 0 {
		return []ControlPoint{}
	}

	var sum float64
	for _, p := range trend {
		sum += float64(p.Defects)
	}
	mean := sum / float64(len(trend))

	var variance float64
	for _, p := range trend {
		diff := float64(p.Defects) - mean
		variance += diff * diff
	}
	sigma := math.Sqrt(variance / float64(len(trend)))

	ucl := mean + 3*sigma
	lcl := math.Max(0, mean-3*sigma)

	points := make([]ControlPoint, 0, len(trend))
	for i, p := range trend {
		points = append(points, ControlPoint{
			Sample:     i + 1,
			Value:      float64(p.Defects),
			UCL:        round1(ucl),
			LCL:        round1(lcl),
			CenterLine: round1(mean),
		})
	}
	return points
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
