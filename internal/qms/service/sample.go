package service

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
)

var (
	sampleOperators = []string{"Ahmed Benali", "Fatima Zahra", "Youssef Alami", "Aicha Bennani", "Omar Tazi"}
	sampleDefects   = []string{"Cold Solder", "Component Missing", "Short Circuit", "Value Out of Range", "Open Circuit", "Programming Failure"}
	sampleParts     = []string{"Resistor", "Capacitor", "IC", "Diode", "Inductor", "MOSFET"}
	sampleDepts     = []string{"Process", "Engineering", "Production", "Maintenance"}
	sampleVendors   = []string{"Yageo", "Murata", "STMicroelectronics", "Vishay", "TDK", "Infineon"}
	sampleCauses    = []string{"Operator Error", "Component Failure", "Process Issue", "Design Flaw", "Environmental", "Equipment Malfunction"}
)

// GenerateSampleDefects 生成最近30天的演示缺陷数据，按时间升序。
// seed固定时输出可复现，测试依赖这一点。
func GenerateSampleDefects(seed int64, count int) []entity.Defect {
	rng := rand.New(rand.NewSource(seed))
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	span := to.Sub(from)

	defects := make([]entity.Defect, 0, count)
	for i := 0; i < count; i++ {
		timestamp := from.Add(time.Duration(rng.Float64() * float64(span)))

		severity := entity.SeverityLow
		if rng.Float64() < 0.3 {
			severity = entity.SeverityHigh
		} else if rng.Float64() < 0.6 {
			severity = entity.SeverityMedium
		}

		isResolved := rng.Float64() < 0.75
		var resolutionHours *float64
		var resolvedDate *time.Time
		status := entity.StatusOpen
		if isResolved {
			hours := rng.Float64()*48 + 0.5
			resolutionHours = &hours
			resolved := timestamp.Add(time.Duration(hours * float64(time.Hour)))
			resolvedDate = &resolved
			status = entity.StatusResolved
			if rng.Float64() >= 0.8 {
				status = entity.StatusVerified
			}
		} else if rng.Float64() < 0.5 {
			status = entity.StatusInProgress
		}

		testResult := entity.TestResultFail
		if severity != entity.SeverityHigh {
			testResult = entity.TestResultPass
			if rng.Float64() < 0.7 {
				testResult = entity.TestResultWarning
			}
		}

		defects = append(defects, entity.Defect{
			ID:                  fmt.Sprintf("DEF-%04d", i+1),
			Timestamp:           timestamp,
			Operator:            sampleOperators[rng.Intn(len(sampleOperators))],
			DefectType:          sampleDefects[rng.Intn(len(sampleDefects))],
			Component:           sampleParts[rng.Intn(len(sampleParts))],
			PartNumber:          fmt.Sprintf("P%04d", rng.Intn(9999)),
			Pin:                 fmt.Sprintf("PIN%d", rng.Intn(64)+1),
			TestStation:         fmt.Sprintf("ICT-%d", rng.Intn(8)+1),
			BoardSerial:         fmt.Sprintf("PCB%05d", rng.Intn(99999)),
			Comment:             "Automated defect detection",
			Suggestion:          "Review component placement",
			PinExplanation:      "Pin connection analysis required",
			Severity:            severity,
			Status:              status,
			TestResult:          testResult,
			RootCause:           sampleCauses[rng.Intn(len(sampleCauses))],
			AssignedTo:          sampleOperators[rng.Intn(len(sampleOperators))],
			ResolvedDate:        resolvedDate,
			Department:          sampleDepts[rng.Intn(len(sampleDepts))],
			Vendor:              sampleVendors[rng.Intn(len(sampleVendors))],
			ResolutionTimeHours: resolutionHours,
		})
	}

	sort.Slice(defects, func(i, j int) bool {
		return defects[i].Timestamp.Before(defects[j].Timestamp)
	})
	return defects
}
