package entity

import (
	"time"
)

// Defect ICT测试缺陷记录
//
// JSON字段名沿用前端约定（camelCase），前端表格/图表直接消费。
type Defect struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`

	Operator   string `json:"operator" gorm:"size:100"`
	AssignedTo string `json:"assignedTo" gorm:"size:100"`

	// 分类字段
	DefectType  string `json:"defectType" gorm:"size:100;index"`
	Component   string `json:"component" gorm:"size:100;index"`
	PartNumber  string `json:"partNumber" gorm:"size:64"`
	Pin         string `json:"pin" gorm:"size:32"`
	TestStation string `json:"testStation" gorm:"size:64"`
	BoardSerial string `json:"boardSerial" gorm:"size:64"`
	RootCause   string `json:"rootCause" gorm:"size:100"`
	Department  string `json:"department" gorm:"size:64"`
	Vendor      string `json:"vendor" gorm:"size:64"`

	Severity   string `json:"severity" gorm:"size:10;default:medium"`
	Status     string `json:"status" gorm:"size:20;default:open;index"`
	TestResult string `json:"testResult" gorm:"size:10"`

	// 处理信息
	ResolvedDate        *time.Time `json:"resolvedDate,omitempty"`
	ResolutionTimeHours *float64   `json:"resolutionTimeHours,omitempty" gorm:"type:decimal(10,2)"`

	// 建议类字段（上传富化或人工填写）
	Comment        string `json:"comment" gorm:"type:text"`
	Suggestion     string `json:"suggestion" gorm:"type:text"`
	PinExplanation string `json:"pinExplanation" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Defect) TableName() string {
	return "qms_defects"
}

// 严重度
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// 缺陷状态
const (
	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
	StatusVerified   = "verified"
)

// 测试结果
const (
	TestResultPass    = "pass"
	TestResultFail    = "fail"
	TestResultWarning = "warning"
)

// IsClosed resolved/verified 均视为已关闭，参与解决率统计
func (d *Defect) IsClosed() bool {
	return d.Status == StatusResolved || d.Status == StatusVerified
}

// ValidSeverity 校验严重度取值
func ValidSeverity(s string) bool {
	return s == SeverityHigh || s == SeverityMedium || s == SeverityLow
}

// ValidStatus 校验状态取值
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusVerified:
		return true
	}
	return false
}

// User 用户目录条目（操作员/工程师）
type User struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	Name       string    `json:"name" gorm:"size:100;not null"`
	Email      string    `json:"email" gorm:"size:200"`
	Role       string    `json:"role" gorm:"size:50"`
	Department string    `json:"department" gorm:"size:64"`
	Status     string    `json:"status" gorm:"size:20;default:active"`
	JoinDate   time.Time `json:"joinDate"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "qms_users"
}
