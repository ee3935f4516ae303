package entity

import "time"

// Notification 站内通知
//
// 通知只存在于进程内（见 notify.Store），不落库：语义上等价于原型系统的
// 会话级消息流，重启即清空。
type Notification struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Severity  string                 `json:"severity"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    string                 `json:"userId,omitempty"`
	DefectID  string                 `json:"defectId,omitempty"`
	Read      bool                   `json:"read"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// 通知类型
const (
	NotifyDefectCreated  = "defect_created"
	NotifyDefectResolved = "defect_resolved"
	NotifyDefectAssigned = "defect_assigned"
	NotifyStatusChanged  = "status_changed"
)

// Settings 用户偏好设置（Redis持久化，按userId隔离）
type Settings struct {
	Theme             string `json:"theme"`
	DefaultFileFormat string `json:"defaultFileFormat"`
	AutoAnalysis      bool   `json:"autoAnalysis"`
	Notifications     bool   `json:"notifications"`
	MaxFileSize       string `json:"maxFileSize"`
	RetentionDays     string `json:"retentionDays"`
	ExportFormat      string `json:"exportFormat"`
	CustomComponents  string `json:"customComponents"`
}

// DefaultSettings 默认偏好
func DefaultSettings() Settings {
	return Settings{
		Theme:             "system",
		DefaultFileFormat: "csv",
		AutoAnalysis:      true,
		Notifications:     true,
		MaxFileSize:       "10",
		RetentionDays:     "90",
		ExportFormat:      "csv",
	}
}
