package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/bitfantasy/nimo-qms/internal/qms/notify"
	"github.com/bitfantasy/nimo-qms/internal/qms/repository"
	"github.com/bitfantasy/nimo-qms/internal/qms/sse"
)

// ErrInvalidInput 输入校验失败，handler层映射为400
var ErrInvalidInput = errors.New("invalid input")

// DefectService 缺陷服务
type DefectService struct {
	repo          *repository.DefectRepository
	notifications *notify.Store
	hub           *sse.Hub
}

// NewDefectService 创建缺陷服务
func NewDefectService(repo *repository.DefectRepository, notifications *notify.Store, hub *sse.Hub) *DefectService {
	return &DefectService{
		repo:          repo,
		notifications: notifications,
		hub:           hub,
	}
}

// DefectListResult 缺陷列表结果
type DefectListResult struct {
	Items      []entity.Defect `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// List 获取缺陷列表
func (s *DefectService) List(ctx context.Context, page, pageSize int, filters map[string]string) (*DefectListResult, error) {
	items, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list defects: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &DefectListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ListAll 获取全量缺陷（按时间倒序）
func (s *DefectService) ListAll(ctx context.Context) ([]entity.Defect, error) {
	items, _, err := s.repo.FindAll(ctx, 1, 10000, nil)
	return items, err
}

// ListByRange 查询时间区间内的缺陷（导出用）
func (s *DefectService) ListByRange(ctx context.Context, from, to *time.Time) ([]entity.Defect, error) {
	return s.repo.FindByRange(ctx, from, to)
}

// Get 获取单条缺陷
func (s *DefectService) Get(ctx context.Context, id string) (*entity.Defect, error) {
	return s.repo.FindByID(ctx, id)
}

// requiredDefectFields 创建缺陷的必填字段，缺失时整体拒绝
var requiredDefectFields = []struct {
	name  string
	value func(*entity.Defect) string
}{
	{"defectType", func(d *entity.Defect) string { return d.DefectType }},
	{"component", func(d *entity.Defect) string { return d.Component }},
	{"partNumber", func(d *entity.Defect) string { return d.PartNumber }},
	{"testStation", func(d *entity.Defect) string { return d.TestStation }},
	{"boardSerial", func(d *entity.Defect) string { return d.BoardSerial }},
}

func validateDefect(d *entity.Defect) error {
	for _, f := range requiredDefectFields {
		if f.value(d) == "" {
			return fmt.Errorf("%w: missing required field: %s", ErrInvalidInput, f.name)
		}
	}
	if d.Severity != "" && !entity.ValidSeverity(d.Severity) {
		return fmt.Errorf("%w: invalid severity: %s", ErrInvalidInput, d.Severity)
	}
	if d.Status != "" && !entity.ValidStatus(d.Status) {
		return fmt.Errorf("%w: invalid status: %s", ErrInvalidInput, d.Status)
	}
	if d.ResolvedDate != nil && d.ResolvedDate.Before(d.Timestamp) {
		return fmt.Errorf("%w: resolvedDate must not be before timestamp", ErrInvalidInput)
	}
	return nil
}

// Create 创建缺陷：分配编号、补默认值、发布事件
func (s *DefectService) Create(ctx context.Context, defect *entity.Defect) (*entity.Defect, error) {
	if defect.Timestamp.IsZero() {
		defect.Timestamp = time.Now()
	}
	if defect.Severity == "" {
		defect.Severity = entity.SeverityMedium
	}
	if defect.Status == "" {
		defect.Status = entity.StatusOpen
	}
	if err := validateDefect(defect); err != nil {
		return nil, err
	}

	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate defect code: %w", err)
	}
	defect.ID = code

	// resolvedDate给了但没给工时，按时间差补算
	if defect.ResolvedDate != nil && defect.ResolutionTimeHours == nil {
		hours := defect.ResolvedDate.Sub(defect.Timestamp).Hours()
		defect.ResolutionTimeHours = &hours
	}

	if err := s.repo.Create(ctx, defect); err != nil {
		return nil, fmt.Errorf("create defect: %w", err)
	}

	s.publishEvent(entity.NotifyDefectCreated, defect, defect.AssignedTo)
	return defect, nil
}

// Update 更新缺陷（整条替换），按字段变化发布对应事件
func (s *DefectService) Update(ctx context.Context, id string, updated *entity.Defect) (*entity.Defect, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if updated.Timestamp.IsZero() {
		updated.Timestamp = existing.Timestamp
	}
	if updated.Severity == "" {
		updated.Severity = existing.Severity
	}
	if updated.Status == "" {
		updated.Status = existing.Status
	}
	if err := validateDefect(updated); err != nil {
		return nil, err
	}

	if updated.ResolvedDate != nil && updated.ResolutionTimeHours == nil {
		hours := updated.ResolvedDate.Sub(updated.Timestamp).Hours()
		updated.ResolutionTimeHours = &hours
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("update defect: %w", err)
	}

	switch {
	case existing.Status != updated.Status && updated.Status == entity.StatusResolved:
		s.publishEvent(entity.NotifyDefectResolved, updated, updated.AssignedTo)
	case existing.AssignedTo != updated.AssignedTo && updated.AssignedTo != "":
		s.publishEvent(entity.NotifyDefectAssigned, updated, updated.AssignedTo)
	case existing.Status != updated.Status:
		s.publishEvent(entity.NotifyStatusChanged, updated, updated.AssignedTo)
	}
	return updated, nil
}

// Delete 删除缺陷
func (s *DefectService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SeedSamples 启动时播种演示数据（仅当库为空）
func (s *DefectService) SeedSamples(ctx context.Context, count int) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	samples := GenerateSampleDefects(time.Now().UnixNano(), count)
	if err := s.repo.CreateBatch(ctx, samples); err != nil {
		return 0, fmt.Errorf("seed sample defects: %w", err)
	}
	return len(samples), nil
}

// publishEvent 广播SSE事件并给相关用户追加一条通知
func (s *DefectService) publishEvent(eventType string, d *entity.Defect, userID string) {
	if s.hub != nil {
		s.hub.PublishDefectEvent(eventType, d)
	}
	if s.notifications != nil && userID != "" {
		s.notifications.Add(entity.Notification{
			Type:     eventType,
			Title:    d.DefectType + " on " + d.Component,
			Message:  "Defect " + d.ID + " (" + d.Severity + ")",
			Severity: d.Severity,
			UserID:   userID,
			DefectID: d.ID,
		})
	}
}
