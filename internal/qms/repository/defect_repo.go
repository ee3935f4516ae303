package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"gorm.io/gorm"
)

// DefectRepository 缺陷仓库
type DefectRepository struct {
	db *gorm.DB
}

func NewDefectRepository(db *gorm.DB) *DefectRepository {
	return &DefectRepository{db: db}
}

// FindAll 查询缺陷列表（分页 + 过滤）
func (r *DefectRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Defect, int64, error) {
	var items []entity.Defect
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Defect{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if severity := filters["severity"]; severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if station := filters["test_station"]; station != "" {
		query = query.Where("test_station = ?", station)
	}
	if search := filters["search"]; search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"id LIKE ? OR operator LIKE ? OR defect_type LIKE ? OR component LIKE ? OR board_serial LIKE ?",
			like, like, like, like, like,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("timestamp DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByRange 查询时间区间内的缺陷（含边界），供聚合统计使用。
// from/to 任一为空时返回全量。
func (r *DefectRepository) FindByRange(ctx context.Context, from, to *time.Time) ([]entity.Defect, error) {
	var items []entity.Defect
	query := r.db.WithContext(ctx).Model(&entity.Defect{})
	if from != nil && to != nil {
		query = query.Where("timestamp >= ? AND timestamp <= ?", *from, *to)
	}
	err := query.Order("timestamp ASC").Find(&items).Error
	return items, err
}

// FindByID 根据ID查找缺陷
func (r *DefectRepository) FindByID(ctx context.Context, id string) (*entity.Defect, error) {
	var defect entity.Defect
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&defect).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &defect, nil
}

// Create 创建缺陷
func (r *DefectRepository) Create(ctx context.Context, defect *entity.Defect) error {
	return r.db.WithContext(ctx).Create(defect).Error
}

// CreateBatch 批量创建（上传导入用）
func (r *DefectRepository) CreateBatch(ctx context.Context, defects []entity.Defect) error {
	if len(defects) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(defects, 200).Error
}

// Update 更新缺陷（整条替换）
func (r *DefectRepository) Update(ctx context.Context, defect *entity.Defect) error {
	return r.db.WithContext(ctx).Save(defect).Error
}

// Delete 删除缺陷
func (r *DefectRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Defect{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count 缺陷总数
func (r *DefectRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Defect{}).Count(&n).Error
	return n, err
}

// GenerateCode 生成缺陷编号 DEF-{4位自增}
func (r *DefectRepository) GenerateCode(ctx context.Context) (string, error) {
	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Defect{}).
		Select("COALESCE(MAX(id), '')").
		Where("id LIKE ?", "DEF-%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "DEF-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("DEF-%04d", seq), nil
}
