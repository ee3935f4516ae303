package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"gorm.io/gorm"
)

// UserRepository 用户目录仓库
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ListAll 全部用户
func (r *UserRepository) ListAll(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error
	return users, err
}

// Search 按名字模糊匹配
func (r *UserRepository) Search(ctx context.Context, q string) ([]entity.User, error) {
	var users []entity.User
	like := "%" + q + "%"
	err := r.db.WithContext(ctx).
		Where("name LIKE ? OR email LIKE ?", like, like).
		Order("name ASC").
		Limit(50).
		Find(&users).Error
	return users, err
}

// FindByID 根据ID查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Upsert 启动播种用：存在则跳过
func (r *UserRepository) Upsert(ctx context.Context, user *entity.User) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", user.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(user).Error
}
