package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/bitfantasy/nimo-qms/internal/qms/repository"
)

// UserService 用户目录服务（分派下拉、@提及用）
type UserService struct {
	repo *repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// List 全部用户
func (s *UserService) List(ctx context.Context) ([]entity.User, error) {
	return s.repo.ListAll(ctx)
}

// Search 名字/邮箱模糊搜索
func (s *UserService) Search(ctx context.Context, q string) ([]entity.User, error) {
	if q == "" {
		return s.repo.ListAll(ctx)
	}
	return s.repo.Search(ctx, q)
}

// SeedDefaults 启动时播种默认操作员目录
func (s *UserService) SeedDefaults(ctx context.Context) error {
	for i, name := range sampleOperators {
		user := &entity.User{
			ID:         fmt.Sprintf("user-%03d", i+1),
			Name:       name,
			Email:      userEmail(name),
			Department: sampleDepts[i%len(sampleDepts)],
			Role:       "operator",
			Status:     "active",
			JoinDate:   time.Now(),
		}
		if err := s.repo.Upsert(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// userEmail 由姓名派生演示邮箱 first.last@ict-dashboard.local
func userEmail(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@ict-dashboard.local"
}
