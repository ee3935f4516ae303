package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/redis/go-redis/v9"
)

// settingsKeyPrefix Redis键前缀，按用户维度存储
const settingsKeyPrefix = "qms:settings:"

// SettingsService 用户偏好设置服务。
// 配了Redis时持久化到Redis，否则退化为进程内存储。
type SettingsService struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local map[string]entity.Settings
}

// NewSettingsService 创建设置服务
func NewSettingsService(rdb *redis.Client) *SettingsService {
	return &SettingsService{
		rdb:   rdb,
		local: make(map[string]entity.Settings),
	}
}

// Get 读取用户设置，不存在时返回默认值
func (s *SettingsService) Get(ctx context.Context, userID string) (entity.Settings, error) {
	if s.rdb == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if settings, ok := s.local[userID]; ok {
			return settings, nil
		}
		return entity.DefaultSettings(), nil
	}

	raw, err := s.rdb.Get(ctx, settingsKeyPrefix+userID).Result()
	if err == redis.Nil {
		return entity.DefaultSettings(), nil
	}
	if err != nil {
		return entity.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	var settings entity.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		// 损坏的数据按默认值处理
		return entity.DefaultSettings(), nil
	}
	return settings, nil
}

// Save 保存用户设置（整体覆盖）
func (s *SettingsService) Save(ctx context.Context, userID string, settings entity.Settings) error {
	if s.rdb == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.local[userID] = settings
		return nil
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.rdb.Set(ctx, settingsKeyPrefix+userID, data, 0).Err(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Reset 恢复默认设置
func (s *SettingsService) Reset(ctx context.Context, userID string) (entity.Settings, error) {
	if s.rdb == nil {
		s.mu.Lock()
		delete(s.local, userID)
		s.mu.Unlock()
		return entity.DefaultSettings(), nil
	}

	if err := s.rdb.Del(ctx, settingsKeyPrefix+userID).Err(); err != nil {
		return entity.Settings{}, fmt.Errorf("reset settings: %w", err)
	}
	return entity.DefaultSettings(), nil
}
