// Package notify keeps the in-process notification feed. The store is
// deliberately not backed by the database: notifications are a transient
// stream, dropped on restart, capped at a fixed depth.
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/google/uuid"
)

// ErrNotFound 通知不存在（id+userId 未命中）
var ErrNotFound = errors.New("notification not found")

// maxStored caps the store; the oldest entries are dropped past this.
const maxStored = 1000

// Store 进程内通知存储。显式构造、按依赖注入传给handler，
// 测试可各自实例化隔离的Store。
type Store struct {
	mu    sync.RWMutex
	items []entity.Notification
}

func NewStore() *Store {
	return &Store{items: make([]entity.Notification, 0, 64)}
}

// Add 追加一条通知，服务端分配id和时间戳。超出上限时丢弃最旧的。
func (s *Store) Add(n entity.Notification) entity.Notification {
	n.ID = "notif-" + uuid.New().String()[:18]
	n.Timestamp = time.Now()
	n.Read = false

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	if len(s.items) > maxStored {
		s.items = s.items[len(s.items)-maxStored:]
	}
	return n
}

// ListByUser 按userId过滤并分页，返回 (page, total, hasMore)
func (s *Store) ListByUser(userID string, limit, offset int) ([]entity.Notification, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entity.Notification, 0)
	for _, n := range s.items {
		if n.UserID == userID {
			matched = append(matched, n)
		}
	}

	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}

	page := make([]entity.Notification, end-offset)
	copy(page, matched[offset:end])
	return page, total, offset+limit < total
}

// SetRead 标记已读/未读，按 id+userId 匹配
func (s *Store) SetRead(id, userID string, read bool) (entity.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items[i].Read = read
			return s.items[i], nil
		}
	}
	return entity.Notification{}, ErrNotFound
}

// Delete 删除一条通知，按 id+userId 匹配
func (s *Store) Delete(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Len 当前存量（测试用）
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
