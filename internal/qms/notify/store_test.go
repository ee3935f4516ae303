package notify

import (
	"fmt"
	"testing"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
)

func addFor(s *Store, userID, title string) entity.Notification {
	return s.Add(entity.Notification{
		Type:     entity.NotifyDefectCreated,
		Title:    title,
		Message:  "msg",
		Severity: "high",
		UserID:   userID,
	})
}

func TestAddAssignsServerFields(t *testing.T) {
	s := NewStore()
	n := addFor(s, "u1", "t1")

	if n.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if n.Timestamp.IsZero() {
		t.Fatal("expected server-assigned timestamp")
	}
	if n.Read {
		t.Fatal("new notification must be unread")
	}
}

func TestListByUserScopedAndPaged(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		addFor(s, "u1", fmt.Sprintf("u1-%d", i))
	}
	addFor(s, "u2", "other")

	page, total, hasMore := s.ListByUser("u1", 2, 0)
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if !hasMore {
		t.Fatal("expected hasMore with offset 0, limit 2, total 5")
	}
	for _, n := range page {
		if n.UserID != "u1" {
			t.Fatalf("leaked notification for user %s", n.UserID)
		}
	}

	_, _, hasMore = s.ListByUser("u1", 2, 4)
	if hasMore {
		t.Fatal("expected hasMore=false at last page")
	}

	_, total, _ = s.ListByUser("nobody", 10, 0)
	if total != 0 {
		t.Fatalf("unknown user total = %d, want 0", total)
	}
}

func TestSetReadAndDeleteRequireUserMatch(t *testing.T) {
	s := NewStore()
	n := addFor(s, "u1", "t1")

	if _, err := s.SetRead(n.ID, "u2", true); err != ErrNotFound {
		t.Fatalf("SetRead with wrong user: err = %v, want ErrNotFound", err)
	}
	got, err := s.SetRead(n.ID, "u1", true)
	if err != nil {
		t.Fatalf("SetRead failed: %v", err)
	}
	if !got.Read {
		t.Fatal("notification should be marked read")
	}

	if err := s.Delete(n.ID, "u2"); err != ErrNotFound {
		t.Fatalf("Delete with wrong user: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(n.ID, "u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(n.ID, "u1"); err != ErrNotFound {
		t.Fatalf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestCapDropsOldest(t *testing.T) {
	s := NewStore()
	first := addFor(s, "u1", "first")
	for i := 0; i < maxStored; i++ {
		addFor(s, "u1", fmt.Sprintf("n-%d", i))
	}

	if s.Len() != maxStored {
		t.Fatalf("store len = %d, want %d", s.Len(), maxStored)
	}
	if _, err := s.SetRead(first.ID, "u1", true); err != ErrNotFound {
		t.Fatal("oldest notification should have been evicted")
	}
}
