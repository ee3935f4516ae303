package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/bitfantasy/nimo-qms/internal/qms/notify"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知中心处理器。
// 响应字段与仪表盘前端约定保持一致，不走通用Response信封。
type NotificationHandler struct {
	store *notify.Store
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(store *notify.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// List 按用户分页获取通知
// GET /api/notifications?userId=&limit=&offset=
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}

	notifications, total, hasMore := h.store.ListByUser(userID, limit, offset)
	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
		"hasMore":       hasMore,
	})
}

// Create 创建一条通知
// POST /api/notifications
func (h *NotificationHandler) Create(c *gin.Context) {
	var body entity.Notification
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if body.Type == "" || body.Title == "" || body.Message == "" || body.Severity == "" || body.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing required fields: type, title, message, severity, userId",
		})
		return
	}

	notification := h.store.Add(body)
	c.JSON(http.StatusCreated, gin.H{"notification": notification})
}

// patchRequest 标记已读请求体，read缺省按true处理
type patchRequest struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
	Read           *bool  `json:"read"`
}

// MarkRead 标记通知已读/未读
// PATCH /api/notifications
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var body patchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.NotificationID == "" || body.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: notificationId, userId"})
		return
	}

	read := true
	if body.Read != nil {
		read = *body.Read
	}

	notification, err := h.store.SetRead(body.NotificationID, body.UserID, read)
	if err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": notification})
}

// Delete 删除一条通知
// DELETE /api/notifications?notificationId=&userId=
func (h *NotificationHandler) Delete(c *gin.Context) {
	notificationID := c.Query("notificationId")
	userID := c.Query("userId")
	if notificationID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters: notificationId, userId"})
		return
	}

	if err := h.store.Delete(notificationID, userID); err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}
