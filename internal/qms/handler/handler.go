package handler

import (
	"strconv"

	"github.com/bitfantasy/nimo-qms/internal/config"
	"github.com/bitfantasy/nimo-qms/internal/qms/notify"
	"github.com/bitfantasy/nimo-qms/internal/qms/service"
	"github.com/bitfantasy/nimo-qms/internal/qms/sse"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Defect       *DefectHandler
	Notification *NotificationHandler
	Upload       *UploadHandler
	Analytics    *AnalyticsHandler
	Settings     *SettingsHandler
	User         *UserHandler
	SSE          *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, notifications *notify.Store, hub *sse.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Defect:       NewDefectHandler(svc.Defect, svc.Export),
		Notification: NewNotificationHandler(notifications),
		Upload:       NewUploadHandler(svc.Import, cfg),
		Analytics:    NewAnalyticsHandler(svc.Analytics),
		Settings:     NewSettingsHandler(svc.Settings),
		User:         NewUserHandler(svc.User),
		SSE:          NewSSEHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// ============================================================
// User Handler
// ============================================================

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List 获取用户列表
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		InternalError(c, "获取用户列表失败")
		return
	}
	Success(c, users)
}

// Search 按名字/邮箱搜索用户
// GET /api/users/search?q=
func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		InternalError(c, "搜索用户失败")
		return
	}
	Success(c, users)
}
