package handler

import (
	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/bitfantasy/nimo-qms/internal/qms/service"
	"github.com/gin-gonic/gin"
)

// SettingsHandler 用户偏好设置处理器
type SettingsHandler struct {
	svc *service.SettingsService
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// Get 读取用户设置
// GET /api/settings/:userId
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.svc.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		InternalError(c, "读取设置失败")
		return
	}
	Success(c, settings)
}

// Save 保存用户设置（整体覆盖）
// PUT /api/settings/:userId
func (h *SettingsHandler) Save(c *gin.Context) {
	var settings entity.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.svc.Save(c.Request.Context(), c.Param("userId"), settings); err != nil {
		InternalError(c, "保存设置失败")
		return
	}
	Success(c, settings)
}

// Reset 恢复默认设置
// DELETE /api/settings/:userId
func (h *SettingsHandler) Reset(c *gin.Context) {
	settings, err := h.svc.Reset(c.Request.Context(), c.Param("userId"))
	if err != nil {
		InternalError(c, "重置设置失败")
		return
	}
	Success(c, settings)
}
