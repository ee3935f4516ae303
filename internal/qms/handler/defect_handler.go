package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/bitfantasy/nimo-qms/internal/qms/repository"
	"github.com/bitfantasy/nimo-qms/internal/qms/service"
	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

// DefectHandler 缺陷处理器
type DefectHandler struct {
	svc       *service.DefectService
	exportSvc *service.ExportService
}

// NewDefectHandler 创建缺陷处理器
func NewDefectHandler(svc *service.DefectService, exportSvc *service.ExportService) *DefectHandler {
	return &DefectHandler{svc: svc, exportSvc: exportSvc}
}

// requiredCreateFields 创建缺陷的必填字段（仪表盘前端依赖该错误文案）
var requiredCreateFields = []string{"defectType", "component", "partNumber", "testStation", "boardSerial"}

// ListAll 获取缺陷全量列表
// GET /api/defects
// 响应形如 {"data": [...]}，与仪表盘前端的约定保持一致
func (h *DefectHandler) ListAll(c *gin.Context) {
	defects, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load defects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": defects})
}

// Create 创建缺陷
// POST /api/defects
func (h *DefectHandler) Create(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	for _, field := range requiredCreateFields {
		if v, ok := body[field].(string); !ok || v == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   fmt.Sprintf("Missing required field: %s", field),
			})
			return
		}
	}

	var defect entity.Defect
	raw, _ := json.Marshal(body)
	if err := json.Unmarshal(raw, &defect); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	if defect.Operator == "" {
		defect.Operator = "System"
	}

	created, err := h.svc.Create(c.Request.Context(), &defect)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create defect"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    created,
		"message": "Defect created successfully",
	})
}

// List 分页查询缺陷列表
// GET /api/defects/list?page=&page_size=&status=&severity=&test_station=&search=
func (h *DefectHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":       c.Query("status"),
		"severity":     c.Query("severity"),
		"test_station": c.Query("test_station"),
		"search":       c.Query("search"),
	}

	result, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取缺陷列表失败")
		return
	}
	Success(c, result)
}

// Get 获取缺陷详情
// GET /api/defects/:id
func (h *DefectHandler) Get(c *gin.Context) {
	defect, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "缺陷不存在")
			return
		}
		InternalError(c, "获取缺陷失败")
		return
	}
	Success(c, defect)
}

// Update 更新缺陷
// PUT /api/defects/:id
func (h *DefectHandler) Update(c *gin.Context) {
	var defect entity.Defect
	if err := c.ShouldBindJSON(&defect); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), c.Param("id"), &defect)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "缺陷不存在")
		case errors.Is(err, service.ErrInvalidInput):
			BadRequest(c, err.Error())
		default:
			InternalError(c, "更新缺陷失败")
		}
		return
	}
	Success(c, updated)
}

// Delete 删除缺陷
// DELETE /api/defects/:id
func (h *DefectHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "缺陷不存在")
			return
		}
		InternalError(c, "删除缺陷失败")
		return
	}
	Success(c, gin.H{"id": c.Param("id")})
}

// QRCode 生成缺陷标签二维码
// GET /api/defects/:id/qrcode
func (h *DefectHandler) QRCode(c *gin.Context) {
	defect, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "缺陷不存在")
			return
		}
		InternalError(c, "获取缺陷失败")
		return
	}

	payload, _ := json.Marshal(gin.H{
		"id":          defect.ID,
		"defectType":  defect.DefectType,
		"component":   defect.Component,
		"boardSerial": defect.BoardSerial,
		"testStation": defect.TestStation,
		"severity":    defect.Severity,
		"status":      defect.Status,
	})

	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		InternalError(c, "生成二维码失败")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.png"`, defect.ID))
	c.Data(http.StatusOK, "image/png", png)
}

// Export 导出缺陷列表
// GET /api/defects/export?format=csv|xlsx|pdf|json&from=&to=
func (h *DefectHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	from, to, err := parseRangeQuery(c)
	if err != nil {
		BadRequest(c, "时间参数格式错误")
		return
	}

	defects, err := h.svc.ListByRange(c.Request.Context(), from, to)
	if err != nil {
		InternalError(c, "查询缺陷失败")
		return
	}

	file, err := h.exportSvc.Export(c.Request.Context(), defects, format, from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "导出失败")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// parseRangeQuery 解析 from/to 查询参数，支持日期和RFC3339两种格式
func parseRangeQuery(c *gin.Context) (*time.Time, *time.Time, error) {
	parse := func(v string) (*time.Time, error) {
		if v == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t, nil
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	from, err := parse(c.Query("from"))
	if err != nil {
		return nil, nil, err
	}
	to, err := parse(c.Query("to"))
	if err != nil {
		return nil, nil, err
	}
	// to 按日期传入时取当天末尾，保证区间闭合
	if to != nil && c.Query("to") != "" && len(c.Query("to")) == 10 {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, nil
}
