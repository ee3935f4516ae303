package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/qms/service"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 聚合分析处理器
type AnalyticsHandler struct {
	svc *service.AnalyticsService
}

// NewAnalyticsHandler 创建分析处理器
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Get 获取聚合分析报表
// GET /api/analytics?from=&to=
func (h *AnalyticsHandler) Get(c *gin.Context) {
	from, to, err := parseRangeQuery(c)
	if err != nil {
		BadRequest(c, "时间参数格式错误")
		return
	}

	report, err := h.svc.GetReport(c.Request.Context(), from, to)
	if err != nil {
		InternalError(c, "生成分析报表失败")
		return
	}
	Success(c, report)
}

// Report 下载JSON分析报告
// GET /api/analytics/report?from=&to=
func (h *AnalyticsHandler) Report(c *gin.Context) {
	from, to, err := parseRangeQuery(c)
	if err != nil {
		BadRequest(c, "时间参数格式错误")
		return
	}

	data, err := h.svc.RenderReportJSON(c.Request.Context(), from, to)
	if err != nil {
		InternalError(c, "生成分析报告失败")
		return
	}

	filename := fmt.Sprintf("ict-analytics-report-%s.json", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json", data)
}
