package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/bitfantasy/nimo-qms/internal/config"
	"github.com/bitfantasy/nimo-qms/internal/qms/service"
	"github.com/gin-gonic/gin"
)

// UploadHandler 文件上传解析处理器。
// 响应字段与仪表盘前端约定保持一致，不走通用Response信封。
type UploadHandler struct {
	svc         *service.ImportService
	maxFileSize int64
}

// NewUploadHandler 创建上传处理器
func NewUploadHandler(svc *service.ImportService, cfg *config.Config) *UploadHandler {
	maxSize := int64(10)
	if cfg != nil && cfg.Upload.MaxFileSizeMB > 0 {
		maxSize = int64(cfg.Upload.MaxFileSizeMB)
	}
	return &UploadHandler{svc: svc, maxFileSize: maxSize * 1024 * 1024}
}

// readUpload 读取表单文件内容
func (h *UploadHandler) readUpload(c *gin.Context) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return "", nil, false
	}
	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return "", nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return "", nil, false
	}
	return fileHeader.Filename, data, true
}

// UploadCSV 严格CSV上传（仅逗号分隔，固定列序）
// POST /api/upload-csv
func (h *UploadHandler) UploadCSV(c *gin.Context) {
	filename, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.svc.ParseCSVStrict(c.Request.Context(), filename, data)
	if err != nil {
		if errors.Is(err, service.ErrEmptyFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Empty file"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process CSV file"})
		return
	}
	result.FileFormat = ""
	c.JSON(http.StatusOK, result)
}

// UploadFile 宽松上传（CSV分隔符自动识别 + Excel）
// POST /api/upload-file
func (h *UploadHandler) UploadFile(c *gin.Context) {
	filename, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.svc.ParseUpload(c.Request.Context(), filename, c.PostForm("format"), data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Empty file"})
		case errors.Is(err, service.ErrUnsupportedFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file format"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}
