// Package testutil provides shared helpers for handler and service tests.
// Tests run against an isolated in-memory SQLite database so they need no
// external services.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/config"
	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"github.com/bitfantasy/nimo-qms/internal/qms/handler"
	"github.com/bitfantasy/nimo-qms/internal/qms/notify"
	"github.com/bitfantasy/nimo-qms/internal/qms/repository"
	"github.com/bitfantasy/nimo-qms/internal/qms/service"
	"github.com/bitfantasy/nimo-qms/internal/qms/sse"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// TestEnv holds the wired-up application under test.
type TestEnv struct {
	DB            *gorm.DB
	Router        *gin.Engine
	Repos         *repository.Repositories
	Services      *service.Services
	Notifications *notify.Store
	Hub           *sse.Hub
}

// SetupTestDB opens an isolated in-memory SQLite database and migrates
// the schema. The connection is closed when the test finishes.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:qms_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&entity.Defect{}, &entity.User{}); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupEnv wires repositories, services, handlers and routes against a
// fresh test database.
func SetupEnv(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := SetupTestDB(t)
	cfg := &config.Config{}
	cfg.Upload.MaxFileSizeMB = 10

	notifications := notify.NewStore()
	hub := sse.NewHub(nil)
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, notifications, hub, nil, cfg, nil)
	handlers := handler.NewHandlers(services, notifications, hub, cfg)

	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/defects", handlers.Defect.ListAll)
		api.POST("/defects", handlers.Defect.Create)
		api.GET("/defects/list", handlers.Defect.List)
		api.GET("/defects/export", handlers.Defect.Export)
		api.GET("/defects/:id", handlers.Defect.Get)
		api.PUT("/defects/:id", handlers.Defect.Update)
		api.DELETE("/defects/:id", handlers.Defect.Delete)
		api.GET("/defects/:id/qrcode", handlers.Defect.QRCode)

		api.POST("/upload-csv", handlers.Upload.UploadCSV)
		api.POST("/upload-file", handlers.Upload.UploadFile)

		api.GET("/notifications", handlers.Notification.List)
		api.POST("/notifications", handlers.Notification.Create)
		api.PATCH("/notifications", handlers.Notification.MarkRead)
		api.DELETE("/notifications", handlers.Notification.Delete)

		api.GET("/analytics", handlers.Analytics.Get)
		api.GET("/analytics/report", handlers.Analytics.Report)

		api.GET("/settings/:userId", handlers.Settings.Get)
		api.PUT("/settings/:userId", handlers.Settings.Save)
		api.DELETE("/settings/:userId", handlers.Settings.Reset)

		api.GET("/users", handlers.User.List)
		api.GET("/users/search", handlers.User.Search)
	}

	return &TestEnv{
		DB:            db,
		Router:        r,
		Repos:         repos,
		Services:      services,
		Notifications: notifications,
		Hub:           hub,
	}
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DoUpload posts a multipart form with a single file field
func DoUpload(r *gin.Engine, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", filename)
	fw.Write(content)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a generic map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedDefect inserts a defect with sensible defaults, applying overrides
func SeedDefect(t *testing.T, db *gorm.DB, id string, override func(*entity.Defect)) *entity.Defect {
	t.Helper()
	d := &entity.Defect{
		ID:          id,
		Timestamp:   time.Now().Add(-time.Hour),
		Operator:    "Ahmed Benali",
		DefectType:  "Cold Solder",
		Component:   "Resistor",
		PartNumber:  "P0042",
		Pin:         "Pin 1",
		TestStation: "ICT-1",
		BoardSerial: "PCB00042",
		Severity:    entity.SeverityHigh,
		Status:      entity.StatusOpen,
		TestResult:  entity.TestResultFail,
		RootCause:   "Process Issue",
		Department:  "Process",
		Vendor:      "Yageo",
	}
	if override != nil {
		override(d)
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("Failed to seed defect: %v", err)
	}
	return d
}
