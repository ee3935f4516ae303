package service

import (
	"github.com/bitfantasy/nimo-qms/internal/config"
	"github.com/bitfantasy/nimo-qms/internal/qms/notify"
	"github.com/bitfantasy/nimo-qms/internal/qms/repository"
	"github.com/bitfantasy/nimo-qms/internal/qms/sse"
	"github.com/bitfantasy/nimo-qms/internal/qms/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Defect    *DefectService
	Import    *ImportService
	Export    *ExportService
	Analytics *AnalyticsService
	Settings  *SettingsService
	User      *UserService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, notifications *notify.Store, hub *sse.Hub, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	objectStore := storage.NewObjectStore(cfg.MinIO, logger)

	analyticsSvc := NewAnalyticsService(repos.Defect)

	return &Services{
		Defect:    NewDefectService(repos.Defect, notifications, hub),
		Import:    NewImportService(objectStore, logger),
		Export:    NewExportService(analyticsSvc),
		Analytics: analyticsSvc,
		Settings:  NewSettingsService(rdb),
		User:      NewUserService(repos.User),
	}
}
