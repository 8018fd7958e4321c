// cmd/catalog-service/main.go
package main

import (
	"dispatch/internal/pkg/bootstrap"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/catalog/domain"
	"dispatch/internal/service/catalog/infrastructure"
	"dispatch/internal/service/catalog/interfaces"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	serviceName = "catalog-service"
	servicePort = 8082
)

// main 是目录/库存服务的组装根：选存储实现、装 HTTP 处理器、启动。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	var repo domain.CatalogRepository
	if cfg.App.Storage == "memory" {
		repo = infrastructure.NewMemoryCatalogRepository()
	} else {
		db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
		}
		gormRepo := infrastructure.NewGormCatalogRepository(db)
		if err := gormRepo.AutoMigrate(); err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to migrate catalog tables")
		}
		repo = gormRepo
	}

	handler := interfaces.NewCatalogHandler(repo)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
