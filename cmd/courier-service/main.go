// cmd/courier-service/main.go
package main

import (
	"context"

	"dispatch/internal/pkg/bootstrap"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/courier/domain"
	"dispatch/internal/service/courier/infrastructure"
	"dispatch/internal/service/courier/interfaces"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	serviceName = "courier-service"
	servicePort = 8084
)

// defaultCouriers 是演示环境的初始骑手池，仅在池为空时写入。
var defaultCouriers = []*domain.Courier{
	{ID: "courier-001", Name: "Juan", Phone: "+54-11-5555-0001", Status: domain.StatusAvailable},
	{ID: "courier-002", Name: "Maria", Phone: "+54-11-5555-0002", Status: domain.StatusAvailable},
	{ID: "courier-003", Name: "Pedro", Phone: "+54-11-5555-0003", Status: domain.StatusAvailable},
}

type seeder interface {
	Seed(ctx context.Context, defaults []*domain.Courier) error
}

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	var repo domain.CourierRepository
	if cfg.App.Storage == "memory" {
		repo = infrastructure.NewMemoryCourierRepository()
	} else {
		db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
		}
		gormRepo := infrastructure.NewGormCourierRepository(db)
		if err := gormRepo.AutoMigrate(); err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to migrate courier tables")
		}
		repo = gormRepo
	}

	if s, ok := repo.(seeder); ok {
		if err := s.Seed(context.Background(), defaultCouriers); err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to seed courier pool")
		}
	}

	handler := interfaces.NewCourierHandler(repo)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
