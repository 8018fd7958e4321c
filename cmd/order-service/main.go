// cmd/order-service/main.go
package main

import (
	"context"

	"dispatch/internal/pkg/bootstrap"
	"dispatch/internal/pkg/httpclient"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/pkg/mq"
	"dispatch/internal/pkg/redis"
	"dispatch/internal/service/order/application"
	"dispatch/internal/service/order/domain"
	"dispatch/internal/service/order/domain/port"
	"dispatch/internal/service/order/infrastructure"
	"dispatch/internal/service/order/infrastructure/adapter"
	"dispatch/internal/service/order/interfaces"
	"dispatch/internal/zookeeper"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	serviceName = "order-service"
	servicePort = 8081
)

// main 是订单服务的组装根。依赖全部在这里创建并注入：
// 台账仓储、目录/骑手两个出站适配器、事件发布器、对账任务。
// Redis / Kafka / ZooKeeper 均为可选组件，未配置时自动降级。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()
	tracer := otel.Tracer(serviceName)

	var repo domain.OrderRepository
	if cfg.App.Storage == "memory" {
		repo = infrastructure.NewMemoryOrderRepository()
	} else {
		db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
		}
		gormRepo := infrastructure.NewGormOrderRepository(db)
		if err := gormRepo.AutoMigrate(); err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to migrate order tables")
		}
		repo = gormRepo
	}

	var publisher port.EventPublisher = adapter.NoopEventPublisher{}
	var kafkaPublisher *adapter.KafkaEventPublisher
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		writer := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventsTopic)
		kafkaPublisher = adapter.NewKafkaEventPublisher(writer)
		publisher = kafkaPublisher
	}

	var menuCache *redis.Client
	if cfg.Infra.Redis.Addr != "" {
		var err error
		menuCache, err = redis.NewClient(context.Background(), cfg.Infra.Redis.Addr)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect to redis")
		}
	}

	var zkConn *zookeeper.Conn
	var tickLock application.TickLock
	if len(cfg.Infra.Zookeeper.Servers) > 0 {
		var err error
		zkConn, err = zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		tickLock = zookeeper.NewTryLock(zkConn, "order-reconciler")
	}

	reconcilerCtx, stopReconciler := context.WithCancel(context.Background())
	var reconciler *application.Reconciler

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			// Nacos 未启用时 resolver 为 nil，httpclient 退化为静态寻址
			var resolver httpclient.Resolver
			if appCtx.Nacos != nil {
				resolver = appCtx.Nacos
			}
			client := httpclient.NewClient(tracer, resolver, cfg.App.StaticServices)

			var catalog port.CatalogService = adapter.NewCatalogHTTPAdapter(client)
			if menuCache != nil {
				catalog = adapter.NewCachedCatalog(catalog, menuCache, cfg.App.Order.MenuCacheTTL)
			}
			couriers := adapter.NewCourierHTTPAdapter(client)

			service := application.NewOrderService(repo, catalog, couriers, publisher, tracer, cfg.App.Order.CallTimeout)
			interfaces.NewOrderHandler(service).RegisterRoutes(appCtx.Mux)

			reconciler = application.NewReconciler(repo, couriers, publisher, tracer,
				cfg.App.Order.ReconcileInterval, cfg.App.Order.CallTimeout, tickLock)
			reconciler.Start(reconcilerCtx)
		},
		OnShutdown: func(ctx context.Context) {
			stopReconciler()
			if reconciler != nil {
				reconciler.Wait()
			}
			if kafkaPublisher != nil {
				if err := kafkaPublisher.Close(); err != nil {
					logger.Logger().Error().Err(err).Msg("error closing kafka writer")
				}
			}
			if menuCache != nil {
				if err := menuCache.Close(); err != nil {
					logger.Logger().Error().Err(err).Msg("error closing redis client")
				}
			}
			if zkConn != nil {
				zkConn.Close()
			}
		},
	})
}
