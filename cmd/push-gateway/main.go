// cmd/push-gateway/main.go
package main

import (
	"context"
	"net/http"

	"dispatch/internal/pkg/bootstrap"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/pkg/mq"
	"dispatch/internal/service/push"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const (
	serviceName = "push-gateway"
	servicePort = 8088
)

// main 启动推送网关：客户端按订单 ID 建立 WebSocket 订阅，
// 网关消费订单事件 topic 并实时转发订单状态变化。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	if len(cfg.Infra.Kafka.Brokers) == 0 {
		logger.Init(serviceName)
		logger.Logger().Fatal().Msg("push-gateway requires kafka brokers (KAFKA_BROKERS)")
	}

	hub := push.NewHub()
	go hub.Run()

	// 每个节点使用独立的消费组，同一条事件要到达所有网关节点
	groupID := serviceName + "-" + uuid.NewString()[:8]
	reader := mq.NewReader(cfg.Infra.Kafka.Brokers, groupID, cfg.Infra.Kafka.OrderEventsTopic)
	consumer := push.NewConsumer(reader, hub, otel.Tracer(serviceName))

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go consumer.Run(consumerCtx)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.HandleFunc("/ws", hub.ServeWs)
		},
		OnShutdown: func(ctx context.Context) {
			stopConsumer()
			if err := consumer.Close(); err != nil {
				logger.Logger().Error().Err(err).Msg("error closing kafka reader")
			}
		},
	})
}
