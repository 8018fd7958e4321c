// internal/pkg/constants/constants.go
package constants

// 注册到 Nacos / 静态映射里的服务名。
const (
	CatalogService = "catalog-service"
	CourierService = "courier-service"
	OrderService   = "order-service"
)

// Kafka topic
const (
	OrderEventsTopic = "order-events"
)
