// internal/service/order/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 订单编排的核心指标。result 标签的取值见各自注释。
var (
	// result: assigned | pending | rejected
	ordersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_orders_created_total",
		Help: "Order creation outcomes.",
	}, []string{"result"})

	// result: ok | out_of_stock | failed
	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_stock_reservations_total",
		Help: "Stock reservation attempts against the catalog service.",
	}, []string{"result"})

	compensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_stock_compensations_total",
		Help: "Compensating stock releases (mid-reservation failure or order completion).",
	})

	// result: assigned | none | error
	assignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_courier_assignments_total",
		Help: "Courier assignment attempts (immediate and reconciler).",
	}, []string{"result"})

	reconcilerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_reconciler_ticks_total",
		Help: "Reconciler scan iterations.",
	})

	reconcilerAssignedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_reconciler_assigned_total",
		Help: "Orders the reconciler promoted to assigned.",
	})
)
