package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cross_orders_total",
		Help: "Accepted orders by kind",
	}, []string{"kind"})

	ordersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cross_orders_rejected_total",
		Help: "Orders rejected by validation",
	})

	tradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cross_trades_total",
		Help: "Executed trades",
	})

	tradeVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cross_trade_volume_mbtc_total",
		Help: "Executed volume in mBTC",
	})

	alertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cross_price_alerts_fired_total",
		Help: "One-shot price threshold alerts fired",
	})

	logAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cross_trade_log_append_failures_total",
		Help: "Trade log append errors",
	})
)
