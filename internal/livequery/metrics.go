package livequery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var liveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "zotion_live_subscriptions",
	Help: "Open live query subscriptions",
})
