package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sidebarSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zotion_sidebar_sessions",
		Help: "Open sidebar tree sessions.",
	})

	paletteRewrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zotion_palette_rewrites_total",
		Help: "Inline palette rewrites by outcome.",
	}, []string{"outcome"})
)
