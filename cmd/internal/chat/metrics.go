package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_chat_active_connections",
		Help: "Currently connected chat sessions.",
	})

	messagesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_chat_messages_routed_total",
		Help: "Inbound text messages routed, by kind.",
	}, []string{"kind"})

	framesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_chat_frames_published_total",
		Help: "Frames published to the broadcast bus.",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_chat_frames_dropped_total",
		Help: "Frames dropped because a subscriber queue was full.",
	})
)
