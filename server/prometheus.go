package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusWSConnTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_conn_total",
	Help: "Total number of opened websocket connections",
})

var prometheusWSConnActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ws_conn_active",
	Help: "Total number of active websocket connections",
})

var prometheusWSConnErrTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_conn_err_total",
	Help: "Total number of errored out websocket connections",
})

var prometheusWSConnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "ws_conn_duration_seconds",
	Help: "Duration of websocket connections",
})

var prometheusRoomJoinTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "room_join_total",
	Help: "Total number of room joins",
})

var prometheusLobbyJoinTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lobby_join_total",
	Help: "Total number of clients that entered a matchmaking lobby",
})

var prometheusLobbyMatchTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lobby_match_total",
	Help: "Total number of matched groups",
})

var prometheusRelayTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "signal_relay_total",
	Help: "Total number of relayed signaling messages",
})

var prometheusRelayDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "signal_relay_dropped_total",
	Help: "Total number of signaling messages dropped because the target was absent",
})

var prometheusRoomListViewsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "room_list_views_total",
	Help: "Total number of room list requests",
})
