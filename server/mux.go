package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/oxtoacart/bpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultBufferPoolSize = 128

const (
	defaultRoomListLimit = 30
	maxRoomListLimit     = 100
)

type Mux struct {
	log     logger.Logger
	handler *chi.Mux
	version string

	iceServers []ICEServer
	prom       PrometheusConfig
	index      RoomIndex
	bufPool    *bpool.BufferPool
}

func (mux *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux.handler.ServeHTTP(w, r)
}

func NewMux(
	log logger.Logger,
	version string,
	c Config,
	rooms *RoomManager,
	lobbies *LobbyManager,
	index RoomIndex,
) *Mux {
	log = log.WithNamespaceAppended("mux")

	handler := chi.NewRouter()

	mux := &Mux{
		log:        log,
		handler:    handler,
		version:    version,
		iceServers: c.ICEServers,
		prom:       c.Prometheus,
		index:      index,
		bufPool:    bpool.NewBufferPool(defaultBufferPoolSize),
	}

	roomHandler := newRoomHandler(log, rooms)
	lobbyHandler := newLobbyHandler(log, lobbies)

	handler.Use(allowAllOrigins)

	handler.Get("/health", mux.routeHealth)
	handler.Get("/api/rooms", withCounter(prometheusRoomListViewsTotal, mux.routeRooms))
	handler.Get("/api/ice", mux.routeICE)
	handler.Get("/metrics", mux.routeMetrics)
	handler.Get("/ws/room/{roomID}", roomHandler.ServeHTTP)
	handler.Get("/ws/random", lobbyHandler.ServeHTTP)

	return mux
}

// allowAllOrigins permits cross-origin requests from any origin and answers
// preflight requests with 204.
func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "content-type")
		h.Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func withCounter(counter prometheus.Counter, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counter.Inc()
		h.ServeHTTP(w, r)
	}
}

func (mux *Mux) writeJSON(w http.ResponseWriter, status int, value interface{}) {
	buf := mux.bufPool.Get()
	defer mux.bufPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		mux.log.Error("Encode response", err, nil)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := buf.WriteTo(w); err != nil {
		mux.log.Debug("Write response", logger.Ctx{
			"error": err.Error(),
		})
	}
}

func (mux *Mux) routeHealth(w http.ResponseWriter, r *http.Request) {
	mux.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
	})
}

func (mux *Mux) routeRooms(w http.ResponseWriter, r *http.Request) {
	limit := defaultRoomListLimit

	if value, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = value
	}

	if limit < 1 {
		limit = 1
	}

	if limit > maxRoomListLimit {
		limit = maxRoomListLimit
	}

	records, err := mux.index.List(limit)
	if err != nil {
		mux.log.Error("List rooms", err, nil)
		mux.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "room list unavailable",
		})

		return
	}

	if records == nil {
		records = []RoomRecord{}
	}

	mux.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": records,
	})
}

func (mux *Mux) routeICE(w http.ResponseWriter, r *http.Request) {
	servers := GetICEAuthServers(mux.iceServers)
	if servers == nil {
		servers = []ICEAuthServer{}
	}

	mux.writeJSON(w, http.StatusOK, map[string]interface{}{
		"iceServers": servers,
	})
}

func (mux *Mux) routeMetrics(w http.ResponseWriter, r *http.Request) {
	accessToken := r.Header.Get("Authorization")
	if strings.HasPrefix(accessToken, "Bearer ") {
		accessToken = accessToken[len("Bearer "):]
	} else {
		accessToken = r.FormValue("access_token")
	}

	if accessToken == "" || accessToken != mux.prom.AccessToken {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	promhttp.Handler().ServeHTTP(w, r)
}
