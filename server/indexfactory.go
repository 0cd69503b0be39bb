package server

import (
	"net"
	"strconv"

	"github.com/go-redis/redis/v7"
	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
)

// NewRoomIndex builds the RoomIndex implementation selected by the store
// configuration: redis when configured, in-memory otherwise.
func NewRoomIndex(log logger.Logger, c StoreConfig, clk clock.Clock) RoomIndex {
	log = log.WithNamespaceAppended("indexfactory")

	switch c.Type {
	case StoreTypeRedis:
		addr := net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))

		log.Info("Using redis room index", logger.Ctx{
			"redis_addr":   addr,
			"redis_prefix": c.Redis.Prefix,
		})

		client := redis.NewClient(&redis.Options{
			Addr: addr,
		})

		return NewRedisIndex(log, client, c.Redis.Prefix, clk)
	default:
		log.Info("Using in-memory room index", nil)

		return NewMemoryIndex(clk)
	}
}
