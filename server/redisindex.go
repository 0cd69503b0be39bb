package server

import (
	"strconv"

	"github.com/go-redis/redis/v7"
	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
)

// RedisIndex keeps the active-rooms directory in redis so that the room list
// survives restarts and can be shared by several listing frontends. Rooms
// themselves stay in-process; only the directory is externalized.
//
// Layout: a sorted set scored by last-active time (millis) for ordering, and
// a hash of member counts keyed by room id. Both are updated in one
// transactional pipeline so a zero-count room can never be observed.
type RedisIndex struct {
	log    logger.Logger
	client *redis.Client
	clk    clock.Clock

	keys struct {
		recency string
		counts  string
	}
}

var _ RoomIndex = &RedisIndex{}

func NewRedisIndex(log logger.Logger, client *redis.Client, prefix string, clk clock.Clock) *RedisIndex {
	i := &RedisIndex{
		log:    log.WithNamespaceAppended("redisindex"),
		client: client,
		clk:    clk,
	}

	i.keys.recency = prefix + ":rooms:recency"
	i.keys.counts = prefix + ":rooms:counts"

	return i
}

func (i *RedisIndex) Upsert(roomID identifiers.RoomID, memberCount int) error {
	pipe := i.client.TxPipeline()

	if memberCount <= 0 {
		pipe.ZRem(i.keys.recency, roomID.String())
		pipe.HDel(i.keys.counts, roomID.String())
	} else {
		now := i.clk.Now().UnixNano() / int64(1_000_000)

		pipe.ZAdd(i.keys.recency, &redis.Z{
			Score:  float64(now),
			Member: roomID.String(),
		})
		pipe.HSet(i.keys.counts, roomID.String(), memberCount)
	}

	_, err := pipe.Exec()

	return errors.Annotatef(err, "upsert room: %s", roomID)
}

func (i *RedisIndex) List(limit int) ([]RoomRecord, error) {
	entries, err := i.client.ZRevRangeWithScores(i.keys.recency, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Annotate(err, "list rooms")
	}

	if len(entries) == 0 {
		return nil, nil
	}

	fields := make([]string, len(entries))
	for idx, entry := range entries {
		fields[idx], _ = entry.Member.(string)
	}

	counts, err := i.client.HMGet(i.keys.counts, fields...).Result()
	if err != nil {
		return nil, errors.Annotate(err, "list room counts")
	}

	records := make([]RoomRecord, 0, len(entries))

	for idx, entry := range entries {
		countStr, _ := counts[idx].(string)

		count, err := strconv.Atoi(countStr)
		if err != nil || count <= 0 {
			// A room removed between the two reads. Skip it.
			continue
		}

		roomID := identifiers.RoomID(fields[idx])

		records = append(records, RoomRecord{
			RoomID:      roomID,
			Kind:        roomID.Kind(),
			LastActive:  int64(entry.Score),
			MemberCount: count,
		})
	}

	return records, nil
}

func (i *RedisIndex) Close() error {
	return errors.Trace(i.client.Close())
}
