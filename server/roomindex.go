package server

import (
	"sort"
	"sync"

	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
)

// RoomRecord is one entry of the active-rooms directory.
type RoomRecord struct {
	RoomID      identifiers.RoomID   `json:"roomId"`
	Kind        identifiers.RoomKind `json:"kind"`
	LastActive  int64                `json:"lastActive"`
	MemberCount int                  `json:"memberCount"`
}

// RoomIndex answers "list active rooms" queries. A record exists if and only
// if the most recent member count reported for that room is greater than
// zero; a zero-count upsert deletes the record synchronously.
type RoomIndex interface {
	Upsert(roomID identifiers.RoomID, memberCount int) error
	List(limit int) ([]RoomRecord, error)
	Close() error
}

// MemoryIndex is the single-instance RoomIndex implementation.
type MemoryIndex struct {
	clk clock.Clock

	mu      sync.Mutex
	records map[identifiers.RoomID]RoomRecord
}

var _ RoomIndex = &MemoryIndex{}

func NewMemoryIndex(clk clock.Clock) *MemoryIndex {
	return &MemoryIndex{
		clk:     clk,
		records: map[identifiers.RoomID]RoomRecord{},
	}
}

func (i *MemoryIndex) Upsert(roomID identifiers.RoomID, memberCount int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if memberCount <= 0 {
		delete(i.records, roomID)

		return nil
	}

	i.records[roomID] = RoomRecord{
		RoomID:      roomID,
		Kind:        roomID.Kind(),
		LastActive:  i.clk.Now().UnixNano() / int64(1_000_000),
		MemberCount: memberCount,
	}

	return nil
}

func (i *MemoryIndex) List(limit int) ([]RoomRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	records := make([]RoomRecord, 0, len(i.records))
	for _, rec := range i.records {
		records = append(records, rec)
	}

	sort.Slice(records, func(a, b int) bool {
		if records[a].LastActive != records[b].LastActive {
			return records[a].LastActive > records[b].LastActive
		}

		return records[a].RoomID < records[b].RoomID
	})

	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func (i *MemoryIndex) Close() error {
	return nil
}
