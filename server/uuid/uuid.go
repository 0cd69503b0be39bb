package uuid

import (
	"github.com/google/uuid"
	"github.com/mesh-rooms/mesh-rooms/server/basen"
)

var defaultBaseNEncoder = basen.NewBaseNEncoder(basen.AlphabetBase62)

// New returns a random UUID encoded as a base62 string.
func New() string {
	value := uuid.New()

	return defaultBaseNEncoder.Encode(value[:])
}
