package basen

import (
	"math/big"
)

const (
	AlphabetBase62 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// BaseNEncoder encodes binary data using an arbitrary alphabet.
type BaseNEncoder struct {
	alphabet string
}

// NewBaseNEncoder creates a new instance of BaseNEncoder using the provided
// alphabet.
func NewBaseNEncoder(alphabet string) *BaseNEncoder {
	return &BaseNEncoder{alphabet}
}

// Encode encodes the binary data into a base-N string.
func (e *BaseNEncoder) Encode(data []byte) string {
	var (
		value big.Int
		zero  big.Int
		base  big.Int
	)

	value.SetBytes(data)

	baseInt64 := int64(len(e.alphabet))

	result := []byte{}

	for value.Cmp(&zero) != 0 {
		base.SetInt64(baseInt64)
		_, remainder := value.DivMod(&value, &base, &base)
		result = append(result, e.alphabet[remainder.Int64()])
	}

	return string(result)
}
