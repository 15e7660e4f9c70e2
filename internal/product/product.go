// Package product generates the synthetic payloads stored by the benchmark.
package product

import (
	"bytes"
	"math/rand"
)

// Product is one synthetic payload. The content is fully determined by the
// size: byte i equals i mod 256, so a round trip through the store can be
// verified against a freshly generated copy.
type Product struct {
	Data []byte
}

// Generate produces one product per entry of sizes, in order.
func Generate(sizes []uint64) []Product {
	products := make([]Product, len(sizes))
	for i, size := range sizes {
		data := make([]byte, size)
		for j := range data {
			data[j] = byte(j % 256)
		}
		products[i].Data = data
	}
	return products
}

// Equal compares two products byte for byte.
func Equal(a, b Product) bool {
	return bytes.Equal(a.Data, b.Data)
}

// NewRand returns the per-process generator, seeded by rank. Payload content
// never depends on it; it drives reproducible per-rank jitter such as
// randomized inter-operation waits.
func NewRand(rank int) *rand.Rand {
	return rand.New(rand.NewSource(int64(rank)))
}
