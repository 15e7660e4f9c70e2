package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_FillPattern(t *testing.T) {
	products := Generate([]uint64{10, 0, 5})
	require.Len(t, products, 3)

	assert.Len(t, products[0].Data, 10)
	assert.Empty(t, products[1].Data)
	assert.Len(t, products[2].Data, 5)

	for _, p := range products {
		for k, b := range p.Data {
			assert.Equal(t, byte(k%256), b)
		}
	}
}

func TestGenerate_PatternWrapsAt256(t *testing.T) {
	products := Generate([]uint64{300})
	require.Len(t, products, 1)
	assert.Equal(t, byte(255), products[0].Data[255])
	assert.Equal(t, byte(0), products[0].Data[256])
	assert.Equal(t, byte(43), products[0].Data[299])
}

func TestGenerate_Deterministic(t *testing.T) {
	sizes := []uint64{1, 128, 4096}
	first := Generate(sizes)
	second := Generate(sizes)
	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, Equal(first[i], second[i]), "product %d differs", i)
	}
}

func TestGenerate_EmptySizeList(t *testing.T) {
	assert.Empty(t, Generate(nil))
}

func TestNewRand_SeededByRank(t *testing.T) {
	a := NewRand(3)
	b := NewRand(3)
	other := NewRand(4)

	assert.Equal(t, a.Uint64(), b.Uint64())
	assert.NotEqual(t, NewRand(3).Uint64(), other.Uint64())
}
