package route

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binharness/pkg/canon"
	"binharness/pkg/contract"
)

func TestRouteStableForSameInput(t *testing.T) {
	c := canon.String("HEB72_TRIPLET_GRID", "bin_harness_384", "TRIPLET", "א-ב-ג", "v1")
	id1, b1, err := Route(c, 384)
	require.NoError(t, err)
	id2, b2, err := Route(c, 384)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, b1, b2)
	assert.Len(t, id1, 64)
	assert.GreaterOrEqual(t, b1, 0)
	assert.Less(t, b1, 384)
}

func TestRouteKnownVector(t *testing.T) {
	// sha256("abc") = ba7816bf...15ad; 以大整数取模 2 看最低位（0xad 为奇数）。
	id, b, err := Route("abc", 2)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", id)
	assert.Equal(t, 1, b)

	// 256 的因子只取决于最后一个字节。
	_, b, err = Route("abc", 256)
	require.NoError(t, err)
	assert.Equal(t, 0xad, b)
}

func TestRouteMatchesBin(t *testing.T) {
	for _, n := range []int{1, 7, 384, 1 << 20} {
		id, b, err := Route("CANON|v1|x", n)
		require.NoError(t, err)
		got, err := Bin(id, n)
		require.NoError(t, err)
		assert.Equal(t, b, got, "n=%d", n)
		assert.Equal(t, id, SHA256Hex("CANON|v1|x"))
	}
}

func TestRouteRejectsNonPositiveBins(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, _, err := Route("x", n)
		assert.ErrorIs(t, err, contract.ErrInvalidArgument)
		_, err = Bin("ff", n)
		assert.ErrorIs(t, err, contract.ErrInvalidArgument)
	}
	_, err := Bin("zz", 3)
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
}

// 粗检均匀性：大量不同输入下每个 bin 都应被命中。
func TestRouteCoversAllBins(t *testing.T) {
	const n = 16
	seen := make([]int, n)
	for i := 0; i < 2000; i++ {
		sum := sha256.Sum256([]byte{byte(i), byte(i >> 8)})
		_, b, err := Route(hex.EncodeToString(sum[:]), n)
		require.NoError(t, err)
		seen[b]++
	}
	for i, c := range seen {
		assert.Positive(t, c, "bin %d never hit", i)
	}
}
