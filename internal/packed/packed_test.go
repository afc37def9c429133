package packed

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArray_RoundTripAllWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for width := 0; width <= 64; width++ {
		const n = 131
		a, err := New(n, width)
		require.NoError(t, err)
		assert.Equal(t, Bytes(n, width), a.Bytes())

		mask := maskOf(uint(width))
		want := make([]uint64, n)
		for i := range want {
			want[i] = rng.Uint64() & mask
			a.Set(int64(i), want[i])
		}
		for i := range want {
			require.Equal(t, want[i], a.Get(int64(i)), "width %d index %d", width, i)
		}
	}
}

func TestArray_SetDoesNotDisturbNeighbours(t *testing.T) {
	a, err := New(10, 13)
	require.NoError(t, err)
	for i := int64(0); i < 10; i++ {
		a.Set(i, 1<<13-1)
	}
	a.Set(4, 0)
	for i := int64(0); i < 10; i++ {
		if i == 4 {
			assert.Equal(t, uint64(0), a.Get(i))
		} else {
			assert.Equal(t, uint64(1<<13-1), a.Get(i))
		}
	}
}

func TestArray_Truncation(t *testing.T) {
	a, err := New(4, 3)
	require.NoError(t, err)
	a.Set(0, 0xFF)
	assert.Equal(t, uint64(7), a.Get(0))
	assert.Zero(t, a.Get(1))
}

func TestFits(t *testing.T) {
	assert.True(t, Fits(7, 3))
	assert.False(t, Fits(8, 3))
	assert.True(t, Fits(0, 0))
	assert.False(t, Fits(1, 0))
	assert.True(t, Fits(^uint64(0), 64))
}

func TestBytes(t *testing.T) {
	assert.Equal(t, int64(0), Bytes(0, 40))
	assert.Equal(t, int64(8), Bytes(1, 1))
	assert.Equal(t, int64(8), Bytes(64, 1))
	assert.Equal(t, int64(16), Bytes(65, 1))
	assert.Equal(t, int64(80), Bytes(10, 64))
	assert.Equal(t, int64(40), Bytes(10, 30))
}

func TestArray_Invalid(t *testing.T) {
	_, err := New(1, 65)
	assert.ErrorIs(t, err, ErrWidth)
	_, err = New(-1, 8)
	assert.ErrorIs(t, err, ErrWidth)
}

func TestArray_Serialization(t *testing.T) {
	a, err := New(20, 17)
	require.NoError(t, err)
	for i := int64(0); i < 20; i++ {
		a.Set(i, uint64(i*4099))
	}

	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	b, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, a.Len(), b.Len())
	assert.Equal(t, a.Width(), b.Width())
	for i := int64(0); i < 20; i++ {
		assert.Equal(t, a.Get(i), b.Get(i))
	}
}

func TestRead_HostileLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int64(1)<<40))
	buf.WriteByte(64)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(42)))

	_, err := Read(&buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRead_InvalidHeader(t *testing.T) {
	for _, tt := range []struct {
		name  string
		n     int64
		width uint8
	}{
		{"negative length", -1, 8},
		{"width over 64", 1, 65},
		{"overflowing bit count", 1 << 62, 64},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, tt.n))
			buf.WriteByte(tt.width)
			_, err := Read(&buf)
			assert.ErrorIs(t, err, ErrWidth)
		})
	}
}
