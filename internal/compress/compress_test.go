package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("ACGTTGCA"), 1000)

	for _, c := range []Codec{LZ4, ZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			out, used, err := Block(data, c)
			require.NoError(t, err)
			assert.Equal(t, c, used)
			assert.Less(t, len(out), len(data)/2)

			back, err := Unblock(out, used, len(data))
			require.NoError(t, err)
			assert.Equal(t, data, back)

			_, err = Unblock(out, used, len(data)+1)
			assert.Error(t, err)
		})
	}
}

func TestBlock_None(t *testing.T) {
	data := []byte("ACGT")
	out, used, err := Block(data, None)
	require.NoError(t, err)
	assert.Equal(t, None, used)
	assert.Equal(t, data, out)

	_, err = Unblock(out, None, 3)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestBlock_Incompressible(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i * 17 % 256)
	}
	out, used, err := Block(data, LZ4)
	require.NoError(t, err)

	back, err := Unblock(out, used, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestCodec_Names(t *testing.T) {
	for _, c := range []Codec{None, LZ4, ZSTD} {
		got, err := Parse(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.True(t, c.Valid())
	}
	_, err := Parse("brotli")
	assert.ErrorIs(t, err, ErrUnknownCodec)
	assert.False(t, Codec(9).Valid())
	assert.Equal(t, "codec(9)", Codec(9).String())

	_, _, err = Block([]byte("x"), Codec(9))
	assert.ErrorIs(t, err, ErrUnknownCodec)
}
