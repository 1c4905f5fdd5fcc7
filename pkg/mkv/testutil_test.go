package mkv

import (
	"testing"

	"github.com/limefrogyank/mkvdemux/pkg/ebml"
	"github.com/stretchr/testify/require"
)

// encodeElement builds the raw bytes of one element: a raw-mode id VINT at
// its natural width, a value-mode size VINT, then payload. Mirrors
// pkg/ebml's own test helper since EBML element framing is identical
// regardless of which package is exercising it.
func encodeElement(t *testing.T, id uint32, idWidth uint8, payload []byte) []byte {
	t.Helper()
	idBuf := rawBytes(id, idWidth)
	sizeBuf, err := ebml.EncodeVInt(uint64(len(payload)), 0)
	require.NoError(t, err)
	out := append([]byte{}, idBuf...)
	out = append(out, sizeBuf...)
	out = append(out, payload...)
	return out
}

func rawBytes(id uint32, width uint8) []byte {
	b := make([]byte, width)
	v := id
	for i := int(width) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// encodeVInt is a small convenience over ebml.EncodeVInt for building
// laced-block bodies in tests.
func encodeVInt(t *testing.T, value uint64) []byte {
	t.Helper()
	b, err := ebml.EncodeVInt(value, 0)
	require.NoError(t, err)
	return b
}
