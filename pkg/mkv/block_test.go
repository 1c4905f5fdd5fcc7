package mkv

import (
	"testing"

	"github.com/limefrogyank/mkvdemux/pkg/mkverr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBlockPayload assembles a SimpleBlock/Block payload: track number
// (value-mode VINT), 16-bit signed relative timecode, flags byte, body.
func buildBlockPayload(t *testing.T, trackNumber uint64, relTimecode int16, flags byte, body []byte) []byte {
	t.Helper()
	trackBuf := encodeVInt(t, trackNumber)
	out := append([]byte{}, trackBuf...)
	out = append(out, byte(relTimecode>>8), byte(relTimecode))
	out = append(out, flags)
	out = append(out, body...)
	return out
}

// Scenario E: no lacing, one frame.
func TestParseBlock_NoLacing(t *testing.T) {
	payload := buildBlockPayload(t, 1, 5, flagKeyframe, []byte("framebytes"))
	pb, err := parseBlock(payload, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pb.trackNumber)
	assert.Equal(t, int16(5), pb.relativeTimecode)
	assert.True(t, pb.isKeyframe)
	require.Len(t, pb.frames, 1)
	assert.Equal(t, "framebytes", string(payload[pb.frames[0].offset:pb.frames[0].offset+pb.frames[0].length]))
}

// Fixed-size lacing, 3 equal-size frames.
func TestParseBlock_FixedLacing(t *testing.T) {
	frames := []byte("aaaa" + "bbbb" + "cccc")
	body := append([]byte{byte(3 - 1)}, frames...) // frame count - 1
	payload := buildBlockPayload(t, 2, 0, lacingFixed, body)

	pb, err := parseBlock(payload, true)
	require.NoError(t, err)
	require.Len(t, pb.frames, 3)
	for i, want := range []string{"aaaa", "bbbb", "cccc"} {
		got := string(payload[pb.frames[i].offset : pb.frames[i].offset+pb.frames[i].length])
		assert.Equal(t, want, got)
	}
}

func TestParseBlock_XiphLacingUnsupported(t *testing.T) {
	payload := buildBlockPayload(t, 1, 0, lacingXiph, []byte{0x00})
	_, err := parseBlock(payload, true)
	require.Error(t, err)
	var uf *mkverr.UnsupportedFeature
	assert.ErrorAs(t, err, &uf)
	assert.True(t, mkverr.IsRecoverable(err))
}

// EBML lacing: frame count 3, first size 5, then signed deltas, last
// frame's size implied by remaining bytes.
func TestParseBlock_EBMLLacing(t *testing.T) {
	frame0 := []byte("hello") // 5 bytes
	frame1 := []byte("worldly")  // 7 bytes, delta = +2
	frame2 := []byte("x")        // remainder

	body := []byte{byte(3 - 1)} // frame count - 1
	body = append(body, encodeVInt(t, 5)...)
	deltaBuf, err := encodeSignedVInt(t, 2)
	require.NoError(t, err)
	body = append(body, deltaBuf...)
	body = append(body, frame0...)
	body = append(body, frame1...)
	body = append(body, frame2...)

	payload := buildBlockPayload(t, 3, 0, lacingEBML, body)
	pb, err := parseBlock(payload, true)
	require.NoError(t, err)
	require.Len(t, pb.frames, 3)

	got0 := string(payload[pb.frames[0].offset : pb.frames[0].offset+pb.frames[0].length])
	got1 := string(payload[pb.frames[1].offset : pb.frames[1].offset+pb.frames[1].length])
	got2 := string(payload[pb.frames[2].offset : pb.frames[2].offset+pb.frames[2].length])
	assert.Equal(t, "hello", got0)
	assert.Equal(t, "worldly", got1)
	assert.Equal(t, "x", got2)
}

// encodeSignedVInt encodes a signed VINT delta the way EBML lacing uses:
// a width-1 VINT whose payload is value with the bias added back in,
// packed behind the length-marker bit by rawBytesForSignedTest
// (ebml.EncodeVInt has no signed mode).
func encodeSignedVInt(t *testing.T, value int64) ([]byte, error) {
	t.Helper()
	// Width 1 bias is (2^6)-1 = 63, plenty for small test deltas.
	const width = 1
	const bias = (int64(1) << 6) - 1
	return rawBytesForSignedTest(uint8(width), uint64(value+bias)), nil
}

func rawBytesForSignedTest(width uint8, biased uint64) []byte {
	marker := uint64(1) << (7 * uint(width))
	v := biased | marker
	buf := make([]byte, width)
	for i := int(width) - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

func TestResolveDuration_FallsBackToTrackDefault(t *testing.T) {
	defaultNS := uint64(33_000_000)
	track := &Track{DefaultDurationNS: &defaultNS}

	got := resolveDuration(nil, track)
	require.NotNil(t, got)
	assert.Equal(t, defaultNS, *got)

	explicit := uint64(42)
	got2 := resolveDuration(&explicit, track)
	require.NotNil(t, got2)
	assert.Equal(t, explicit, *got2)
}

func TestFrameRing_OverflowReturnsError(t *testing.T) {
	r := newFrameRing(2)
	require.NoError(t, r.push(FrameDescriptor{TrackNumber: 1}))
	require.NoError(t, r.push(FrameDescriptor{TrackNumber: 2}))
	err := r.push(FrameDescriptor{TrackNumber: 3})
	assert.ErrorIs(t, err, mkverr.ErrRingCapacityExceeded)

	fd, ok := r.pop()
	require.True(t, ok)
	assert.Equal(t, uint64(1), fd.TrackNumber)
	assert.Equal(t, 1, r.len())
}
