package mkv

import (
	"bytes"
	"context"
	"testing"

	"github.com/limefrogyank/mkvdemux/internal/logx"
	"github.com/limefrogyank/mkvdemux/pkg/mkverr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopCloserReader adapts a *bytes.Reader to io.ReadSeekCloser for tests,
// since FileByteSource wraps a real *os.File in production.
type nopCloserReader struct {
	*bytes.Reader
}

func (nopCloserReader) Close() error { return nil }

// buildMinimalFile assembles a bare-bones file exercising the no-seek
// open/start path: an EBML header, a Segment containing Info and one
// video Track, and a single Cluster carrying one SimpleBlock at
// timestamp 0. No SeekHead or Cues.
func buildMinimalFile(t *testing.T) []byte {
	t.Helper()

	ebmlHeader := encodeElement(t, 0x1A45DFA3, 4, encodeElement(t, 0x4282, 2, []byte("webm")))

	info := encodeElement(t, infoID, 4, encodeElement(t, timecodeScaleID, 3, []byte{0x0F, 0x42, 0x40}))

	trackEntry := concat(
		encodeElement(t, trackNumberID, 1, []byte{0x01}),
		encodeElement(t, trackTypeID, 1, []byte{0x01}),
		encodeElement(t, codecIDID, 1, []byte("V_TEST")),
	)
	tracks := encodeElement(t, tracksID, 4, encodeElement(t, trackEntryID, 1, trackEntry))

	blockPayload := buildBlockPayload(t, 1, 0, flagKeyframe, []byte("hello"))
	clusterPayload := concat(
		encodeElement(t, 0xE7, 1, []byte{0x00}), // Timecode = 0
		encodeElement(t, 0xA3, 1, blockPayload), // SimpleBlock
	)
	cluster := encodeElement(t, clusterStreamedID, 4, clusterPayload)

	segment := encodeElement(t, segmentStreamedID, 4, concat(info, tracks, cluster))

	return concat(ebmlHeader, segment)
}

func newTestController(t *testing.T, data []byte) *Controller {
	t.Helper()
	source := NewFileByteSource(nopCloserReader{bytes.NewReader(data)})
	return NewController(source, 4096, DefaultRingCapacity, logx.Discard, nil)
}

// be4 encodes v as a 4-byte big-endian unsigned value, the fixed width
// this file uses for SeekPosition/CueClusterPosition so that re-pointing
// a placeholder offset never changes a preceding element's length.
func be4(v uint64) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// buildSeekHeadFile assembles scenario G: a Segment with a SeekHead at
// the front pointing at Cues, which trails two Clusters rather than
// preceding them. Exercises the SeekHead-directed jump in openLoop and
// multi-Cluster streaming.
func buildSeekHeadFile(t *testing.T) []byte {
	t.Helper()

	ebmlHeader := encodeElement(t, 0x1A45DFA3, 4, encodeElement(t, 0x4282, 2, []byte("webm")))

	info := encodeElement(t, infoID, 4, encodeElement(t, timecodeScaleID, 3, []byte{0x0F, 0x42, 0x40}))

	trackEntry := concat(
		encodeElement(t, trackNumberID, 1, []byte{0x01}),
		encodeElement(t, trackTypeID, 1, []byte{0x01}),
		encodeElement(t, codecIDID, 1, []byte("V_TEST")),
	)
	tracks := encodeElement(t, tracksID, 4, encodeElement(t, trackEntryID, 1, trackEntry))

	// SeekHead's SeekPosition is filled in below once the offset of Cues
	// is known; its byte length never changes since be4 is fixed-width.
	seekEntry := concat(
		encodeElement(t, seekIDID, 2, []byte{0x1C, 0x53, 0xBB, 0x6B}), // Cues
		encodeElement(t, seekPosID, 2, be4(0)),
	)
	seekHead := encodeElement(t, seekHeadID, 4, encodeElement(t, seekID, 2, seekEntry))

	block1 := buildBlockPayload(t, 1, 0, flagKeyframe, []byte("one"))
	cluster1Payload := concat(
		encodeElement(t, 0xE7, 1, []byte{0x00}), // Timecode = 0
		encodeElement(t, 0xA3, 1, block1),
	)
	cluster1 := encodeElement(t, clusterStreamedID, 4, cluster1Payload)

	block2 := buildBlockPayload(t, 1, 0, 0x00, []byte("two"))
	cluster2Payload := concat(
		encodeElement(t, 0xE7, 1, []byte{0x64}), // Timecode = 100
		encodeElement(t, 0xA3, 1, block2),
	)
	cluster2 := encodeElement(t, clusterStreamedID, 4, cluster2Payload)

	clusterOffset := uint64(len(seekHead) + len(info) + len(tracks))
	cuesOffset := clusterOffset + uint64(len(cluster1)+len(cluster2))

	// Re-encode SeekHead now that cuesOffset is known; same length as
	// the placeholder above.
	seekEntry = concat(
		encodeElement(t, seekIDID, 2, []byte{0x1C, 0x53, 0xBB, 0x6B}),
		encodeElement(t, seekPosID, 2, be4(cuesOffset)),
	)
	seekHead = encodeElement(t, seekHeadID, 4, encodeElement(t, seekID, 2, seekEntry))
	require.Equal(t, clusterOffset, uint64(len(seekHead)+len(info)+len(tracks)), "re-encoding SeekPosition must not change SeekHead's length")

	cuesPayload := encodeElement(t, cuePointID, 1, concat(
		encodeElement(t, cueTimeID, 1, []byte{0x00}),
		encodeElement(t, cueTrackPositionsID, 1, concat(
			encodeElement(t, cueTrackID, 1, []byte{0x01}),
			encodeElement(t, cueClusterPosID, 1, be4(clusterOffset)),
		)),
	))
	cues := encodeElement(t, cuesID, 4, cuesPayload)

	segment := encodeElement(t, segmentStreamedID, 4, concat(seekHead, info, tracks, cluster1, cluster2, cues))
	return concat(ebmlHeader, segment)
}

// buildUnknownLengthClusterFile assembles a Segment with Info/Tracks
// followed by a Cluster using the EBML unknown-length sentinel (a
// single 0xFF size byte) and a second, normally-sized Cluster
// immediately after it.
func buildUnknownLengthClusterFile(t *testing.T) []byte {
	t.Helper()

	ebmlHeader := encodeElement(t, 0x1A45DFA3, 4, encodeElement(t, 0x4282, 2, []byte("webm")))
	info := encodeElement(t, infoID, 4, encodeElement(t, timecodeScaleID, 3, []byte{0x0F, 0x42, 0x40}))
	trackEntry := concat(
		encodeElement(t, trackNumberID, 1, []byte{0x01}),
		encodeElement(t, trackTypeID, 1, []byte{0x01}),
		encodeElement(t, codecIDID, 1, []byte("V_TEST")),
	)
	tracks := encodeElement(t, tracksID, 4, encodeElement(t, trackEntryID, 1, trackEntry))

	block1 := buildBlockPayload(t, 1, 0, flagKeyframe, []byte("one"))
	cluster1Payload := concat(
		encodeElement(t, 0xE7, 1, []byte{0x00}),
		encodeElement(t, 0xA3, 1, block1),
	)
	// Unknown-length Cluster header: id bytes, then a single 0xFF size
	// byte (the width-1 all-ones sentinel), then children with no
	// declared outer span.
	cluster1 := concat(rawBytes(clusterStreamedID, 4), []byte{0xFF}, cluster1Payload)

	block2 := buildBlockPayload(t, 1, 0, 0x00, []byte("two"))
	cluster2Payload := concat(
		encodeElement(t, 0xE7, 1, []byte{0x32}), // Timecode = 50
		encodeElement(t, 0xA3, 1, block2),
	)
	cluster2 := encodeElement(t, clusterStreamedID, 4, cluster2Payload)

	segment := encodeElement(t, segmentStreamedID, 4, concat(info, tracks, cluster1, cluster2))
	return concat(ebmlHeader, segment)
}

func TestController_OpenStartNextFrame_EndToEnd(t *testing.T) {
	ctrl := newTestController(t, buildMinimalFile(t))
	ctx := context.Background()

	require.NoError(t, ctrl.Open(ctx))
	assert.Equal(t, StateStopped, ctrl.State())

	data := ctrl.MasterData()
	assert.Equal(t, uint64(1000000), data.Info.TimecodeScaleNS)
	require.Len(t, data.Tracks, 1)
	assert.Equal(t, uint64(1), data.Tracks[0].TrackNumber)
	assert.True(t, data.Tracks[0].Selected)

	require.NoError(t, ctrl.Start(ctx, -1))
	assert.Equal(t, StateStarted, ctrl.State())

	fd, err := ctrl.NextFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fd.TrackNumber)
	assert.EqualValues(t, 0, fd.TimestampTicks)
	assert.True(t, fd.IsKeyframe)
	assert.False(t, fd.IsEndOfTrack)
	assert.Equal(t, "hello", string(ctrl.FramePayload(fd)))

	// The byte source is now exhausted: NextFrame surfaces one
	// synthetic end-of-track descriptor per selected track before the
	// final global end-of-stream.
	eofFd, err := ctrl.NextFrame(ctx)
	require.NoError(t, err)
	assert.True(t, eofFd.IsEndOfTrack)
	assert.Equal(t, uint64(1), eofFd.TrackNumber)

	_, err = ctrl.NextFrame(ctx)
	assert.ErrorIs(t, err, mkverr.ErrEndOfStream)
}

func TestController_SelectTrack_SkipsDeselectedFrames(t *testing.T) {
	ctrl := newTestController(t, buildMinimalFile(t))
	ctx := context.Background()
	require.NoError(t, ctrl.Open(ctx))
	require.NoError(t, ctrl.SelectTrack(1, false))
	require.NoError(t, ctrl.Start(ctx, -1))

	_, err := ctrl.NextFrame(ctx)
	assert.ErrorIs(t, err, mkverr.ErrEndOfStream)
}

func TestController_MethodsRejectWrongState(t *testing.T) {
	ctrl := newTestController(t, buildMinimalFile(t))
	ctx := context.Background()

	_, err := ctrl.NextFrame(ctx)
	assert.ErrorIs(t, err, mkverr.ErrInvalidState)

	err = ctrl.Start(ctx, -1)
	assert.ErrorIs(t, err, mkverr.ErrInvalidState)

	require.NoError(t, ctrl.Open(ctx))
	err = ctrl.Open(ctx)
	assert.ErrorIs(t, err, mkverr.ErrInvalidState)
}

func TestMasterData_FindSeekPoint_TieBreakRule(t *testing.T) {
	data := MasterData{Cues: []CuePoint{
		{CueTimeTicks: 0, Positions: []CuePosition{{CueTrack: 1, CueClusterPosition: 0}}},
		{CueTimeTicks: 100, Positions: []CuePosition{{CueTrack: 1, CueClusterPosition: 10}}},
		{CueTimeTicks: 100, Positions: []CuePosition{{CueTrack: 1, CueClusterPosition: 20}}}, // tie, later index wins
		{CueTimeTicks: 200, Positions: []CuePosition{{CueTrack: 1, CueClusterPosition: 30}}},
	}}

	cp, ok := data.FindSeekPoint(150)
	require.True(t, ok)
	assert.Equal(t, uint64(20), cp.Positions[0].CueClusterPosition)

	cp, ok = data.FindSeekPoint(200)
	require.True(t, ok)
	assert.Equal(t, uint64(30), cp.Positions[0].CueClusterPosition)

	// Target equal to the first CuePoint's time selects the first.
	cp, ok = data.FindSeekPoint(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0), cp.Positions[0].CueClusterPosition)
}

// TestController_Open_SeekHeadJumpToTrailingCues drives scenario G: a
// SeekHead naming Cues that trail both Clusters. Open must land back at
// the first Cluster and succeed, not fail with ErrEndOfStream from
// reading off the end of the file while parked at the Cues it jumped to.
func TestController_Open_SeekHeadJumpToTrailingCues(t *testing.T) {
	ctrl := newTestController(t, buildSeekHeadFile(t))
	ctx := context.Background()

	require.NoError(t, ctrl.Open(ctx))
	assert.Equal(t, StateStopped, ctrl.State())

	data := ctrl.MasterData()
	require.Len(t, data.SeekHead, 1)
	require.Len(t, data.Cues, 1)
	assert.Equal(t, uint64(0), data.Cues[0].CueTimeTicks)
	require.NotNil(t, data.FirstClusterOffset)
	assert.Equal(t, data.SegmentPayloadOffset+data.Cues[0].Positions[0].CueClusterPosition, *data.FirstClusterOffset)

	require.NoError(t, ctrl.Start(ctx, -1))

	fd1, err := ctrl.NextFrame(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, fd1.TimestampTicks)
	assert.True(t, fd1.IsKeyframe)
	assert.Equal(t, "one", string(ctrl.FramePayload(fd1)))

	fd2, err := ctrl.NextFrame(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 100, fd2.TimestampTicks)
	assert.False(t, fd2.IsKeyframe)
	assert.Equal(t, "two", string(ctrl.FramePayload(fd2)))

	eofFd, err := ctrl.NextFrame(ctx)
	require.NoError(t, err)
	assert.True(t, eofFd.IsEndOfTrack)

	_, err = ctrl.NextFrame(ctx)
	assert.ErrorIs(t, err, mkverr.ErrEndOfStream)
}

// TestController_NextFrame_UnknownLengthCluster drives an open-ended
// first Cluster followed immediately by a second, normally-sized one,
// confirming the second Cluster is not lost or mistaken for an opaque
// oversized child of the first.
func TestController_NextFrame_UnknownLengthCluster(t *testing.T) {
	ctrl := newTestController(t, buildUnknownLengthClusterFile(t))
	ctx := context.Background()

	require.NoError(t, ctrl.Open(ctx))
	require.NoError(t, ctrl.Start(ctx, -1))

	fd1, err := ctrl.NextFrame(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, fd1.TimestampTicks)
	assert.Equal(t, "one", string(ctrl.FramePayload(fd1)))

	fd2, err := ctrl.NextFrame(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 50, fd2.TimestampTicks)
	assert.Equal(t, "two", string(ctrl.FramePayload(fd2)))

	eofFd, err := ctrl.NextFrame(ctx)
	require.NoError(t, err)
	assert.True(t, eofFd.IsEndOfTrack)

	_, err = ctrl.NextFrame(ctx)
	assert.ErrorIs(t, err, mkverr.ErrEndOfStream)
}
