// Package mkv materializes a typed Matroska model from parsed EBML trees
// (the Model Builder, L5) and drives frame-accurate Cluster/Block framing
// and the two-phase open/stream controller (L6, L7) on top of pkg/ebml.
package mkv

// TrackType mirrors the Matroska TrackType enumeration; only the values
// the engine needs to distinguish are named.
type TrackType uint64

const (
	TrackTypeVideo    TrackType = 1
	TrackTypeAudio    TrackType = 2
	TrackTypeComplex  TrackType = 3
	TrackTypeLogo     TrackType = 0x10
	TrackTypeSubtitle TrackType = 0x11
	TrackTypeButtons  TrackType = 0x12
	TrackTypeControl  TrackType = 0x20
)

// DefaultTimecodeScale is the nanosecond value of one Segment tick when
// Info/TimecodeScale is absent.
const DefaultTimecodeScale = 1_000_000

// SegmentInfo is the decoded Info master.
type SegmentInfo struct {
	SegmentUID      []byte
	TimecodeScaleNS uint64
	DurationTicks   *float64
	MuxingApp       string
	WritingApp      string
}

// VideoParams is populated when a TrackEntry carries a Video sub-master.
type VideoParams struct {
	PixelWidth     uint64
	PixelHeight    uint64
	FlagInterlaced bool
}

// AudioParams is populated when a TrackEntry carries an Audio sub-master.
type AudioParams struct {
	SamplingFrequency float64
	Channels          uint64
	BitDepth          uint64
}

// Track is one decoded TrackEntry.
type Track struct {
	TrackNumber        uint64
	TrackUID           uint64
	TrackType          TrackType
	FlagEnabled        bool
	FlagDefault        bool
	FlagLacing         bool
	DefaultDurationNS  *uint64
	CodecID            string
	CodecPrivate       []byte
	Video              *VideoParams
	Audio              *AudioParams

	// Selected governs whether NextFrame surfaces frames for this track;
	// set via (*Controller).SelectTrack, defaulting to true so a track
	// with FlagEnabled set streams by default.
	Selected bool
}

// SeekEntry is one SeekHead/Seek child: a byte offset relative to the
// first byte of the Segment's payload.
type SeekEntry struct {
	ElementID    uint32
	SeekPosition uint64
}

// CuePosition is one CueTrackPositions child of a CuePoint.
type CuePosition struct {
	CueTrack           uint64
	CueClusterPosition uint64
}

// CuePoint is one decoded Cues/CuePoint master.
type CuePoint struct {
	CueTimeTicks uint64
	Positions    []CuePosition
}

// MasterData is the aggregate of everything the opening phase collects
// before the first Cluster. After Open returns it is read-only and safe to
// share by reference with a consumer for the controller's lifetime.
type MasterData struct {
	SegmentPayloadOffset uint64
	SeekHead             []SeekEntry
	Info                 SegmentInfo
	Tracks               []Track
	Cues                 []CuePoint
	FirstClusterOffset   *uint64
}

// TrackByNumber returns the track with the given TrackNumber, or nil.
func (m *MasterData) TrackByNumber(n uint64) *Track {
	for i := range m.Tracks {
		if m.Tracks[i].TrackNumber == n {
			return &m.Tracks[i]
		}
	}
	return nil
}

// FindSeekPoint returns the CuePoint to jump to for a target presentation
// time expressed in Segment ticks, and whether one was found. Per the
// cue-seek tie-break rule: among CuePoints at or before target, the
// greatest cue_time_ticks wins; ties on cue_time_ticks resolve to the
// last (highest-index) CuePoint; if none precede target, the first
// CuePoint is used.
func (m *MasterData) FindSeekPoint(targetTicks uint64) (CuePoint, bool) {
	if len(m.Cues) == 0 {
		return CuePoint{}, false
	}
	bestIdx := -1
	for i, cp := range m.Cues {
		if cp.CueTimeTicks > targetTicks {
			continue
		}
		if bestIdx == -1 || cp.CueTimeTicks >= m.Cues[bestIdx].CueTimeTicks {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return m.Cues[0], true
	}
	return m.Cues[bestIdx], true
}
