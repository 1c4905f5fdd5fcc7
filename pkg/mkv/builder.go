package mkv

import (
	"github.com/limefrogyank/mkvdemux/internal/logx"
	"github.com/limefrogyank/mkvdemux/pkg/ebml"
)

// builder accumulates MasterData from the top-level Segment children
// (SeekHead, Info, Tracks, Cues) the opening phase dispatches to it, per
// the Model Builder rules (L5).
type builder struct {
	data MasterData
	log  logx.Logger

	sawInfo   bool
	sawTracks bool
}

func newBuilder(log logx.Logger) *builder {
	return &builder{
		data: MasterData{Info: SegmentInfo{TimecodeScaleNS: DefaultTimecodeScale}},
		log:  log,
	}
}

// dispatch feeds one parsed top-level Segment child into the model.
// Unrecognized masters are ignored (they may still be walked as a generic
// tree elsewhere, but are not modeled per the Non-goals).
func (b *builder) dispatch(node ebml.Node) {
	switch node.ID {
	case seekHeadID:
		b.data.SeekHead = append(b.data.SeekHead, buildSeekHead(node)...)
	case infoID:
		b.data.Info = buildInfo(node)
		b.sawInfo = true
	case tracksID:
		b.data.Tracks = append(b.data.Tracks, buildTracks(node)...)
		b.sawTracks = true
	case cuesID:
		b.data.Cues = append(b.data.Cues, buildCues(node)...)
	}
}

// Element ids the builder cares about at the top level, named for
// readability at the call sites above.
const (
	seekHeadID = 0x114D9B74
	seekID     = 0x4DBB
	seekIDID   = 0x53AB
	seekPosID  = 0x53AC

	infoID          = 0x1549A966
	segmentUIDID    = 0x73A4
	timecodeScaleID = 0x2AD7B1
	durationID      = 0x4489
	muxingAppID     = 0x4D80
	writingAppID    = 0x5741

	tracksID        = 0x1654AE6B
	trackEntryID    = 0xAE
	trackNumberID   = 0xD7
	trackUIDID      = 0x73C5
	trackTypeID     = 0x83
	flagEnabledID   = 0xB9
	flagDefaultID   = 0x88
	flagLacingID    = 0x9C
	defaultDurID    = 0x23E383
	codecIDID       = 0x86
	codecPrivateID  = 0x63A2
	videoID         = 0xE0
	pixelWidthID    = 0xB0
	pixelHeightID   = 0xBA
	flagInterlacedID = 0x9A
	audioID              = 0xE1
	samplingFrequencyID  = 0xB5
	channelsID           = 0x9F
	bitDepthID           = 0x6264

	cuesID              = 0x1C53BB6B
	cuePointID          = 0xBB
	cueTimeID           = 0xB3
	cueTrackPositionsID = 0xB7
	cueTrackID          = 0xF7
	cueClusterPosID     = 0xF1
)

func buildSeekHead(node ebml.Node) []SeekEntry {
	var out []SeekEntry
	for _, seek := range node.Children {
		if seek.ID != seekID {
			continue
		}
		var entry SeekEntry
		for _, c := range seek.Children {
			switch c.ID {
			case seekIDID:
				entry.ElementID = decodeSeekTargetID(c.Bytes)
			case seekPosID:
				entry.SeekPosition = ebml.DecodeUnsigned(c.Bytes)
			}
		}
		out = append(out, entry)
	}
	return out
}

// decodeSeekTargetID interprets SeekID's 1-4 raw bytes as the big-endian
// element id it names (including its class marker bit, same convention
// as every other element id in this engine).
func decodeSeekTargetID(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func buildInfo(node ebml.Node) SegmentInfo {
	info := SegmentInfo{TimecodeScaleNS: DefaultTimecodeScale}
	for _, c := range node.Children {
		switch c.ID {
		case segmentUIDID:
			info.SegmentUID = append([]byte{}, c.Bytes...)
		case timecodeScaleID:
			info.TimecodeScaleNS = ebml.DecodeUnsigned(c.Bytes)
		case durationID:
			if v, ok := ebml.DecodeFloat(c.Bytes); ok {
				info.DurationTicks = &v
			}
		case muxingAppID:
			info.MuxingApp = ebml.DecodeTextUTF8(c.Bytes)
		case writingAppID:
			info.WritingApp = ebml.DecodeTextUTF8(c.Bytes)
		}
	}
	return info
}

func buildTracks(node ebml.Node) []Track {
	var out []Track
	for _, te := range node.Children {
		if te.ID != trackEntryID {
			continue
		}
		out = append(out, buildTrackEntry(te))
	}
	return out
}

func buildTrackEntry(te ebml.Node) Track {
	t := Track{}
	for _, c := range te.Children {
		switch c.ID {
		case trackNumberID:
			t.TrackNumber = ebml.DecodeUnsigned(c.Bytes)
		case trackUIDID:
			t.TrackUID = ebml.DecodeUnsigned(c.Bytes)
		case trackTypeID:
			t.TrackType = TrackType(ebml.DecodeUnsigned(c.Bytes))
		case flagEnabledID:
			t.FlagEnabled = ebml.DecodeUnsigned(c.Bytes) != 0
		case flagDefaultID:
			t.FlagDefault = ebml.DecodeUnsigned(c.Bytes) != 0
		case flagLacingID:
			t.FlagLacing = ebml.DecodeUnsigned(c.Bytes) != 0
		case defaultDurID:
			v := ebml.DecodeUnsigned(c.Bytes)
			t.DefaultDurationNS = &v
		case codecIDID:
			t.CodecID = ebml.DecodeTextASCII(c.Bytes)
		case codecPrivateID:
			t.CodecPrivate = append([]byte{}, c.Bytes...)
		case videoID:
			v := buildVideoParams(c)
			t.Video = &v
		case audioID:
			a := buildAudioParams(c)
			t.Audio = &a
		}
	}
	// FlagEnabled defaults true in Matroska when absent; selection
	// defaults to whatever the track declares itself enabled as.
	if !containsChild(te, flagEnabledID) {
		t.FlagEnabled = true
	}
	t.Selected = t.FlagEnabled
	return t
}

func containsChild(node ebml.Node, id uint32) bool {
	for _, c := range node.Children {
		if c.ID == id {
			return true
		}
	}
	return false
}

func buildVideoParams(node ebml.Node) VideoParams {
	var v VideoParams
	for _, c := range node.Children {
		switch c.ID {
		case pixelWidthID:
			v.PixelWidth = ebml.DecodeUnsigned(c.Bytes)
		case pixelHeightID:
			v.PixelHeight = ebml.DecodeUnsigned(c.Bytes)
		case flagInterlacedID:
			v.FlagInterlaced = ebml.DecodeUnsigned(c.Bytes) != 0
		}
	}
	return v
}

func buildAudioParams(node ebml.Node) AudioParams {
	var a AudioParams
	for _, c := range node.Children {
		switch c.ID {
		case samplingFrequencyID:
			if v, ok := ebml.DecodeFloat(c.Bytes); ok {
				a.SamplingFrequency = v
			}
		case channelsID:
			a.Channels = ebml.DecodeUnsigned(c.Bytes)
		case bitDepthID:
			a.BitDepth = ebml.DecodeUnsigned(c.Bytes)
		}
	}
	return a
}

func buildCues(node ebml.Node) []CuePoint {
	var out []CuePoint
	for _, cp := range node.Children {
		if cp.ID != cuePointID {
			continue
		}
		var point CuePoint
		for _, c := range cp.Children {
			switch c.ID {
			case cueTimeID:
				point.CueTimeTicks = ebml.DecodeUnsigned(c.Bytes)
			case cueTrackPositionsID:
				var pos CuePosition
				for _, p := range c.Children {
					switch p.ID {
					case cueTrackID:
						pos.CueTrack = ebml.DecodeUnsigned(p.Bytes)
					case cueClusterPosID:
						pos.CueClusterPosition = ebml.DecodeUnsigned(p.Bytes)
					}
				}
				point.Positions = append(point.Positions, pos)
			}
		}
		out = append(out, point)
	}
	return out
}

// ready reports whether Info and Tracks have been observed, the minimum
// the opening phase requires before it may enter the streaming phase (the
// schema discovery invariant of the container specification). Cues are
// optional unless a SeekHead entry explicitly points to them.
func (b *builder) ready(seekHeadReferencesCues bool) bool {
	haveCuesIfNeeded := !seekHeadReferencesCues || len(b.data.Cues) > 0
	return b.sawInfo && b.sawTracks && haveCuesIfNeeded
}
