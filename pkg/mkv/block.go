package mkv

import (
	"fmt"

	"github.com/limefrogyank/mkvdemux/pkg/ebml"
	"github.com/limefrogyank/mkvdemux/pkg/mkverr"
)

// FrameDescriptor is one decoded frame, produced by the Cluster/Block
// framer. PayloadOffset/PayloadLen index into the controller's frame
// staging buffer (see Controller.FramePayload); that slice is valid only
// until the next call to NextFrame or a state transition.
type FrameDescriptor struct {
	TrackNumber    uint64
	TimestampTicks int64
	DurationTicks  *uint64
	IsKeyframe     bool
	PayloadOffset  int
	PayloadLen     int

	// ReferencesTicks surfaces BlockGroup ReferenceBlock values verbatim,
	// relative to this block's own timestamp. They are never validated
	// for integrity (per the container spec's signed-block stance).
	ReferencesTicks []int64

	// IsEndOfTrack marks a synthetic descriptor signalling that
	// TrackNumber has delivered its last frame. The controller emits one
	// of these per selected track once the byte source is exhausted,
	// before NextFrame finally returns mkverr.ErrEndOfStream. All other
	// fields are zero-valued on an end-of-track descriptor.
	IsEndOfTrack bool
}

const (
	lacingMask  = 0x06
	lacingNone  = 0x00
	lacingXiph  = 0x02
	lacingFixed = 0x04
	lacingEBML  = 0x06

	flagKeyframe    = 0x80
	flagInvisible   = 0x08
	flagDiscardable = 0x01
)

// blockFrame is one laced sub-frame's byte range within a Block/
// SimpleBlock's payload, prior to being placed into the frame staging
// buffer.
type blockFrame struct {
	offset int
	length int
}

// parsedBlock is the decoded header of a SimpleBlock or Block element,
// prior to frame placement: track number, the block-relative timecode,
// flags, and the laced frame ranges within payload.
type parsedBlock struct {
	trackNumber      uint64
	relativeTimecode int16
	isKeyframe       bool
	frames           []blockFrame
}

// parseBlock decodes the SimpleBlock/Block byte layout: track number
// (value-mode VINT), a 16-bit signed relative timecode, one flags byte,
// then the laced frame(s). isSimpleBlock controls whether the keyframe
// flag bit is honored (BlockGroup's Block has no such bit; its keyframe
// status instead comes from the absence of ReferenceBlock).
func parseBlock(payload []byte, isSimpleBlock bool) (parsedBlock, error) {
	trackNum, err := ebml.DecodeVInt(payload, false, false)
	if err != nil {
		return parsedBlock{}, mkverr.NewFormatError("block", err)
	}
	rest := payload[trackNum.Width:]
	if len(rest) < 3 {
		return parsedBlock{}, mkverr.NewFormatError("block", fmt.Errorf("payload too short for timecode+flags"))
	}
	relTC := int16(uint16(rest[0])<<8 | uint16(rest[1]))
	flags := rest[2]
	body := rest[3:]

	pb := parsedBlock{
		trackNumber:      trackNum.Value,
		relativeTimecode: relTC,
		isKeyframe:       isSimpleBlock && flags&flagKeyframe != 0,
	}

	frames, err := decodeLacedFrames(body, flags&lacingMask, trackNum.Width+3)
	if err != nil {
		return parsedBlock{}, err
	}
	pb.frames = frames
	return pb, nil
}

// decodeLacedFrames decodes the frame ranges within body (the bytes after
// track number, timecode, and flags), per the lacing code. headerLen is
// added to every returned offset so callers can index the original block
// payload directly.
func decodeLacedFrames(body []byte, lacing byte, headerLen uint8) ([]blockFrame, error) {
	switch lacing {
	case lacingNone:
		return []blockFrame{{offset: int(headerLen), length: len(body)}}, nil

	case lacingXiph:
		return nil, mkverr.NewUnsupportedFeature("Xiph lacing")

	case lacingFixed:
		if len(body) < 1 {
			return nil, mkverr.NewFormatError("block", fmt.Errorf("fixed lacing: missing frame count byte"))
		}
		frameCount := int(body[0]) + 1
		remaining := body[1:]
		if frameCount <= 0 || len(remaining)%frameCount != 0 {
			return nil, mkverr.NewFormatError("block", fmt.Errorf("fixed lacing: %d bytes do not divide evenly by %d frames", len(remaining), frameCount))
		}
		size := len(remaining) / frameCount
		frames := make([]blockFrame, frameCount)
		offset := int(headerLen) + 1
		for i := 0; i < frameCount; i++ {
			frames[i] = blockFrame{offset: offset, length: size}
			offset += size
		}
		return frames, nil

	case lacingEBML:
		if len(body) < 1 {
			return nil, mkverr.NewFormatError("block", fmt.Errorf("EBML lacing: missing frame count byte"))
		}
		frameCount := int(body[0]) + 1
		cursor := body[1:]
		cursorOffset := int(headerLen) + 1

		sizes := make([]int, 0, frameCount)
		first, err := ebml.DecodeVInt(cursor, false, false)
		if err != nil {
			return nil, mkverr.NewFormatError("block", err)
		}
		sizes = append(sizes, int(first.Value))
		cursor = cursor[first.Width:]
		cursorOffset += int(first.Width)

		prev := int64(first.Value)
		for i := 1; i < frameCount-1; i++ {
			delta, err := ebml.DecodeVInt(cursor, false, true)
			if err != nil {
				return nil, mkverr.NewFormatError("block", err)
			}
			prev += int64(delta.Value)
			sizes = append(sizes, int(prev))
			cursor = cursor[delta.Width:]
			cursorOffset += int(delta.Width)
		}

		frames := make([]blockFrame, 0, frameCount)
		offset := cursorOffset
		for _, s := range sizes {
			frames = append(frames, blockFrame{offset: offset, length: s})
			offset += s
		}
		// Last frame's size is implied by whatever bytes remain.
		lastLen := len(cursor) - (offset - cursorOffset)
		if lastLen < 0 {
			return nil, mkverr.NewFormatError("block", fmt.Errorf("EBML lacing: declared sizes overrun block payload"))
		}
		frames = append(frames, blockFrame{offset: offset, length: lastLen})
		return frames, nil

	default:
		return nil, mkverr.NewFormatError("block", fmt.Errorf("unrecognized lacing code 0x%02x", lacing))
	}
}

// resolveDuration picks a frame duration from, in order: an explicit
// BlockDuration, then the track's DefaultDuration. A third fallback —
// the delta to the next block's timecode — needs sibling-block context
// and is left to the caller.
func resolveDuration(blockDuration *uint64, track *Track) *uint64 {
	if blockDuration != nil {
		return blockDuration
	}
	if track != nil && track.DefaultDurationNS != nil {
		// DefaultDuration is stored in nanoseconds; the caller converts
		// to ticks since only it knows TimecodeScale.
		v := *track.DefaultDurationNS
		return &v
	}
	return nil
}
