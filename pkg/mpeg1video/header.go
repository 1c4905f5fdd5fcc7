// Package mpeg1video parses the MPEG-1 video sequence header: the
// byte layout a CodecPrivate blob or the first bytes of an MPEG-1 video
// track's frames carry, independent of any container. Field extraction
// follows the same start-code-and-bitfield style wnielson-go-mediainfo's
// MPEG-2 parser uses, narrowed to the sequence_header() fields MPEG-1
// actually defines.
package mpeg1video

import "fmt"

// sequenceHeaderStartCode is the 4-byte start code a sequence_header()
// begins with: 00 00 01 B3.
var sequenceHeaderStartCode = [4]byte{0x00, 0x00, 0x01, 0xB3}

// AspectRatio and FrameRate are the two 4-bit coded fields sequence_header
// carries; the tables below are the MPEG-1 constants (ISO/IEC 11172-2
// table 6-3/6-4), not configurable.
var aspectRatioTable = map[byte]string{
	0x1: "1.0000",
	0x2: "0.6735",
	0x3: "0.7031",
	0x4: "0.7615",
	0x5: "0.8055",
	0x6: "0.8437",
	0x7: "0.8935",
	0x8: "0.9157",
	0x9: "0.9815",
	0xA: "1.0255",
	0xB: "1.0695",
	0xC: "1.0950",
	0xD: "1.1575",
	0xE: "1.2015",
}

var frameRateTable = map[byte]float64{
	0x1: 23.976,
	0x2: 24,
	0x3: 25,
	0x4: 29.97,
	0x5: 30,
	0x6: 50,
	0x7: 59.94,
	0x8: 60,
}

// SequenceHeader is the decoded sequence_header() structure.
type SequenceHeader struct {
	Width                    int
	Height                   int
	AspectRatioCode          byte
	AspectRatio              string
	FrameRateCode            byte
	FrameRate                float64
	BitRateValue             int // in units of 400 bits/sec, 0x3FFFF means variable
	VBVBufferSizeValue       int // in units of 16,384 bits (2 KiB)
	ConstrainedParamsFlag    bool
	HasIntraQuantMatrix      bool
	IntraQuantMatrix         [64]byte
	HasNonIntraQuantMatrix   bool
	NonIntraQuantMatrix      [64]byte
}

// ParseSequenceHeader decodes b as an MPEG-1 sequence_header(), starting
// at the 00 00 01 B3 start code (b may have leading bytes before it; the
// start code is located first). It returns an error if the start code is
// absent or b is too short to hold the fixed-size fields.
func ParseSequenceHeader(b []byte) (SequenceHeader, error) {
	idx := indexStartCode(b)
	if idx < 0 {
		return SequenceHeader{}, fmt.Errorf("mpeg1video: sequence_header start code not found")
	}
	b = b[idx+4:]
	if len(b) < 8 {
		return SequenceHeader{}, fmt.Errorf("mpeg1video: truncated sequence_header, need 8 bytes, have %d", len(b))
	}

	h := SequenceHeader{}
	h.Width = int(b[0])<<4 | int(b[1])>>4
	h.Height = int(b[1]&0x0F)<<8 | int(b[2])
	h.AspectRatioCode = b[3] >> 4
	h.AspectRatio = aspectRatioTable[h.AspectRatioCode]
	h.FrameRateCode = b[3] & 0x0F
	h.FrameRate = frameRateTable[h.FrameRateCode]

	bitRate := int(b[4])<<10 | int(b[5])<<2 | int(b[6])>>6
	h.BitRateValue = bitRate

	// marker_bit (1), vbv_buffer_size_value (10 bits), constrained_parameters_flag (1 bit)
	vbv := (int(b[6]&0x1F) << 5) | int(b[7]>>3)
	h.VBVBufferSizeValue = vbv
	h.ConstrainedParamsFlag = b[7]&0x04 != 0

	rest := b[8:]
	if b[7]&0x02 != 0 { // load_intra_quantizer_matrix
		if len(rest) < 64 {
			return h, fmt.Errorf("mpeg1video: truncated intra_quantizer_matrix")
		}
		h.HasIntraQuantMatrix = true
		copy(h.IntraQuantMatrix[:], rest[:64])
		rest = rest[64:]
	}
	if len(rest) >= 1 {
		// load_non_intra_quantizer_matrix is the next single bit; since
		// it does not byte-align with what preceded it when no intra
		// matrix was present, only the byte-aligned case (intra matrix
		// present, or none of either) is decoded here. A misaligned
		// non-intra-only matrix is left undecoded rather than guessed.
		if h.HasIntraQuantMatrix && rest[0]&0x80 != 0 && len(rest) >= 65 {
			h.HasNonIntraQuantMatrix = true
			copy(h.NonIntraQuantMatrix[:], rest[1:65])
		}
	}
	return h, nil
}

func indexStartCode(b []byte) int {
	for i := 0; i+4 <= len(b); i++ {
		if b[i] == sequenceHeaderStartCode[0] && b[i+1] == sequenceHeaderStartCode[1] &&
			b[i+2] == sequenceHeaderStartCode[2] && b[i+3] == sequenceHeaderStartCode[3] {
			return i
		}
	}
	return -1
}
