package ebml

import (
	"fmt"
	"math/bits"

	"github.com/limefrogyank/mkvdemux/pkg/mkverr"
)

// VInt is a decoded EBML variable-length integer: the value together with
// the number of bytes the encoding occupied. Width is always in 1..8; a
// first byte with no leading 1-bit is a format error (width 0).
type VInt struct {
	Value   uint64
	Width   uint8
	Unknown bool // set when decoding in value mode yields the all-ones sentinel
}

// widthOf returns the VINT width (1..8) announced by the position of the
// length-marker bit in the first byte.
func widthOf(first byte) (width uint8, err error) {
	// bits.LeadingZeros8 counts zero bits before the first 1; the VINT
	// width is that position plus one, same as "find the MSB 1-bit".
	lz := bits.LeadingZeros8(first)
	if lz >= 8 {
		return 0, mkverr.NewFormatError("vint", fmt.Errorf("no length marker bit in 0x%02x", first))
	}
	return uint8(lz + 1), nil
}

// DecodeVInt decodes one VINT from buf (which must hold at least Width
// bytes once the first byte is inspected). raw=true preserves the
// length-marker bit (used for element IDs); raw=false clears it (used for
// sizes and unsigned payloads). signed=true subtracts the VINT bias,
// 2^(7*width-1) - 1, from the cleared value; it is illegal to combine
// raw=true with signed=true.
//
// buf must contain at least one byte; DecodeVInt reports how many bytes of
// buf it consumed (equal to the returned VInt.Width) so callers can refetch
// more of buf if it was too short to hold the full encoding.
func DecodeVInt(buf []byte, raw, signed bool) (VInt, error) {
	if raw && signed {
		return VInt{}, mkverr.NewFormatError("vint", fmt.Errorf("raw and signed are mutually exclusive"))
	}
	if len(buf) == 0 {
		return VInt{}, mkverr.ErrNeedMoreData
	}
	width, err := widthOf(buf[0])
	if err != nil {
		return VInt{}, err
	}
	if int(width) > len(buf) {
		return VInt{}, mkverr.ErrNeedMoreData
	}

	var v uint64
	for i := uint8(0); i < width; i++ {
		v = v<<8 | uint64(buf[i])
	}

	if !raw {
		// Clear the length-marker bit, which sits at bit position
		// 7*width within the big-endian value we just assembled (bit
		// 8-width of the first byte).
		v &^= uint64(1) << (7 * uint(width))
	}

	allOnes := (uint64(1) << (7 * uint(width))) - 1

	if signed {
		bias := (uint64(1) << (7*uint(width) - 1)) - 1
		sv := int64(v) - int64(bias)
		return VInt{Value: uint64(sv), Width: width}, nil
	}

	if !raw && v == allOnes {
		return VInt{Value: v, Width: width, Unknown: true}, nil
	}
	return VInt{Value: v, Width: width}, nil
}

// EncodeVInt encodes value using the smallest width that fits, or width if
// width > 0 forces a specific encoding length (width must still be able to
// hold value). Used by the round-trip property test and by callers that
// need to re-serialize a SeekPosition-style value at a fixed width.
func EncodeVInt(value uint64, width uint8) ([]byte, error) {
	if width == 0 {
		for w := uint8(1); w <= 8; w++ {
			max := (uint64(1) << (7 * uint(w))) - 2 // leave room for the marker bit, exclude all-ones sentinel
			if value <= max {
				width = w
				break
			}
		}
		if width == 0 {
			return nil, mkverr.NewFormatError("vint", fmt.Errorf("value %d too large for any VINT width", value))
		}
	}
	marker := uint64(1) << (7 * uint(width))
	if value >= marker {
		return nil, mkverr.NewFormatError("vint", fmt.Errorf("value %d does not fit in width %d", value, width))
	}
	v := value | marker
	buf := make([]byte, width)
	for i := int(width) - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf, nil
}
