package ebml

import (
	"math"
	"time"
)

// matroskaEpoch is 2001-01-01T00:00:00 UTC, the reference point for the
// Date element type (a signed 64-bit nanosecond offset from it).
var matroskaEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// DecodeUnsigned reads an unsigned big-endian integer of len(b) bytes,
// b in [0..8]; a zero-length element decodes to 0.
func DecodeUnsigned(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// DecodeSigned reads a big-endian two's-complement integer of len(b)
// bytes with sign extension from the most significant bit.
func DecodeSigned(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	v := DecodeUnsigned(b)
	bits := uint(len(b)) * 8
	// Sign-extend: shift the value into the top of a 64-bit word and
	// perform an arithmetic right shift back down.
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

// DecodeFloat reads an IEEE-754 big-endian float of 4 or 8 bytes. Any
// other width is not valid Matroska and is recovered as 0 with ok=false
// so the caller can log a diagnostic without aborting the parse.
func DecodeFloat(b []byte) (value float64, ok bool) {
	switch len(b) {
	case 4:
		bits := uint32(DecodeUnsigned(b))
		return float64(math.Float32frombits(bits)), true
	case 8:
		bits := DecodeUnsigned(b)
		return math.Float64frombits(bits), true
	default:
		return 0, false
	}
}

// DecodeTextASCII / DecodeTextUTF8 return the payload with trailing NUL
// bytes trimmed. UTF-8 validity is never checked; invalid sequences pass
// through unmodified.
func DecodeTextASCII(b []byte) string { return trimTrailingNUL(b) }
func DecodeTextUTF8(b []byte) string  { return trimTrailingNUL(b) }

func trimTrailingNUL(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// DecodeDate reads a Date element: nanoseconds signed-offset from
// 2001-01-01T00:00:00 UTC.
func DecodeDate(b []byte) time.Time {
	ns := DecodeSigned(b)
	return matroskaEpoch.Add(time.Duration(ns))
}
