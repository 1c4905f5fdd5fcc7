package ebml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup_KnownElements(t *testing.T) {
	cases := []struct {
		id   uint32
		name string
		typ  NodeType
	}{
		{0x1A45DFA3, "EBML", TypeMaster},
		{0x18538067, "Segment", TypeStreamed},
		{0x1F43B675, "Cluster", TypeStreamed},
		{0xA3, "SimpleBlock", TypeBinary},
		{0xAE, "TrackEntry", TypeMaster},
		{0x2AD7B1, "TimecodeScale", TypeUnsigned},
		{0xB5, "SamplingFrequency", TypeFloat},
		{0x86, "CodecID", TypeTextASCII},
	}
	for _, c := range cases {
		e := Lookup(c.id)
		assert.Equal(t, c.name, e.Name)
		assert.Equal(t, c.typ, e.Type)
	}
}

func TestLookup_UnknownIDDoesNotAbort(t *testing.T) {
	e := Lookup(0xDEADBEEF)
	assert.Equal(t, TypeUnknown, e.Type)
	assert.Equal(t, "Unknown", e.Name)
}
