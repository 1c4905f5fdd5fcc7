// Package mpeg1audio parses the 4-byte MPEG-1 audio frame header (layers
// I/II/III), the same bitfield layout wnielson-go-mediainfo's
// parseMPEGAudioHeader decodes, extended here with the fields that parser
// drops (protection bit, mode extension, copyright/original/emphasis)
// since this package's frame header is a first-class parsed type rather
// than an intermediate used only to compute a display bitrate.
package mpeg1audio

import "fmt"

// FrameHeader is the decoded 4-byte MPEG-1 audio frame header.
type FrameHeader struct {
	VersionID         byte // 0b11 = MPEG-1 (the only version this package targets)
	Layer             int  // 1, 2, or 3
	ProtectionAbsent  bool
	BitrateIndex      byte
	BitrateKbps       int
	SamplingFreqIndex byte
	SamplingFreqHz    int
	Padding           bool
	Mode              byte // 0=stereo 1=joint-stereo 2=dual-channel 3=mono
	ModeExtension     byte
	Copyright         bool
	Original          bool
	Emphasis          byte

	FrameLengthBytes int
}

var layerTable = map[byte]int{0x03: 1, 0x02: 2, 0x01: 3}

var samplingFreqTable = map[byte]int{0x00: 44100, 0x01: 48000, 0x02: 32000}

// ParseFrameHeader decodes the 4-byte frame header at the front of b. It
// returns an error if the sync word is missing, the version is not
// MPEG-1, the layer, bitrate index or sampling frequency uses a reserved
// value, or b is shorter than 4 bytes; the reserved emphasis value is not
// rejected, and it does not verify the CRC that follows when
// ProtectionAbsent is false.
func ParseFrameHeader(b []byte) (FrameHeader, error) {
	if len(b) < 4 {
		return FrameHeader{}, fmt.Errorf("mpeg1audio: header needs 4 bytes, have %d", len(b))
	}
	if b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return FrameHeader{}, fmt.Errorf("mpeg1audio: sync word not found")
	}

	versionID := (b[1] >> 3) & 0x03
	if versionID != 0x03 {
		return FrameHeader{}, fmt.Errorf("mpeg1audio: not MPEG-1 (version id 0x%X)", versionID)
	}
	layerID := (b[1] >> 1) & 0x03
	layer, ok := layerTable[layerID]
	if !ok {
		return FrameHeader{}, fmt.Errorf("mpeg1audio: reserved layer code")
	}

	h := FrameHeader{
		VersionID:        versionID,
		Layer:            layer,
		ProtectionAbsent: b[1]&0x01 != 0,
	}

	h.BitrateIndex = (b[2] >> 4) & 0x0F
	if h.BitrateIndex == 0x00 || h.BitrateIndex == 0x0F {
		return FrameHeader{}, fmt.Errorf("mpeg1audio: invalid bitrate index 0x%X", h.BitrateIndex)
	}
	h.BitrateKbps = bitrateKbps(layer, h.BitrateIndex)
	if h.BitrateKbps == 0 {
		return FrameHeader{}, fmt.Errorf("mpeg1audio: unresolvable bitrate for layer %d index 0x%X", layer, h.BitrateIndex)
	}

	h.SamplingFreqIndex = (b[2] >> 2) & 0x03
	freq, ok := samplingFreqTable[h.SamplingFreqIndex]
	if !ok {
		return FrameHeader{}, fmt.Errorf("mpeg1audio: reserved sampling frequency index")
	}
	h.SamplingFreqHz = freq

	h.Padding = (b[2]>>1)&0x01 != 0
	h.Mode = (b[3] >> 6) & 0x03
	h.ModeExtension = (b[3] >> 4) & 0x03
	h.Copyright = b[3]&0x08 != 0
	h.Original = b[3]&0x04 != 0
	h.Emphasis = b[3] & 0x03

	h.FrameLengthBytes = frameLengthBytes(h)
	return h, nil
}

// bitrateKbps is MPEG-1's bitrate table (ISO/IEC 11172-3 table B.1),
// restricted to the version this package parses.
func bitrateKbps(layer int, index byte) int {
	var rates []int
	switch layer {
	case 1:
		rates = []int{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448}
	case 2:
		rates = []int{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384}
	case 3:
		rates = []int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
	default:
		return 0
	}
	idx := int(index)
	if idx < 0 || idx >= len(rates) {
		return 0
	}
	return rates[idx]
}

// frameLengthBytes applies the standard per-layer frame size formula.
func frameLengthBytes(h FrameHeader) int {
	pad := 0
	if h.Padding {
		pad = 1
	}
	switch h.Layer {
	case 1:
		return ((12000*h.BitrateKbps)/h.SamplingFreqHz + pad) * 4
	case 2, 3:
		return (144000*h.BitrateKbps)/h.SamplingFreqHz + pad
	default:
		return 0
	}
}
