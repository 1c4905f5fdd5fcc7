package ebml

// NodeType classifies the semantic interpretation of an element's payload,
// mirroring the Matroska/EBML specification's element table. Streamed
// marks containers (Segment, Cluster) that L3's tree reader must not
// descend into — those are framed incrementally by the streaming
// controller and the Cluster/Block framer instead.
type NodeType uint8

const (
	TypeUnknown NodeType = iota
	TypeMaster
	TypeUnsigned
	TypeSigned
	TypeTextASCII
	TypeTextUTF8
	TypeBinary
	TypeFloat
	TypeDate
	TypeStreamed
)

// SchemaEntry is one row of the static element table: the id, its name for
// diagnostics, and its semantic type.
type SchemaEntry struct {
	ID   uint32
	Name string
	Type NodeType
}

// schemaTable is built once at package init and never mutated afterward,
// so lookups need no locking and no per-call allocation.
var schemaTable = map[uint32]SchemaEntry{}

func reg(id uint32, name string, typ NodeType) {
	schemaTable[id] = SchemaEntry{ID: id, Name: name, Type: typ}
}

func init() {
	// EBML header group.
	reg(0x1A45DFA3, "EBML", TypeMaster)
	reg(0x4286, "EBMLVersion", TypeUnsigned)
	reg(0x42F7, "EBMLReadVersion", TypeUnsigned)
	reg(0x42F2, "EBMLMaxIDLength", TypeUnsigned)
	reg(0x42F3, "EBMLMaxSizeLength", TypeUnsigned)
	reg(0x4282, "DocType", TypeTextASCII)
	reg(0x4287, "DocTypeVersion", TypeUnsigned)
	reg(0x4285, "DocTypeReadVersion", TypeUnsigned)
	reg(0xEC, "Void", TypeBinary)
	reg(0xBF, "CRC-32", TypeBinary)

	// Segment and SeekHead.
	reg(0x18538067, "Segment", TypeStreamed)
	reg(0x114D9B74, "SeekHead", TypeMaster)
	reg(0x4DBB, "Seek", TypeMaster)
	reg(0x53AB, "SeekID", TypeBinary)
	reg(0x53AC, "SeekPosition", TypeUnsigned)

	// Info.
	reg(0x1549A966, "Info", TypeMaster)
	reg(0x73A4, "SegmentUID", TypeBinary)
	reg(0x7384, "SegmentFilename", TypeTextUTF8)
	reg(0x2AD7B1, "TimecodeScale", TypeUnsigned)
	reg(0x4489, "Duration", TypeFloat)
	reg(0x4461, "DateUTC", TypeDate)
	reg(0x7BA9, "Title", TypeTextUTF8)
	reg(0x4D80, "MuxingApp", TypeTextUTF8)
	reg(0x5741, "WritingApp", TypeTextUTF8)

	// Cluster and Block framing (Cluster itself is not recursed into).
	reg(0x1F43B675, "Cluster", TypeStreamed)
	reg(0xE7, "Timecode", TypeUnsigned)
	reg(0xA7, "Position", TypeUnsigned)
	reg(0xAB, "PrevSize", TypeUnsigned)
	reg(0xA3, "SimpleBlock", TypeBinary)
	reg(0xA0, "BlockGroup", TypeMaster)
	reg(0xA1, "Block", TypeBinary)
	reg(0x75A1, "BlockAdditions", TypeMaster)
	reg(0xA6, "BlockMore", TypeMaster)
	reg(0xEE, "BlockAddID", TypeUnsigned)
	reg(0xA5, "BlockAdditional", TypeBinary)
	reg(0x9B, "BlockDuration", TypeUnsigned)
	reg(0xFA, "ReferencePriority", TypeUnsigned)
	reg(0xFB, "ReferenceBlock", TypeSigned)
	reg(0xA4, "CodecState", TypeBinary)
	reg(0x75A2, "DiscardPadding", TypeSigned)
	reg(0x8E, "Slices", TypeMaster)
	reg(0xE8, "TimeSlice", TypeMaster)
	reg(0xCC, "LaceNumber", TypeUnsigned)

	// Tracks.
	reg(0x1654AE6B, "Tracks", TypeMaster)
	reg(0xAE, "TrackEntry", TypeMaster)
	reg(0xD7, "TrackNumber", TypeUnsigned)
	reg(0x73C5, "TrackUID", TypeUnsigned)
	reg(0x83, "TrackType", TypeUnsigned)
	reg(0xB9, "FlagEnabled", TypeUnsigned)
	reg(0x88, "FlagDefault", TypeUnsigned)
	reg(0x55AA, "FlagForced", TypeUnsigned)
	reg(0x9C, "FlagLacing", TypeUnsigned)
	reg(0x6DE7, "MinCache", TypeUnsigned)
	reg(0x6DF8, "MaxCache", TypeUnsigned)
	reg(0x23E383, "DefaultDuration", TypeUnsigned)
	reg(0x234E7A, "DefaultDecodedFieldDuration", TypeUnsigned)
	reg(0x55EE, "MaxBlockAdditionID", TypeUnsigned)
	reg(0x536E, "Name", TypeTextUTF8)
	reg(0x22B59C, "Language", TypeTextASCII)
	reg(0x86, "CodecID", TypeTextASCII)
	reg(0x63A2, "CodecPrivate", TypeBinary)
	reg(0x258688, "CodecName", TypeTextUTF8)
	reg(0xAA, "CodecDecodeAll", TypeUnsigned)
	reg(0x6FAB, "TrackOverlay", TypeUnsigned)
	reg(0x56AA, "CodecDelay", TypeUnsigned)
	reg(0x56BB, "SeekPreRoll", TypeUnsigned)

	// Video sub-master.
	reg(0xE0, "Video", TypeMaster)
	reg(0x9A, "FlagInterlaced", TypeUnsigned)
	reg(0x53B8, "StereoMode", TypeUnsigned)
	reg(0x53C0, "AlphaMode", TypeUnsigned)
	reg(0xB0, "PixelWidth", TypeUnsigned)
	reg(0xBA, "PixelHeight", TypeUnsigned)
	reg(0x54AA, "PixelCropBottom", TypeUnsigned)
	reg(0x54BB, "PixelCropTop", TypeUnsigned)
	reg(0x54CC, "PixelCropLeft", TypeUnsigned)
	reg(0x54DD, "PixelCropRight", TypeUnsigned)
	reg(0x54B0, "DisplayWidth", TypeUnsigned)
	reg(0x54BA, "DisplayHeight", TypeUnsigned)
	reg(0x54B2, "DisplayUnit", TypeUnsigned)
	reg(0x54B3, "AspectRatioType", TypeUnsigned)
	reg(0x2EB524, "ColourSpace", TypeBinary)

	// Audio sub-master.
	reg(0xE1, "Audio", TypeMaster)
	reg(0xB5, "SamplingFrequency", TypeFloat)
	reg(0x78B5, "OutputSamplingFrequency", TypeFloat)
	reg(0x9F, "Channels", TypeUnsigned)
	reg(0x6264, "BitDepth", TypeUnsigned)

	// ContentEncodings skeleton (parsed as a generic tree, not modeled).
	reg(0x6D80, "ContentEncodings", TypeMaster)
	reg(0x6240, "ContentEncoding", TypeMaster)
	reg(0x5031, "ContentEncodingOrder", TypeUnsigned)
	reg(0x5032, "ContentEncodingScope", TypeUnsigned)
	reg(0x5033, "ContentEncodingType", TypeUnsigned)
	reg(0x5034, "ContentCompression", TypeMaster)
	reg(0x4254, "ContentCompAlgo", TypeUnsigned)
	reg(0x4255, "ContentCompSettings", TypeBinary)
	reg(0x5035, "ContentEncryption", TypeMaster)
	reg(0x47E1, "ContentEncAlgo", TypeUnsigned)
	reg(0x47E2, "ContentEncKeyID", TypeUnsigned)
	reg(0x47E3, "ContentSignature", TypeBinary)
	reg(0x47E4, "ContentSigKeyID", TypeBinary)
	reg(0x47E5, "ContentSigAlgo", TypeUnsigned)
	reg(0x47E6, "ContentSigHashAlgo", TypeUnsigned)

	// Cues.
	reg(0x1C53BB6B, "Cues", TypeMaster)
	reg(0xBB, "CuePoint", TypeMaster)
	reg(0xB3, "CueTime", TypeUnsigned)
	reg(0xB7, "CueTrackPositions", TypeMaster)
	reg(0xF7, "CueTrack", TypeUnsigned)
	reg(0xF1, "CueClusterPosition", TypeUnsigned)
	reg(0xF0, "CueRelativePosition", TypeUnsigned)
	reg(0xB2, "CueDuration", TypeUnsigned)
	reg(0x5378, "CueBlockNumber", TypeUnsigned)
	reg(0xEA, "CueCodecState", TypeUnsigned)
	reg(0xDB, "CueReference", TypeMaster)
	reg(0x96, "CueRefTime", TypeUnsigned)

	// Attachments/Chapters/Tags: recognized only enough to walk past them
	// as generic trees (Non-goal: full semantics are not modeled).
	reg(0x1941A469, "Attachments", TypeMaster)
	reg(0x61A7, "AttachedFile", TypeMaster)
	reg(0x1043A770, "Chapters", TypeMaster)
	reg(0x45B9, "EditionEntry", TypeMaster)
	reg(0xB6, "ChapterAtom", TypeMaster)
	reg(0x1254C367, "Tags", TypeMaster)
	reg(0x7373, "Tag", TypeMaster)
}

// Lookup returns the schema entry for id, or the zero-value entry with
// Type TypeUnknown if id is not recognized. Unknown IDs are not an error:
// the element reader treats them as opaque Binary of the declared size.
func Lookup(id uint32) SchemaEntry {
	if e, ok := schemaTable[id]; ok {
		return e
	}
	return SchemaEntry{ID: id, Name: "Unknown", Type: TypeUnknown}
}
