package ebml

import (
	"fmt"

	"github.com/limefrogyank/mkvdemux/pkg/mkverr"
)

// ElementHeader is the (id, size, header_bytes) triple every EBML element
// begins with. Unknown reports the EBML "unknown length" sentinel, used by
// Segment and Cluster when their true size could not be known at mux time.
type ElementHeader struct {
	ID          uint32
	Size        uint64
	HeaderBytes uint8
	Unknown     bool
}

// ReadElementHeader reads one element header (an id VINT in raw mode
// followed by a size VINT in value mode) from the front of data. It
// returns mkverr.ErrNeedMoreData if data is too short to contain a
// complete header; callers should request more bytes and retry without
// having consumed anything, since ReadElementHeader never mutates its
// input.
func ReadElementHeader(data []byte) (ElementHeader, error) {
	id, err := DecodeVInt(data, true, false)
	if err != nil {
		return ElementHeader{}, err
	}
	if int(id.Width) >= len(data) {
		return ElementHeader{}, mkverr.ErrNeedMoreData
	}
	size, err := DecodeVInt(data[id.Width:], false, false)
	if err != nil {
		return ElementHeader{}, err
	}
	return ElementHeader{
		ID:          uint32(id.Value),
		Size:        size.Value,
		HeaderBytes: id.Width + size.Width,
		Unknown:     size.Unknown,
	}, nil
}

// Node is a parsed EBML element: a MASTER carries Children, a leaf carries
// its raw payload Bytes for the caller to decode via the Decode* helpers.
// Binary is returned for any element id the schema table does not
// recognize, so unrecognized ids never abort parsing.
type Node struct {
	ID          uint32
	Name        string
	Kind        NodeType
	Size        uint64
	HeaderBytes uint8
	Children    []Node
	Bytes       []byte
}

// ReadTree recursively parses the children of a bounded master element
// whose payload occupies exactly data[:totalSize]. The caller (the
// streaming controller) must already have confirmed that many bytes are
// present in the read window; ReadTree itself never asks for more.
//
// A child whose declared size would overrun the remaining totalSize
// budget, or whose size is the EBML "unknown length" sentinel while its
// parent is bounded, is malformed: per the container specification this
// truncates the containing master defensively rather than aborting the
// whole parse. In that case ReadTree returns the children successfully
// parsed so far alongside a recoverable *mkverr.FormatError; the caller
// should log it and continue at the grandparent.
func ReadTree(data []byte, totalSize uint64) ([]Node, error) {
	var children []Node
	var consumed uint64

	for consumed < totalSize {
		remain := data[consumed:]
		hdr, err := ReadElementHeader(remain)
		if err != nil {
			// A malformed VINT this deep inside an already-bounded span
			// is truncation, not a request for more data: there is
			// nothing more to request.
			return children, mkverr.NewFormatError("read_tree", err)
		}

		childSpan := uint64(hdr.HeaderBytes) + hdr.Size
		budget := totalSize - consumed

		if hdr.Unknown {
			return children, mkverr.NewFormatError("read_tree",
				fmt.Errorf("unknown-length element 0x%X inside bounded master", hdr.ID))
		}
		if uint64(hdr.HeaderBytes) > budget || childSpan > budget {
			return children, mkverr.NewFormatError("read_tree",
				fmt.Errorf("element 0x%X size %d overruns remaining budget %d", hdr.ID, hdr.Size, budget))
		}

		entry := Lookup(hdr.ID)
		node := Node{ID: hdr.ID, Name: entry.Name, Size: hdr.Size, HeaderBytes: hdr.HeaderBytes}

		switch entry.Type {
		case TypeMaster:
			node.Kind = TypeMaster
			childData := remain[hdr.HeaderBytes : uint64(hdr.HeaderBytes)+hdr.Size]
			grandchildren, cerr := ReadTree(childData, hdr.Size)
			node.Children = grandchildren
			children = append(children, node)
			if cerr != nil {
				if !mkverr.IsRecoverable(cerr) {
					return children, cerr
				}
				// Recoverable: the sub-master was truncated but the
				// sibling stream continues undisturbed, since childSpan
				// bytes were still fully accounted for above.
			}
			consumed += childSpan
		case TypeStreamed:
			// Segment/Cluster never appear nested this way in practice
			// (the streaming controller handles them directly), but
			// record them as an empty marker rather than recursing.
			node.Kind = TypeStreamed
			children = append(children, node)
			consumed += childSpan
		default:
			kind := entry.Type
			if kind == TypeUnknown {
				kind = TypeBinary
			}
			node.Kind = kind
			node.Bytes = remain[hdr.HeaderBytes : uint64(hdr.HeaderBytes)+hdr.Size]
			children = append(children, node)
			consumed += childSpan
		}
	}

	return children, nil
}
