package mkv

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/limefrogyank/mkvdemux/internal/logx"
	"github.com/limefrogyank/mkvdemux/pkg/ebml"
	"github.com/limefrogyank/mkvdemux/pkg/mkverr"
)

// State is one node of the streaming controller's state machine:
//
//	Invalid -> Opening -> Stopped -> Started <-> Paused -> ShutDown
//
// Every exported method checks the current state before touching the
// window or byte source, returning mkverr.ErrInvalidState rather than
// silently no-opping on a call made from the wrong state.
type State int

const (
	StateInvalid State = iota
	StateOpening
	StateStopped
	StateStarted
	StatePaused
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "Invalid"
	case StateOpening:
		return "Opening"
	case StateStopped:
		return "Stopped"
	case StateStarted:
		return "Started"
	case StatePaused:
		return "Paused"
	case StateShutDown:
		return "ShutDown"
	default:
		return "Unknown"
	}
}

// Monitor is the narrow diagnostic hook the controller reports resource
// usage through; internal/diag.Watchdog satisfies it. Left nil, nothing
// is reported.
type Monitor interface {
	Sample(label string)
}

// Controller is the L7 streaming engine: it owns the read window, the
// byte source, the Model Builder, the frame descriptor ring, and the
// state machine that arbitrates Open/Start/Stop/Pause/SelectTrack/
// NextFrame/Shutdown per the consumer contract.
//
// Read and Seek on the ByteSource are the engine's only suspension
// points; every exported method that can block takes a context.Context so
// a caller can cancel a suspended call, which then returns
// mkverr.ErrCancelled and never receives that read's or seek's result.
type Controller struct {
	sessionID uuid.UUID
	log       logx.Logger
	monitor   Monitor

	source ByteSource
	window *ebml.Window

	// windowEndAbsPos is the absolute file offset one past the last byte
	// currently held in window, so element spans inside the window can
	// be related back to SeekPosition/CueClusterPosition values, which
	// are always relative to the first byte of the Segment's payload.
	windowEndAbsPos uint64

	state State

	builder *builder
	data    MasterData

	ring     *frameRing
	frameBuf []byte

	// currentClusterTimecode is the Segment-tick base of the Cluster
	// currently being framed; SimpleBlock/Block relative timecodes are
	// added to it to produce each FrameDescriptor's absolute timestamp.
	currentClusterTimecode int64
	clusterRemaining       uint64 // bytes of the current Cluster not yet consumed
	inCluster              bool
	// clusterUnknownLength is set when the current Cluster used the EBML
	// unknown-length sentinel; clusterRemaining is meaningless then, and
	// the Cluster's end is instead detected by peeking an element ID that
	// is not a recognized Cluster child.
	clusterUnknownLength bool

	eos bool

	// pendingTrackEOS lists track numbers still owed a synthetic
	// IsEndOfTrack descriptor once eos is set; NextFrame drains it one
	// at a time before finally returning mkverr.ErrEndOfStream.
	pendingTrackEOS []uint64
}

// NewController constructs a Controller over source, with an initial read
// window of readSize bytes (grown on demand by ebml.Window.Reserve) and a
// frame descriptor ring of the given capacity (DefaultRingCapacity if <=
// 0). The controller starts in StateInvalid; call Open to reach Stopped.
func NewController(source ByteSource, readSize, ringCapacity int, log logx.Logger, monitor Monitor) *Controller {
	if log == nil {
		log = logx.Discard
	}
	if readSize <= 0 {
		readSize = 64 * 1024
	}
	return &Controller{
		sessionID: uuid.New(),
		log:       log,
		monitor:   monitor,
		source:    source,
		window:    ebml.NewWindow(readSize),
		ring:      newFrameRing(ringCapacity),
		state:     StateInvalid,
	}
}

// SessionID returns the UUID assigned to this controller at construction.
// The controller's own log lines do not include it.
func (c *Controller) SessionID() uuid.UUID { return c.sessionID }

// State returns the controller's current state.
func (c *Controller) State() State { return c.state }

// MasterData returns the model collected during Open. Safe to read after
// Open succeeds; the controller never mutates it afterward.
func (c *Controller) MasterData() *MasterData { return &c.data }

func (c *Controller) requireState(allowed ...State) error {
	for _, s := range allowed {
		if c.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: in %s", mkverr.ErrInvalidState, c.state)
}

// fetchMore requests one more chunk from the byte source and blocks until
// it arrives, ctx is cancelled, or the source reports end of stream. It
// returns mkverr.ErrEndOfStream once the source yields N==0 with no
// error, which is the only way the opening/streaming loops recognize
// physical EOF.
func (c *Controller) fetchMore(ctx context.Context) error {
	c.window.Reserve(32 * 1024)
	dst := c.window.TailSpace()
	tag := nextTag()
	ch := c.source.Read(dst, tag)
	select {
	case <-ctx.Done():
		return mkverr.ErrCancelled
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		if res.N == 0 {
			return mkverr.ErrEndOfStream
		}
		c.window.MoveEnd(res.N)
		c.windowEndAbsPos += uint64(res.N)
		if c.monitor != nil {
			c.monitor.Sample("fetch")
		}
		return nil
	}
}

// consume advances the window past n bytes already parsed.
func (c *Controller) consume(n int) {
	_ = c.window.MoveStart(n)
}

// Open parses the EBML header, the Segment header, and walks top-level
// Segment children (SeekHead, Info, Tracks, Cues) until the Model
// Builder reports schema discovery satisfied or the first Cluster is
// reached. If Cues named by a SeekHead are still missing at that Cluster,
// it jumps to the SeekHead's Cues offset and back. Info and Tracks are
// not looked up through the SeekHead: if either is absent before the
// first Cluster, Open completes without it.
func (c *Controller) Open(ctx context.Context) error {
	if err := c.requireState(StateInvalid); err != nil {
		return err
	}
	c.state = StateOpening
	c.builder = newBuilder(c.log)

	if err := c.skipEBMLHeader(ctx); err != nil {
		return err
	}
	segmentPayloadOffset, err := c.readSegmentHeader(ctx)
	if err != nil {
		return err
	}
	c.data.SegmentPayloadOffset = segmentPayloadOffset

	if err := c.openLoop(ctx); err != nil {
		return err
	}

	// Merge in the builder's discovered model without clobbering the
	// fields openLoop maintains directly on c.data (the builder never
	// sets these itself).
	firstClusterOffset := c.data.FirstClusterOffset
	c.data = c.builder.data
	c.data.SegmentPayloadOffset = segmentPayloadOffset
	c.data.FirstClusterOffset = firstClusterOffset
	c.state = StateStopped
	return nil
}

// skipEBMLHeader consumes the leading EBML master element (magic
// 0x1A45DFA3) without validating DocType beyond what the schema table
// already encodes; this engine is permissive about DocType the way the
// container specification's Non-goals direct (no strict vs. webm
// distinction is enforced here).
func (c *Controller) skipEBMLHeader(ctx context.Context) error {
	for {
		hdr, err := ebml.ReadElementHeader(c.window.Data())
		if err == mkverr.ErrNeedMoreData {
			if ferr := c.fetchMore(ctx); ferr != nil {
				return ferr
			}
			continue
		}
		if err != nil {
			return err
		}
		if hdr.ID != 0x1A45DFA3 {
			return mkverr.NewFormatError("open", fmt.Errorf("expected EBML header, found element 0x%X", hdr.ID))
		}
		for uint64(c.window.Size()) < uint64(hdr.HeaderBytes)+hdr.Size {
			if ferr := c.fetchMore(ctx); ferr != nil {
				return ferr
			}
		}
		c.consume(int(hdr.HeaderBytes) + int(hdr.Size))
		return nil
	}
}

// readSegmentHeader consumes the Segment element's own header (it is
// TypeStreamed: its children are never read via ebml.ReadTree, only
// framed incrementally by openLoop/streamLoop) and returns the absolute
// file offset of the first byte of its payload.
func (c *Controller) readSegmentHeader(ctx context.Context) (uint64, error) {
	for {
		hdr, err := ebml.ReadElementHeader(c.window.Data())
		if err == mkverr.ErrNeedMoreData {
			if ferr := c.fetchMore(ctx); ferr != nil {
				return 0, ferr
			}
			continue
		}
		if err != nil {
			return 0, err
		}
		if hdr.ID != segmentStreamedID {
			return 0, mkverr.NewFormatError("open", fmt.Errorf("expected Segment, found element 0x%X", hdr.ID))
		}
		absOffset := c.windowEndAbsPos - uint64(c.window.Size()) + uint64(hdr.HeaderBytes)
		c.consume(int(hdr.HeaderBytes))
		return absOffset, nil
	}
}

const segmentStreamedID = 0x18538067
const clusterStreamedID = 0x1F43B675

// openLoop reads Segment-level children one at a time (SeekHead, Info,
// Tracks, Cues, Void, CRC-32), feeding every master it fully buffers to
// the builder, until the builder reports ready or a Cluster is reached
// (meaning whatever top-level masters precede the first Cluster is all
// there is). It records FirstClusterOffset the first time it sees one,
// and stops there even if the builder is not yet "ready" by the strict
// Cues-required check, since Cues may also follow the Clusters.
func (c *Controller) openLoop(ctx context.Context) error {
	seekHeadReferencesCues := false
	for {
		hdr, err := c.peekHeader(ctx)
		if err != nil {
			return err
		}

		if hdr.ID == clusterStreamedID {
			abs := c.absOffsetOfWindowStart()
			c.data.FirstClusterOffset = &abs
			if c.builder.ready(seekHeadReferencesCues) {
				return nil
			}
			// Cues (or another referenced master) is still missing and
			// a Cluster has been reached; try a SeekHead-directed jump
			// if one named an offset we have not visited, else accept
			// what we have and proceed without it. tryJumpToMissing
			// always restores the streaming position to FirstClusterOffset
			// itself before returning, whether or not Cues was found.
			if _, jerr := c.tryJumpToMissing(ctx, seekHeadReferencesCues); jerr != nil {
				return jerr
			}
			return nil
		}

		if err := c.ensureBuffered(ctx, hdr); err != nil {
			return err
		}
		children, rerr := ebml.ReadTree(c.window.Data()[hdr.HeaderBytes:], hdr.Size)
		if rerr != nil && !mkverr.IsRecoverable(rerr) {
			return rerr
		}
		node := ebml.Node{ID: hdr.ID, Size: hdr.Size, HeaderBytes: hdr.HeaderBytes, Children: children, Kind: ebml.TypeMaster}
		c.builder.dispatch(node)
		if hdr.ID == 0x114D9B74 {
			for _, e := range c.builder.data.SeekHead {
				if e.ElementID == 0x1C53BB6B {
					seekHeadReferencesCues = true
				}
			}
		}
		c.consume(int(hdr.HeaderBytes) + int(hdr.Size))

		if c.builder.ready(seekHeadReferencesCues) {
			return nil
		}
	}
}

// peekHeader reads (without consuming) the next element header at the
// front of the window, fetching more data as needed.
func (c *Controller) peekHeader(ctx context.Context) (ebml.ElementHeader, error) {
	for {
		hdr, err := ebml.ReadElementHeader(c.window.Data())
		if err == mkverr.ErrNeedMoreData {
			if ferr := c.fetchMore(ctx); ferr != nil {
				return ebml.ElementHeader{}, ferr
			}
			continue
		}
		return hdr, err
	}
}

// ensureBuffered blocks until the window holds all of hdr's declared
// span, growing the window as needed.
func (c *Controller) ensureBuffered(ctx context.Context, hdr ebml.ElementHeader) error {
	need := uint64(hdr.HeaderBytes) + hdr.Size
	for uint64(c.window.Size()) < need {
		if err := c.fetchMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

// absOffsetOfWindowStart returns the absolute file offset of the first
// byte currently held in the window.
func (c *Controller) absOffsetOfWindowStart() uint64 {
	return c.windowEndAbsPos - uint64(c.window.Size())
}

// tryJumpToMissing seeks to a SeekHead-named Cues offset when Cues are
// required but absent from what has been read so far. It reports false
// (no jump performed) when no such SeekHead entry exists, in which case
// the caller proceeds without Cues rather than failing Open outright.
// Whenever it does seek away from the first Cluster, it always restores
// the window there before returning, whether or not the target actually
// turned out to be Cues, since a caller completing Open must never be
// left parked somewhere other than the start of streaming.
func (c *Controller) tryJumpToMissing(ctx context.Context, seekHeadReferencesCues bool) (bool, error) {
	if !seekHeadReferencesCues || len(c.builder.data.Cues) > 0 {
		return false, nil
	}
	var target *SeekEntry
	for i, e := range c.builder.data.SeekHead {
		if e.ElementID == 0x1C53BB6B {
			target = &c.builder.data.SeekHead[i]
			break
		}
	}
	if target == nil {
		return false, nil
	}
	abs := c.data.SegmentPayloadOffset + target.SeekPosition
	if err := c.seekAbsolute(ctx, abs); err != nil {
		return false, err
	}
	found, err := c.readSeekTargetAsCues(ctx)
	if err != nil {
		return false, err
	}
	if rerr := c.seekAbsolute(ctx, *c.data.FirstClusterOffset); rerr != nil {
		return found, rerr
	}
	return found, nil
}

// readSeekTargetAsCues reads the element currently at the front of the
// window, which must already be positioned at a SeekHead-named offset,
// and dispatches it to the builder if and only if it is actually Cues.
func (c *Controller) readSeekTargetAsCues(ctx context.Context) (bool, error) {
	hdr, err := c.peekHeader(ctx)
	if err == mkverr.ErrEndOfStream {
		c.log.Warn("SeekHead Cues target lies past end of file; proceeding without Cues")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if hdr.ID != 0x1C53BB6B {
		// Stale or malformed SeekHead entry; give up on Cues rather
		// than fail the whole open.
		return false, nil
	}
	if err := c.ensureBuffered(ctx, hdr); err != nil {
		if err == mkverr.ErrEndOfStream {
			c.log.Warn("SeekHead Cues target truncated by end of file; proceeding without Cues")
			return false, nil
		}
		return false, err
	}
	children, rerr := ebml.ReadTree(c.window.Data()[hdr.HeaderBytes:], hdr.Size)
	if rerr != nil && !mkverr.IsRecoverable(rerr) {
		return false, rerr
	}
	c.builder.dispatch(ebml.Node{ID: hdr.ID, Size: hdr.Size, HeaderBytes: hdr.HeaderBytes, Children: children, Kind: ebml.TypeMaster})
	c.consume(int(hdr.HeaderBytes) + int(hdr.Size))
	return true, nil
}

// seekAbsolute discards the window and issues an absolute-offset Seek on
// the byte source, updating windowEndAbsPos to match.
func (c *Controller) seekAbsolute(ctx context.Context, abs uint64) error {
	ch := c.source.Seek(abs)
	select {
	case <-ctx.Done():
		return mkverr.ErrCancelled
	case err := <-ch:
		if err != nil {
			return err
		}
		c.window.Reset()
		c.windowEndAbsPos = abs
		return nil
	}
}

// Start transitions Stopped -> Started (or Paused -> Started), optionally
// seeking first. startTicks < 0 means "resume/start from wherever the
// window currently sits" (the first Cluster on a fresh Open); startTicks
// >= 0 performs a cue-based seek per FindSeekPoint's tie-break rule
// first. Calls run to completion in the order received; callers that
// want to debounce overlapping Start calls should cancel the context of
// a previous in-flight Start before issuing a new one.
func (c *Controller) Start(ctx context.Context, startTicks int64) error {
	if err := c.requireState(StateStopped, StatePaused); err != nil {
		return err
	}
	if startTicks >= 0 {
		cp, ok := c.data.FindSeekPoint(uint64(startTicks))
		if !ok {
			return mkverr.NewFormatError("start", fmt.Errorf("no CuePoint available for seek"))
		}
		var clusterOffset uint64
		found := false
		for _, pos := range cp.Positions {
			clusterOffset = pos.CueClusterPosition
			found = true
			break
		}
		if !found {
			return mkverr.NewFormatError("start", fmt.Errorf("CuePoint has no CueTrackPositions"))
		}
		abs := c.data.SegmentPayloadOffset + clusterOffset
		if err := c.seekAbsolute(ctx, abs); err != nil {
			return err
		}
		c.inCluster = false
		c.ring = newFrameRing(c.ring.capacity)
		c.eos = false
	} else if c.state == StateStopped && c.data.FirstClusterOffset != nil && c.window.Size() == 0 {
		if err := c.seekAbsolute(ctx, *c.data.FirstClusterOffset); err != nil {
			return err
		}
	}
	c.state = StateStarted
	return nil
}

// Stop transitions Started/Paused back to Stopped, discarding any
// buffered-but-undelivered frame descriptors and the read window (a
// subsequent Start always re-seeks).
func (c *Controller) Stop() error {
	if err := c.requireState(StateStarted, StatePaused); err != nil {
		return err
	}
	c.ring = newFrameRing(c.ring.capacity)
	c.inCluster = false
	c.eos = false
	c.state = StateStopped
	return nil
}

// Pause suspends frame delivery without discarding position: NextFrame
// returns mkverr.ErrInvalidState while paused, and a later Start resumes
// from exactly where framing left off.
func (c *Controller) Pause() error {
	if err := c.requireState(StateStarted); err != nil {
		return err
	}
	c.state = StatePaused
	return nil
}

// SelectTrack marks a track selected/deselected for frame delivery. Per
// the per-stream selection feature, NextFrame silently skips frames on
// deselected tracks rather than surfacing or buffering them.
func (c *Controller) SelectTrack(trackNumber uint64, selected bool) error {
	t := c.data.TrackByNumber(trackNumber)
	if t == nil {
		return mkverr.NewFormatError("select_track", fmt.Errorf("no track numbered %d", trackNumber))
	}
	t.Selected = selected
	return nil
}

// Shutdown tears the controller down permanently: it discards the window
// and closes the byte source. It does not touch the byte source's
// generation counter. Idempotent.
func (c *Controller) Shutdown() error {
	if c.state == StateShutDown {
		return nil
	}
	c.state = StateShutDown
	c.window.Reset()
	return c.source.Close()
}

// NextFrame drains one FrameDescriptor, parsing as much of the current
// Cluster as needed to produce one, skipping frames on deselected tracks
// and any BlockGroup ReferenceBlock bookkeeping it does not need for
// delivery. Once the byte source is exhausted it yields one synthetic
// IsEndOfTrack descriptor per selected track before finally returning
// mkverr.ErrEndOfStream.
func (c *Controller) NextFrame(ctx context.Context) (FrameDescriptor, error) {
	if err := c.requireState(StateStarted); err != nil {
		return FrameDescriptor{}, err
	}
	// The previous call's FrameDescriptor is only guaranteed valid until
	// this call per its contract, so the staging buffer can be reclaimed
	// now rather than growing for the life of the stream. Descriptors
	// still queued in the ring were produced in this same reset cycle
	// (one streamStep call never straddles a reset), so their offsets
	// stay correct.
	if c.ring.empty() {
		c.frameBuf = c.frameBuf[:0]
	}
	for {
		if fd, ok := c.ring.pop(); ok {
			if t := c.data.TrackByNumber(fd.TrackNumber); t == nil || t.Selected {
				return fd, nil
			}
			continue // deselected track: drop and keep draining
		}
		if c.eos {
			if len(c.pendingTrackEOS) > 0 {
				trackNumber := c.pendingTrackEOS[0]
				c.pendingTrackEOS = c.pendingTrackEOS[1:]
				return FrameDescriptor{TrackNumber: trackNumber, IsEndOfTrack: true}, nil
			}
			return FrameDescriptor{}, mkverr.ErrEndOfStream
		}
		if err := c.streamStep(ctx); err != nil {
			if err == mkverr.ErrEndOfStream {
				c.eos = true
				c.pendingTrackEOS = c.selectedTrackNumbers()
				continue
			}
			return FrameDescriptor{}, err
		}
	}
}

// FramePayload returns the frame staging buffer slice named by fd. Valid
// only until the next NextFrame call or state transition, per
// FrameDescriptor's contract.
func (c *Controller) FramePayload(fd FrameDescriptor) []byte {
	if fd.PayloadOffset < 0 || fd.PayloadOffset+fd.PayloadLen > len(c.frameBuf) {
		return nil
	}
	return c.frameBuf[fd.PayloadOffset : fd.PayloadOffset+fd.PayloadLen]
}

// selectedTrackNumbers lists the track numbers currently selected, in
// Tracks order, for the end-of-stream fan-out in NextFrame.
func (c *Controller) selectedTrackNumbers() []uint64 {
	var nums []uint64
	for _, t := range c.data.Tracks {
		if t.Selected {
			nums = append(nums, t.TrackNumber)
		}
	}
	return nums
}

// streamStep advances the streaming phase by exactly one Cluster child
// (or one new Cluster header), pushing any resulting frames onto the
// ring. It never blocks longer than one fetchMore call chain needs to
// buffer that one child.
func (c *Controller) streamStep(ctx context.Context) error {
	if !c.inCluster {
		hdr, err := c.peekHeader(ctx)
		if err != nil {
			return err
		}
		if hdr.ID != clusterStreamedID {
			// Void, CRC-32, or a Cues block interleaved between
			// Clusters: skip it as an opaque span.
			if err := c.ensureBuffered(ctx, hdr); err != nil {
				return err
			}
			c.consume(int(hdr.HeaderBytes) + int(hdr.Size))
			return nil
		}
		c.consume(int(hdr.HeaderBytes))
		c.inCluster = true
		c.clusterUnknownLength = hdr.Unknown
		if hdr.Unknown {
			c.clusterRemaining = 0
		} else {
			c.clusterRemaining = hdr.Size
		}
		return nil
	}

	if !c.clusterUnknownLength && c.clusterRemaining == 0 {
		c.inCluster = false
		return nil
	}

	hdr, err := c.peekHeader(ctx)
	if err != nil {
		return err
	}

	if c.clusterUnknownLength {
		if !isClusterChildID(hdr.ID) {
			// An element that is not a recognized Cluster child (a new
			// top-level Cluster, Cues, etc.) marks the end of this
			// open-ended Cluster. Leave it unconsumed so the next
			// streamStep call dispatches it as a fresh top-level
			// element instead of swallowing it as an opaque child or
			// tripping the overrun check below.
			c.inCluster = false
			c.clusterUnknownLength = false
			return nil
		}
	} else {
		span := uint64(hdr.HeaderBytes) + hdr.Size
		if span > c.clusterRemaining {
			// Malformed Cluster child overruns the Cluster's own declared
			// size: treat the rest of the Cluster as lost, matching the
			// recoverable-truncation stance used elsewhere for bounded
			// masters.
			c.log.Warn("cluster child overruns cluster size", "element", fmt.Sprintf("0x%X", hdr.ID))
			c.inCluster = false
			c.clusterRemaining = 0
			return nil
		}
	}
	if err := c.ensureBuffered(ctx, hdr); err != nil {
		return err
	}

	switch hdr.ID {
	case 0xE7: // Timecode
		c.currentClusterTimecode = int64(ebml.DecodeUnsigned(c.window.Data()[hdr.HeaderBytes : uint64(hdr.HeaderBytes)+hdr.Size]))
	case 0xA3: // SimpleBlock
		payload := c.window.Data()[hdr.HeaderBytes : uint64(hdr.HeaderBytes)+hdr.Size]
		if perr := c.emitBlock(payload, true, nil); perr != nil && mkverr.IsRecoverable(perr) {
			c.log.Warn("dropping malformed SimpleBlock", "err", perr.Error())
		} else if perr != nil {
			return perr
		}
	case 0xA0: // BlockGroup
		if perr := c.emitBlockGroup(c.window.Data()[hdr.HeaderBytes:uint64(hdr.HeaderBytes)+hdr.Size], hdr.Size); perr != nil && mkverr.IsRecoverable(perr) {
			c.log.Warn("dropping malformed BlockGroup", "err", perr.Error())
		} else if perr != nil {
			return perr
		}
	}

	c.consume(int(hdr.HeaderBytes) + int(hdr.Size))
	if !c.clusterUnknownLength {
		c.clusterRemaining -= uint64(hdr.HeaderBytes) + hdr.Size
	}
	return nil
}

// isClusterChildID reports whether id is a recognized child of Cluster
// (Timecode, SilentTracks, Position, PrevSize, SimpleBlock, BlockGroup,
// Void, CRC-32). Used to detect the end of an unknown-length Cluster,
// which carries no declared size to count down.
func isClusterChildID(id uint32) bool {
	switch id {
	case 0xE7, 0x5854, 0xA7, 0xAB, 0xA3, 0xA0, 0xEC, 0xBF:
		return true
	default:
		return false
	}
}

// emitBlockGroup decodes a BlockGroup's children (Block, BlockDuration,
// ReferenceBlock*) via ebml.ReadTree, since unlike SimpleBlock a
// BlockGroup is a proper bounded master, then emits its frames.
func (c *Controller) emitBlockGroup(data []byte, size uint64) error {
	children, err := ebml.ReadTree(data, size)
	if err != nil && !mkverr.IsRecoverable(err) {
		return err
	}
	var blockPayload []byte
	var blockDuration *uint64
	var refs []int64
	for _, c2 := range children {
		switch c2.ID {
		case 0xA1: // Block
			blockPayload = c2.Bytes
		case 0x9B: // BlockDuration
			v := ebml.DecodeUnsigned(c2.Bytes)
			blockDuration = &v
		case 0xFB: // ReferenceBlock
			v := ebml.DecodeSigned(c2.Bytes)
			refs = append(refs, v)
		}
	}
	if blockPayload == nil {
		return mkverr.NewFormatError("block_group", fmt.Errorf("BlockGroup missing Block child"))
	}
	return c.emitBlock(blockPayload, false, &blockGroupExtra{duration: blockDuration, refs: refs})
}

type blockGroupExtra struct {
	duration *uint64
	refs     []int64
}

// emitBlock parses payload as a Block/SimpleBlock, copies each laced
// sub-frame into the frame staging buffer, and pushes one FrameDescriptor
// per sub-frame onto the ring.
func (c *Controller) emitBlock(payload []byte, isSimpleBlock bool, extra *blockGroupExtra) error {
	pb, err := parseBlock(payload, isSimpleBlock)
	if err != nil {
		return err
	}
	track := c.data.TrackByNumber(pb.trackNumber)
	absTicks := c.currentClusterTimecode + int64(pb.relativeTimecode)

	// A BlockGroup carries no keyframe flag of its own; absence of any
	// ReferenceBlock child means the block references nothing earlier,
	// i.e. it's a keyframe.
	isKeyframe := pb.isKeyframe
	var refs []int64
	var blockDuration *uint64
	if extra != nil {
		isKeyframe = len(extra.refs) == 0
		refs = extra.refs
		blockDuration = extra.duration
	}

	// resolveDuration's fallback value is expressed in nanoseconds
	// (DefaultDuration's native unit); BlockDuration is already in
	// Segment ticks, so only the fallback path needs converting.
	durationTicks := blockDuration
	if durationTicks == nil {
		if fallback := resolveDuration(nil, track); fallback != nil {
			scaleNS := c.data.Info.TimecodeScaleNS
			if scaleNS == 0 {
				scaleNS = DefaultTimecodeScale
			}
			v := *fallback / scaleNS
			durationTicks = &v
		}
	}

	for _, f := range pb.frames {
		if f.offset < 0 || f.offset+f.length > len(payload) {
			return mkverr.NewFormatError("block", fmt.Errorf("laced frame range overruns block payload"))
		}
		offset := len(c.frameBuf)
		c.frameBuf = append(c.frameBuf, payload[f.offset:f.offset+f.length]...)
		fd := FrameDescriptor{
			TrackNumber:     pb.trackNumber,
			TimestampTicks:  absTicks,
			DurationTicks:   durationTicks,
			IsKeyframe:      isKeyframe,
			PayloadOffset:   offset,
			PayloadLen:      f.length,
			ReferencesTicks: refs,
		}
		if perr := c.ring.push(fd); perr != nil {
			return perr
		}
	}
	return nil
}
