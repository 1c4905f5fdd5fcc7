package mkv

import "github.com/limefrogyank/mkvdemux/pkg/mkverr"

// DefaultRingCapacity is the default number of pending FrameDescriptors
// the ring holds before NextFrame has drained them; callers with
// pathologically large laced blocks can pass a larger capacity to
// NewController. Overflow is always reported rather than silently
// truncated.
const DefaultRingCapacity = 30

// frameRing is the bounded FIFO of pending FrameDescriptors the Cluster/
// Block framer fills and the streaming controller drains, one Cluster's
// worth of lacing at a time.
type frameRing struct {
	items    []FrameDescriptor
	capacity int
}

func newFrameRing(capacity int) *frameRing {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &frameRing{capacity: capacity}
}

// push appends fd to the back of the ring, returning
// mkverr.ErrRingCapacityExceeded instead of truncating when full.
func (r *frameRing) push(fd FrameDescriptor) error {
	if len(r.items) >= r.capacity {
		return mkverr.ErrRingCapacityExceeded
	}
	r.items = append(r.items, fd)
	return nil
}

// pop removes and returns the oldest descriptor, FIFO order.
func (r *frameRing) pop() (FrameDescriptor, bool) {
	if len(r.items) == 0 {
		return FrameDescriptor{}, false
	}
	fd := r.items[0]
	r.items = r.items[1:]
	return fd, true
}

func (r *frameRing) len() int { return len(r.items) }

func (r *frameRing) empty() bool { return len(r.items) == 0 }
