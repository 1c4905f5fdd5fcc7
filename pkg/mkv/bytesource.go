package mkv

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/limefrogyank/mkvdemux/pkg/mkverr"
)

// Capabilities describes what a ByteSource supports. The controller
// requires both to be true.
type Capabilities struct {
	Readable bool
	Seekable bool
}

// ReadResult is what a ByteSource delivers for one outstanding Read: the
// byte count actually read, the tag the caller supplied (so stale results
// can be told apart from current ones after a seek or shutdown bumps the
// controller's restart counter), and any error. N == 0 with a nil error
// signals EOS.
type ReadResult struct {
	N   int
	Tag uint64
	Err error
}

// ByteSource is the external collaborator the engine pulls bytes from.
// Read and Seek are the only two suspension points in the whole engine;
// both are asynchronous, delivering their outcome on the returned
// channel exactly once.
type ByteSource interface {
	Capabilities() Capabilities
	Read(dst []byte, tag uint64) <-chan ReadResult
	Seek(absOffset uint64) <-chan error
	CurrentPosition() uint64
	Close() error
}

// FileByteSource adapts an io.ReadSeekCloser (typically an *os.File) to
// ByteSource. Each Read and Seek runs on its own goroutine, serialized by
// a mutex, so that a Seek that takes the lock before a pending Read
// cancels that stale read via the generation counter below.
type FileByteSource struct {
	mu         sync.Mutex
	r          io.ReadSeekCloser
	pos        uint64
	generation uint64 // bumped by Seek; in-flight reads from an older generation are discarded
}

// NewFileByteSource wraps r. r must support both reading and seeking.
func NewFileByteSource(r io.ReadSeekCloser) *FileByteSource {
	return &FileByteSource{r: r}
}

func (f *FileByteSource) Capabilities() Capabilities {
	return Capabilities{Readable: true, Seekable: true}
}

func (f *FileByteSource) CurrentPosition() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *FileByteSource) Read(dst []byte, tag uint64) <-chan ReadResult {
	out := make(chan ReadResult, 1)
	f.mu.Lock()
	gen := f.generation
	f.mu.Unlock()

	go func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.generation != gen {
			out <- ReadResult{Tag: tag, Err: mkverr.ErrCancelled}
			return
		}
		n, err := f.r.Read(dst)
		if err == io.EOF {
			out <- ReadResult{N: n, Tag: tag}
			return
		}
		if err != nil {
			out <- ReadResult{Tag: tag, Err: mkverr.NewIOError(err)}
			return
		}
		f.pos += uint64(n)
		out <- ReadResult{N: n, Tag: tag}
	}()
	return out
}

func (f *FileByteSource) Seek(absOffset uint64) <-chan error {
	out := make(chan error, 1)
	go func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.generation++ // cancels any in-flight reads still holding the old generation
		_, err := f.r.Seek(int64(absOffset), io.SeekStart)
		if err != nil {
			out <- mkverr.NewIOError(err)
			return
		}
		f.pos = absOffset
		out <- nil
	}()
	return out
}

func (f *FileByteSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r.Close()
}

// tagCounter backs nextTag, a package-level monotonic counter Controller
// uses to tag each outstanding Read. The controller waits on each read's
// own channel and never compares tags; a read abandoned because its
// context was cancelled is simply never received.
var tagCounter uint64

func nextTag() uint64 { return atomic.AddUint64(&tagCounter, 1) }
