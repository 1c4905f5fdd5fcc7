// Package diag provides an optional resident-memory watchdog for the
// demuxer engine, using gopsutil/v3 to sample the current process's RSS
// rather than a filesystem's free space, since a long-lived Controller
// growing its read window or frame staging buffer without bound is the
// failure mode worth guarding against here.
package diag

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/limefrogyank/mkvdemux/internal/logx"
)

// Watchdog samples the current process's RSS on every Sample call and
// logs a warning once it crosses maxRSSBytes; it satisfies mkv.Monitor.
// Sampling is throttled to at most once per interval so a hot NextFrame
// loop calling Sample on every frame does not turn into a syscall per
// frame.
type Watchdog struct {
	proc        *process.Process
	maxRSSBytes uint64
	interval    time.Duration
	log         logx.Logger

	lastSampleUnixNano int64
	tripped            int32
}

// NewWatchdog constructs a Watchdog for the current process. maxRSSBytes
// <= 0 disables the threshold warning (Sample still updates timing state,
// useful for tests that just want to exercise the code path).
func NewWatchdog(maxRSSBytes uint64, interval time.Duration, log logx.Logger) (*Watchdog, error) {
	if log == nil {
		log = logx.Discard
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("diag: resolving self process: %w", err)
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watchdog{proc: p, maxRSSBytes: maxRSSBytes, interval: interval, log: log}, nil
}

// Sample is called from the controller's fetch loop with a short label
// describing what just happened (the controller passes "fetch"). It is a no-op
// unless at least one interval has elapsed since the last sample.
func (w *Watchdog) Sample(label string) {
	now := time.Now().UnixNano()
	last := atomic.LoadInt64(&w.lastSampleUnixNano)
	if now-last < w.interval.Nanoseconds() {
		return
	}
	if !atomic.CompareAndSwapInt64(&w.lastSampleUnixNano, last, now) {
		return // another goroutine's sample won the race
	}

	info, err := w.proc.MemoryInfo()
	if err != nil {
		w.log.Warn("diag: reading process memory info failed", "err", err.Error())
		return
	}
	if w.maxRSSBytes > 0 && info.RSS > w.maxRSSBytes {
		if atomic.CompareAndSwapInt32(&w.tripped, 0, 1) {
			w.log.Warn("diag: resident set size exceeds configured threshold",
				"rss_bytes", info.RSS, "threshold_bytes", w.maxRSSBytes, "at", label)
		}
	} else {
		atomic.StoreInt32(&w.tripped, 0)
	}
}

// RSSBytes fetches and returns the process's current RSS; it does not
// reuse the value read by Sample.
func (w *Watchdog) RSSBytes() (uint64, error) {
	info, err := w.proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("diag: reading process memory info: %w", err)
	}
	return info.RSS, nil
}
