package ebml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 5: reserve(n); reserve(n) allocates at most once, and
// move_start(k); move_end(k) leaves size unchanged.
func TestWindow_ReserveIdempotent(t *testing.T) {
	w := NewWindow(8)
	w.Reserve(4)
	capAfterFirst := cap(w.buf)
	w.Reserve(4)
	assert.Equal(t, capAfterFirst, cap(w.buf), "second reserve of the same size must not reallocate")
}

func TestWindow_MoveStartMoveEndPreservesSize(t *testing.T) {
	w := NewWindow(16)
	w.MoveEnd(6)
	require.Equal(t, 6, w.Size())

	require.NoError(t, w.MoveStart(2))
	w.MoveEnd(2)
	assert.Equal(t, 6, w.Size())
}

func TestWindow_ReserveCompactsBeforeGrowing(t *testing.T) {
	w := NewWindow(8)
	w.MoveEnd(8) // fill it entirely
	require.NoError(t, w.MoveStart(6))
	require.Equal(t, 2, w.Size())

	originalCap := cap(w.buf)
	w.Reserve(4) // 2 live bytes + 4 requested fits in 8 after compaction
	assert.Equal(t, originalCap, cap(w.buf), "compaction alone should have made room")
	assert.Equal(t, 0, w.begin)
}

func TestWindow_ReserveGrowsWhenCompactionInsufficient(t *testing.T) {
	w := NewWindow(4)
	w.MoveEnd(4)
	w.Reserve(8)
	assert.GreaterOrEqual(t, cap(w.buf), 12)
}

func TestWindow_MoveStartPastSizeFails(t *testing.T) {
	w := NewWindow(4)
	w.MoveEnd(2)
	assert.Error(t, w.MoveStart(3))
}

func TestWindow_DataReflectsLiveRegion(t *testing.T) {
	w := NewWindow(8)
	copy(w.TailSpace(), []byte{1, 2, 3})
	w.MoveEnd(3)
	require.NoError(t, w.MoveStart(1))
	assert.Equal(t, []byte{2, 3}, w.Data())
}
