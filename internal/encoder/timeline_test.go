package encoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimelinePlace(t *testing.T) {
	tl := NewTimeline(10, 300)
	base := int64(5 * time.Second)
	ms := int64(time.Millisecond)

	place := func(ts int64) [2]interface{} {
		r, w := tl.Place(ts)
		return [2]interface{}{r, w}
	}

	assert.Equal(t, [2]interface{}{0, true}, place(base), "first frame defines time zero")
	assert.Equal(t, [2]interface{}{0, true}, place(base+100*ms))
	assert.Equal(t, [2]interface{}{0, false}, place(base+120*ms), "same slot is dropped")
	assert.Equal(t, [2]interface{}{2, true}, place(base+400*ms), "gap is filled")
	assert.Equal(t, [2]interface{}{0, false}, place(base+350*ms), "late frame is dropped")
	assert.Equal(t, [2]interface{}{0, false}, place(base-ms), "before origin is dropped")

	origin, ok := tl.Origin()
	assert.True(t, ok)
	assert.Equal(t, base, origin)
}

func TestTimelineCapsGap(t *testing.T) {
	tl := NewTimeline(10, 3)
	tl.Place(0)
	repeats, write := tl.Place(int64(time.Second))
	assert.True(t, write)
	assert.Equal(t, 3, repeats)

	// Slot accounting continues from the real timestamp
	repeats, write = tl.Place(int64(time.Second) + int64(100*time.Millisecond))
	assert.True(t, write)
	assert.Equal(t, 0, repeats)
}

func TestNewTimelineDefaults(t *testing.T) {
	tl := NewTimeline(0, -1)
	assert.Equal(t, int64(30), tl.fps)
	assert.Equal(t, 0, tl.maxGap)
}
