package encoder

const nanosPerSecond = int64(1_000_000_000)

// Timeline maps presentation timestamps onto constant-rate output slots.
// The first frame fixes time zero.
type Timeline struct {
	fps     int64
	maxGap  int
	started bool
	origin  int64
	next    int64
}

// NewTimeline creates a timeline emitting fps frames per second. Gaps longer
// than maxGap slots are shortened to maxGap repeats.
func NewTimeline(fps, maxGap int) *Timeline {
	if fps <= 0 {
		fps = 30
	}
	if maxGap < 0 {
		maxGap = 0
	}
	return &Timeline{fps: int64(fps), maxGap: maxGap}
}

// Place decides what to emit for a frame displayed at ts nanoseconds.
// repeats is the number of copies of the previous frame to write first;
// write is false when the frame lands on a slot already written.
func (t *Timeline) Place(ts int64) (repeats int, write bool) {
	if !t.started {
		t.started = true
		t.origin = ts
		t.next = 1
		return 0, true
	}

	d := ts - t.origin
	if d < 0 {
		return 0, false
	}
	slot := (d*t.fps + nanosPerSecond/2) / nanosPerSecond
	if slot < t.next {
		return 0, false
	}

	gap := slot - t.next
	if gap > int64(t.maxGap) {
		gap = int64(t.maxGap)
	}
	t.next = slot + 1
	return int(gap), true
}

// Origin returns the timestamp of the first placed frame
func (t *Timeline) Origin() (int64, bool) {
	return t.origin, t.started
}
