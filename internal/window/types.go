package window

// Geometry is a window or display rectangle in root-window coordinates
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Intersects reports whether the two rectangles share at least one pixel
func (g Geometry) Intersects(o Geometry) bool {
	if g.Width <= 0 || g.Height <= 0 || o.Width <= 0 || o.Height <= 0 {
		return false
	}
	return g.X < o.X+o.Width && o.X < g.X+g.Width &&
		g.Y < o.Y+o.Height && o.Y < g.Y+g.Height
}

// Descriptor describes one application window at enumeration time.
// The first six fields are what crosses the binding surface; the rest is
// backend detail used for filtering, capture and display grouping.
type Descriptor struct {
	Title      string `json:"title"`
	AppName    string `json:"app_name"`
	BundleID   string `json:"bundle_id"`
	IsOnScreen bool   `json:"is_on_screen"`
	ID         uint32 `json:"id"`
	Thumbnail  []byte `json:"thumbnail,omitempty"`

	Class    string   `json:"class"`
	Instance string   `json:"instance"`
	PID      int      `json:"pid"`
	Desktop  int      `json:"desktop"` // -1 means sticky
	Geometry Geometry `json:"geometry"`
	// Native Wayland windows have no X11 drawable and cannot be captured
	IsNativeWayland bool `json:"is_native_wayland"`
}

// latin1ToUTF8 converts ICCCM STRING property data, which is ISO-8859-1
func latin1ToUTF8(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
