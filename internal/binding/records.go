package binding

import (
	"github.com/bryanchriswhite/wincap/internal/display"
	"github.com/bryanchriswhite/wincap/internal/window"
)

// WindowInfo is the legacy window record without a thumbnail
type WindowInfo struct {
	Title      string `json:"title"`
	AppName    string `json:"app_name"`
	BundleID   string `json:"bundle_id"`
	IsOnScreen bool   `json:"is_on_screen"`
	ID         int    `json:"id"`
}

// WindowInfoV2 is the current window record. Thumbnail is empty when capture
// was not requested or failed.
type WindowInfoV2 struct {
	Title      string `json:"title"`
	AppName    string `json:"app_name"`
	BundleID   string `json:"bundle_id"`
	IsOnScreen bool   `json:"is_on_screen"`
	ID         int    `json:"id"`
	Thumbnail  []byte `json:"thumbnail"`
}

// IntPair is a (display index, window id) pair
type IntPair struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

func toWindowInfoV2(w *window.Descriptor) WindowInfoV2 {
	return WindowInfoV2{
		Title:      w.Title,
		AppName:    w.AppName,
		BundleID:   w.BundleID,
		IsOnScreen: w.IsOnScreen,
		ID:         int(w.ID),
		Thumbnail:  w.Thumbnail,
	}
}

// Legacy drops the thumbnail
func (w WindowInfoV2) Legacy() WindowInfo {
	return WindowInfo{
		Title:      w.Title,
		AppName:    w.AppName,
		BundleID:   w.BundleID,
		IsOnScreen: w.IsOnScreen,
		ID:         w.ID,
	}
}

func toIntPair(p display.Pair) IntPair {
	return IntPair{First: p.Display, Second: int(p.Window)}
}
