package window

import (
	"strings"

	"github.com/bryanchriswhite/wincap/internal/config"
)

// Options selects what an enumeration returns
type Options struct {
	// Filter keeps only titled windows that are currently on screen
	Filter bool
	// Capture attaches a thumbnail to every returned window
	Capture bool
}

// Apply drops windows that are never worth offering for capture: our own,
// app-less ones, excluded classes, tiny ones and untitled file-manager
// windows. With opts.Filter it also drops off-screen and untitled windows.
func Apply(windows []*Descriptor, rules config.WindowsConfig, opts Options, selfPID int) []*Descriptor {
	excluded := lowerSet(rules.ExcludedClasses)
	hideUntitled := lowerSet(rules.HideUntitledClasses)

	out := make([]*Descriptor, 0, len(windows))
	for _, w := range windows {
		class := strings.ToLower(w.Class)

		if rules.HideSelf && selfPID > 0 && w.PID == selfPID {
			continue
		}
		if w.AppName == "" {
			continue
		}
		if excluded[class] {
			continue
		}
		if w.Geometry.Width < rules.MinWidth || w.Geometry.Height < rules.MinHeight {
			continue
		}
		if w.Title == "" && hideUntitled[class] {
			continue
		}
		if opts.Filter && (!w.IsOnScreen || w.Title == "") {
			continue
		}
		out = append(out, w)
	}
	return out
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}
