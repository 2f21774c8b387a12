package appinfo

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rkoesters/xdg/desktop"
)

// Entry is the subset of a freedesktop desktop entry used for lookups
type Entry struct {
	ID             string // file id without the .desktop suffix
	Name           string // localized for the current locale
	Icon           string
	StartupWMClass string
	NoDisplay      bool
	Path           string
}

// parseDesktopEntry reads the [Desktop Entry] group with the localized Name
// for the process locale. Entries that are not applications, are marked
// Hidden or have no name are reported as ok=false.
func parseDesktopEntry(r io.Reader) (entry Entry, ok bool, err error) {
	de, err := desktop.New(r)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to parse desktop entry: %w", err)
	}
	if de.Type != desktop.Application || de.Hidden || de.Name == "" {
		return Entry{}, false, nil
	}
	return Entry{
		Name:           de.Name,
		Icon:           de.Icon,
		StartupWMClass: de.StartupWMClass,
		NoDisplay:      de.NoDisplay,
	}, true, nil
}

// desktopFileID derives the file id from a path below an applications
// directory: subdirectory separators become dashes and .desktop is dropped
func desktopFileID(appsDir, path string) string {
	rel, err := filepath.Rel(appsDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, ".desktop")
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "-")
}
