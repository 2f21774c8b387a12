// Package appinfo maps window classes to installed applications and finds
// their icons through the freedesktop desktop entry and icon theme layouts.
package appinfo

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/wincap/internal/cache"
	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
)

var standardSizes = []int{16, 22, 24, 32, 48, 64, 96, 128, 256, 512}

var iconExtensions = []string{".png", ".svg", ".xpm"}

// Registry indexes desktop entries and resolves icons
type Registry struct {
	dataDirs      []string
	theme         string
	preferredSize int

	mu        sync.RWMutex
	loaded    bool
	entries   map[string]*Entry
	ids       []string
	byWMClass map[string]*Entry
	byName    map[string]*Entry

	icons *cache.LRU[string, string]
}

// NewRegistry creates a registry over the XDG data dirs plus the configured extras.
// The desktop entry index is built on first use.
func NewRegistry(cfg config.IconConfig) *Registry {
	return NewRegistryWithDirs(DataDirs(cfg.ExtraDataDirs), cfg)
}

// NewRegistryWithDirs creates a registry over explicit data directories
func NewRegistryWithDirs(dataDirs []string, cfg config.IconConfig) *Registry {
	theme := cfg.Theme
	if theme == "" {
		theme = "hicolor"
	}
	size := cfg.PreferredSize
	if size <= 0 {
		size = 64
	}
	return &Registry{
		dataDirs:      dataDirs,
		theme:         theme,
		preferredSize: size,
		icons:         cache.NewLRU[string, string](cfg.CacheSize),
	}
}

// Reload rescans the applications directories and drops cached icon paths
func (r *Registry) Reload() {
	log := logger.WithComponent("appinfo")

	entries := make(map[string]*Entry)
	byWMClass := make(map[string]*Entry)
	byName := make(map[string]*Entry)

	for _, dir := range r.dataDirs {
		appsDir := filepath.Join(dir, "applications")
		_ = filepath.WalkDir(appsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == appsDir {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(path, ".desktop") {
				return nil
			}

			id := desktopFileID(appsDir, path)
			// Earlier data dirs take precedence
			if _, exists := entries[id]; exists {
				return nil
			}

			f, err := os.Open(path)
			if err != nil {
				return nil
			}
			entry, ok, err := parseDesktopEntry(f)
			f.Close()
			if err != nil {
				log.Debug().Err(err).Str("path", path).Msg("Skipping unreadable desktop entry")
				return nil
			}
			if !ok {
				return nil
			}

			entry.ID = id
			entry.Path = path
			e := &entry
			entries[id] = e
			if e.StartupWMClass != "" {
				index(byWMClass, strings.ToLower(e.StartupWMClass), e)
			}
			index(byName, strings.ToLower(e.Name), e)
			return nil
		})
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	r.mu.Lock()
	r.entries = entries
	r.ids = ids
	r.byWMClass = byWMClass
	r.byName = byName
	r.loaded = true
	r.mu.Unlock()

	r.icons.Clear()
	log.Debug().Int("entries", len(entries)).Strs("dirs", r.dataDirs).Msg("Indexed desktop entries")
}

// index keeps the first entry per key, except that an entry shown in menus
// replaces a NoDisplay one
func index(m map[string]*Entry, key string, e *Entry) {
	if prev, dup := m[key]; !dup || (prev.NoDisplay && !e.NoDisplay) {
		m[key] = e
	}
}

func (r *Registry) ensureLoaded() {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		r.Reload()
	}
}

// Entry returns the desktop entry with the given id
func (r *Registry) Entry(id string) (*Entry, bool) {
	r.ensureLoaded()
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[strings.TrimSuffix(id, ".desktop")]
	return e, ok
}

// Resolve finds the application owning a window class. Matching order:
// StartupWMClass, desktop file id, then application name, all case-insensitive.
func (r *Registry) Resolve(class, instance string) (bundleID, appName string, ok bool) {
	r.ensureLoaded()
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e := r.match(class, instance); e != nil {
		return e.ID, e.Name, true
	}
	return "", "", false
}

func (r *Registry) match(class, instance string) *Entry {
	keys := make([]string, 0, 2)
	for _, k := range []string{class, instance} {
		if k != "" {
			keys = append(keys, strings.ToLower(strings.TrimSuffix(k, ".desktop")))
		}
	}

	for _, k := range keys {
		if e, ok := r.byWMClass[k]; ok {
			return e
		}
	}
	for _, k := range keys {
		if e, ok := r.entries[k]; ok {
			return e
		}
		for _, id := range r.ids {
			// Reverse-DNS ids such as org.gnome.Nautilus match class "nautilus"
			lower := strings.ToLower(id)
			if lower == k || strings.HasSuffix(lower, "."+k) {
				return r.entries[id]
			}
		}
	}
	for _, k := range keys {
		if e, ok := r.byName[k]; ok {
			return e
		}
	}
	return nil
}

// IconPath returns the icon file for an application id, or "" when none is
// installed. The id may also be a bare icon name. Absolute paths are only
// honoured when they come from an entry's Icon key.
func (r *Registry) IconPath(bundleID string) string {
	if bundleID == "" {
		return ""
	}
	if path, ok := r.icons.Get(bundleID); ok {
		return path
	}

	name := bundleID
	fromEntry := false
	if e, ok := r.Entry(bundleID); ok && e.Icon != "" {
		name = e.Icon
		fromEntry = true
	}
	path := r.findIcon(name, fromEntry)
	r.icons.Set(bundleID, path)

	logger.WithComponent("appinfo").Debug().
		Str("bundle_id", bundleID).
		Str("icon", name).
		Str("path", path).
		Msg("Resolved icon")
	return path
}

func (r *Registry) findIcon(name string, allowAbs bool) string {
	if filepath.IsAbs(name) {
		if allowAbs && isFile(name) {
			return name
		}
		return ""
	}
	if strings.ContainsRune(name, filepath.Separator) {
		return ""
	}

	themes := []string{r.theme}
	if r.theme != "hicolor" {
		themes = append(themes, "hicolor")
	}

	base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(name, ".png"), ".svg"), ".xpm")
	for _, theme := range themes {
		for _, dir := range r.dataDirs {
			themeDir := filepath.Join(dir, "icons", theme)
			for _, size := range sizesByPreference(r.preferredSize) {
				p := filepath.Join(themeDir, sizeDir(size), "apps", base+".png")
				if isFile(p) {
					return p
				}
			}
			p := filepath.Join(themeDir, "scalable", "apps", base+".svg")
			if isFile(p) {
				return p
			}
		}
	}

	for _, dir := range r.dataDirs {
		for _, ext := range iconExtensions {
			p := filepath.Join(dir, "pixmaps", base+ext)
			if isFile(p) {
				return p
			}
		}
	}
	return ""
}

// sizesByPreference orders the standard icon sizes by distance from
// preferred, larger first on ties
func sizesByPreference(preferred int) []int {
	sizes := append([]int(nil), standardSizes...)
	sort.SliceStable(sizes, func(i, j int) bool {
		di, dj := abs(sizes[i]-preferred), abs(sizes[j]-preferred)
		if di != dj {
			return di < dj
		}
		return sizes[i] > sizes[j]
	})
	return sizes
}

func sizeDir(size int) string {
	s := strconv.Itoa(size)
	return s + "x" + s
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
