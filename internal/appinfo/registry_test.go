package appinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func desktopEntry(lines ...string) string {
	return "[Desktop Entry]\nType=Application\n" + strings.Join(lines, "\n") + "\n"
}

func newTestRegistry(t *testing.T) (*Registry, string, string) {
	t.Helper()
	user := t.TempDir()
	system := t.TempDir()

	writeFile(t, filepath.Join(user, "applications", "org.mozilla.firefox.desktop"),
		desktopEntry("Name=Firefox", "Icon=firefox", "StartupWMClass=firefox"))
	writeFile(t, filepath.Join(system, "applications", "org.mozilla.firefox.desktop"),
		desktopEntry("Name=Shadowed Firefox", "Icon=other"))
	writeFile(t, filepath.Join(system, "applications", "org.gnome.Nautilus.desktop"),
		desktopEntry("Name=Files", "Icon=org.gnome.Nautilus"))
	writeFile(t, filepath.Join(system, "applications", "kde", "konsole.desktop"),
		desktopEntry("Name=Konsole", "Icon=utilities-terminal"))
	writeFile(t, filepath.Join(system, "applications", "hidden.desktop"),
		desktopEntry("Name=Hidden", "Hidden=true"))
	writeFile(t, filepath.Join(system, "applications", "link.desktop"),
		"[Desktop Entry]\nType=Link\nName=Link\n")
	writeFile(t, filepath.Join(system, "applications", "日本語.desktop"),
		desktopEntry("Name=テキスト エディタ", "Icon="+filepath.Join(system, "abs.png")))

	writeFile(t, filepath.Join(system, "icons", "hicolor", "32x32", "apps", "firefox.png"), "png")
	writeFile(t, filepath.Join(system, "icons", "hicolor", "64x64", "apps", "firefox.png"), "png")
	writeFile(t, filepath.Join(system, "icons", "hicolor", "scalable", "apps", "org.gnome.Nautilus.svg"), "svg")
	writeFile(t, filepath.Join(system, "pixmaps", "utilities-terminal.xpm"), "xpm")
	writeFile(t, filepath.Join(system, "abs.png"), "png")

	cfg := config.Defaults().Icons
	return NewRegistryWithDirs([]string{user, system}, cfg), user, system
}

func TestResolve(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	tests := []struct {
		class, instance string
		bundle, name    string
		ok              bool
	}{
		{"Firefox", "Navigator", "org.mozilla.firefox", "Firefox", true},
		{"org.gnome.Nautilus", "org.gnome.Nautilus", "org.gnome.Nautilus", "Files", true},
		{"Nautilus", "", "org.gnome.Nautilus", "Files", true},
		{"", "konsole", "kde-konsole", "Konsole", true},
		{"Hidden", "hidden", "", "", false},
		{"link", "", "", "", false},
		{"unknown", "unknown", "", "", false},
		{"テキスト エディタ", "", "日本語", "テキスト エディタ", true},
	}
	for _, tt := range tests {
		t.Run(tt.class+"/"+tt.instance, func(t *testing.T) {
			bundle, name, ok := r.Resolve(tt.class, tt.instance)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bundle, bundle)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestIconPath(t *testing.T) {
	r, _, system := newTestRegistry(t)

	assert.Equal(t, filepath.Join(system, "icons", "hicolor", "64x64", "apps", "firefox.png"),
		r.IconPath("org.mozilla.firefox"))
	assert.Equal(t, filepath.Join(system, "icons", "hicolor", "scalable", "apps", "org.gnome.Nautilus.svg"),
		r.IconPath("org.gnome.Nautilus"))
	assert.Equal(t, filepath.Join(system, "pixmaps", "utilities-terminal.xpm"), r.IconPath("kde-konsole"))
	assert.Equal(t, filepath.Join(system, "abs.png"), r.IconPath("日本語"))
	assert.Equal(t, filepath.Join(system, "icons", "hicolor", "64x64", "apps", "firefox.png"),
		r.IconPath("firefox"), "bare icon names resolve too")
}

func TestIconPath_Unknown(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	assert.Equal(t, "", r.IconPath("com.example.missing"))
	assert.Equal(t, "", r.IconPath(""))
	assert.Equal(t, "", r.IconPath("../etc/passwd"))
}

func TestIconPath_AbsoluteOnlyFromEntry(t *testing.T) {
	r, _, system := newTestRegistry(t)

	stray := filepath.Join(system, "abs.png")
	assert.Equal(t, "", r.IconPath(stray), "a bundle id is never a file path")
	assert.Equal(t, "", r.IconPath("/etc/passwd"))
	assert.Equal(t, stray, r.IconPath("日本語"), "Icon= may name an absolute file")
}

func TestIconPath_PreferredSize(t *testing.T) {
	r, _, system := newTestRegistry(t)
	r.preferredSize = 24

	assert.Equal(t, filepath.Join(system, "icons", "hicolor", "32x32", "apps", "firefox.png"),
		r.IconPath("org.mozilla.firefox"))
}

func TestIconPath_CachedUntilReload(t *testing.T) {
	r, user, _ := newTestRegistry(t)

	assert.Equal(t, "", r.IconPath("late"))

	icon := filepath.Join(user, "pixmaps", "late.png")
	writeFile(t, icon, "png")
	assert.Equal(t, "", r.IconPath("late"), "negative results are cached")

	r.Reload()
	assert.Equal(t, icon, r.IconPath("late"))
}

func TestSizesByPreference(t *testing.T) {
	sizes := sizesByPreference(64)
	assert.Equal(t, []int{64, 48, 96, 32, 24}, sizes[:5])
}

func clearLocale(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(k, "")
	}
}

func TestParseDesktopEntry(t *testing.T) {
	clearLocale(t)
	input := `# comment
[Desktop Entry]
Type=Application
Name=Text\sEditor
Name[de]=Texteditor
Icon=accessories-text-editor
StartupWMClass=Gedit

[Desktop Action new-window]
Name=New Window
`
	e, ok, err := parseDesktopEntry(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Text Editor", e.Name)
	assert.Equal(t, "accessories-text-editor", e.Icon)
	assert.Equal(t, "Gedit", e.StartupWMClass)
	assert.False(t, e.NoDisplay)
}

func TestParseDesktopEntry_Filtered(t *testing.T) {
	tests := map[string]struct {
		input string
		ok    bool
	}{
		"hidden":     {desktopEntry("Name=Gone", "Hidden=true"), false},
		"link":       {"[Desktop Entry]\nType=Link\nName=Site\nURL=https://example.com\n", false},
		"no display": {desktopEntry("Name=Helper", "NoDisplay=true"), true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e, ok, _ := parseDesktopEntry(strings.NewReader(tt.input))
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, e.NoDisplay)
			}
		})
	}
}

func TestResolve_PrefersDisplayedEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "applications", "a-handler.desktop"),
		desktopEntry("Name=Viewer", "NoDisplay=true", "StartupWMClass=viewer"))
	writeFile(t, filepath.Join(dir, "applications", "org.example.Viewer.desktop"),
		desktopEntry("Name=Viewer", "StartupWMClass=viewer"))

	r := NewRegistryWithDirs([]string{dir}, config.Defaults().Icons)
	bundle, _, ok := r.Resolve("viewer", "")
	require.True(t, ok)
	assert.Equal(t, "org.example.Viewer", bundle)
}

func TestDesktopFileID(t *testing.T) {
	assert.Equal(t, "kde-konsole", desktopFileID("/usr/share/applications", "/usr/share/applications/kde/konsole.desktop"))
	assert.Equal(t, "org.mozilla.firefox", desktopFileID("/a", "/a/org.mozilla.firefox.desktop"))
}

func TestDataDirs(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/home/u/.local/share")
	t.Setenv("XDG_DATA_DIRS", "/usr/share:/opt/share:/usr/share")

	assert.Equal(t, []string{"/home/u/.local/share", "/usr/share", "/opt/share", "/extra"},
		DataDirs([]string{"/extra/", ""}))

	t.Setenv("XDG_DATA_DIRS", "")
	assert.Equal(t, []string{"/home/u/.local/share", "/usr/local/share", "/usr/share"}, DataDirs(nil))
}
