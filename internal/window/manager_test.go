package window

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	windows []*Descriptor
	err     error
}

func (f *fakeBackend) ListWindows() ([]*Descriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*Descriptor, 0, len(f.windows))
	for _, w := range f.windows {
		c := *w
		out = append(out, &c)
	}
	return out, nil
}
func (f *fakeBackend) Close() error { return nil }
func (f *fakeBackend) Name() string { return "fake" }

type fakeApps map[string][2]string

func (f fakeApps) Resolve(class, instance string) (string, string, bool) {
	v, ok := f[class]
	return v[0], v[1], ok
}

type fakeThumbs struct{ calls int }

func (f *fakeThumbs) Thumbnails(ctx context.Context, windows []*Descriptor) map[uint32][]byte {
	f.calls++
	out := map[uint32][]byte{}
	for _, w := range windows {
		out[w.ID] = []byte{byte(w.ID)}
	}
	return out
}

func newManager(t *testing.T, b Backend, apps AppResolver, thumbs Thumbnailer) *Manager {
	t.Helper()
	cfg, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	return NewManager(b, cfg, apps, thumbs)
}

func TestManager_EnumerateResolvesApps(t *testing.T) {
	b := &fakeBackend{windows: []*Descriptor{
		{ID: 1, Title: "Mozilla Firefox", Class: "firefox", IsOnScreen: true, Geometry: Geometry{Width: 500, Height: 500}},
		{ID: 2, Title: "ünïcødé 窓", Class: "Gedit", IsOnScreen: true, Geometry: Geometry{Width: 500, Height: 500}},
	}}
	apps := fakeApps{"firefox": {"org.mozilla.firefox", "Firefox"}}
	thumbs := &fakeThumbs{}
	m := newManager(t, b, apps, thumbs)

	got, err := m.Enumerate(context.Background(), Options{Filter: true})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "org.mozilla.firefox", got[0].BundleID)
	assert.Equal(t, "Firefox", got[0].AppName)
	assert.Equal(t, "gedit", got[1].BundleID)
	assert.Equal(t, "Gedit", got[1].AppName)
	assert.Equal(t, "ünïcødé 窓", got[1].Title)
	assert.Nil(t, got[0].Thumbnail)
	assert.Equal(t, 0, thumbs.calls)
}

func TestManager_EnumerateCapture(t *testing.T) {
	b := &fakeBackend{windows: []*Descriptor{
		{ID: 7, Title: "A", Class: "a", IsOnScreen: true, Geometry: Geometry{Width: 500, Height: 500}},
	}}
	thumbs := &fakeThumbs{}
	m := newManager(t, b, nil, thumbs)

	got, err := m.Enumerate(context.Background(), Options{Capture: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte{7}, got[0].Thumbnail)
	assert.Equal(t, 1, thumbs.calls)
}

func TestManager_EnumerateBackendError(t *testing.T) {
	m := newManager(t, &fakeBackend{err: errors.New("no display")}, nil, nil)

	_, err := m.Enumerate(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func TestManager_Find(t *testing.T) {
	b := &fakeBackend{windows: []*Descriptor{
		{ID: 3, Title: "tiny", Class: "x", Geometry: Geometry{Width: 1, Height: 1}},
	}}
	m := newManager(t, b, nil, nil)

	w, err := m.Find(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "tiny", w.Title)

	_, err = m.Find(context.Background(), 4)
	assert.Error(t, err)
}
