package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refboard/internal/imageio"
)

func tempSettings(t *testing.T) *Settings {
	t.Helper()
	return LoadFrom(filepath.Join(t.TempDir(), "settings.json"), zerolog.Nop())
}

func TestDefaults(t *testing.T) {
	s := tempSettings(t)

	assert.Equal(t, imageio.FormatOptimal, s.StorageFormat())
	assert.Equal(t, 10.0, s.ArrangeGap())
	assert.Equal(t, int64(256<<20), s.ImageAllocLimit())
	assert.Equal(t, 100, s.UndoLimit())
	assert.Empty(t, s.RecentFiles())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := LoadFrom(path, zerolog.Nop())
	s.SetStorageFormat(imageio.FormatPNG)
	s.SetArrangeGap(25)
	s.SetUndoLimit(50)
	s.AddRecentFile("/boards/a.rbd")
	s.AddRecentFile("/boards/b.rbd")
	require.NoError(t, s.Save())

	loaded := LoadFrom(path, zerolog.Nop())
	assert.Equal(t, imageio.FormatPNG, loaded.StorageFormat())
	assert.Equal(t, 25.0, loaded.ArrangeGap())
	assert.Equal(t, 50, loaded.UndoLimit())
	assert.Equal(t, []string{"/boards/b.rbd", "/boards/a.rbd"}, loaded.RecentFiles())
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"image_storage_format":"tiff","arrange_gap":-5,"undo_limit":2.5}`), 0o644))

	s := LoadFrom(path, zerolog.Nop())
	assert.Equal(t, imageio.FormatOptimal, s.StorageFormat())
	assert.Equal(t, 10.0, s.ArrangeGap())
	assert.Equal(t, 100, s.UndoLimit())
}

func TestSetRejectsInvalid(t *testing.T) {
	s := tempSettings(t)
	s.SetStorageFormat("gif")
	assert.Equal(t, imageio.FormatOptimal, s.StorageFormat())
	s.SetArrangeGap(-1)
	assert.Equal(t, 10.0, s.ArrangeGap())
}

func TestUnknownKeysSurviveSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"future_key":"kept"}`), 0o644))

	s := LoadFrom(path, zerolog.Nop())
	require.NoError(t, s.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "future_key")
}

func TestRecentFilesDedupAndBound(t *testing.T) {
	s := tempSettings(t)
	for i := 0; i < 15; i++ {
		s.AddRecentFile(filepath.Join("/b", string(rune('a'+i))+".rbd"))
	}
	s.AddRecentFile("/b/a.rbd")

	files := s.RecentFiles()
	assert.Len(t, files, 10)
	assert.Equal(t, "/b/a.rbd", files[0])
	assert.Equal(t, 1, countOf(files, "/b/a.rbd"))
}

func countOf(list []string, v string) int {
	n := 0
	for _, s := range list {
		if s == v {
			n++
		}
	}
	return n
}
