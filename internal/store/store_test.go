package store

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refboard/internal/imageio"
	"refboard/internal/item"
	"refboard/pkg/geometry"
)

func testDecoder() *imageio.Decoder {
	return imageio.NewDecoder(0, zerolog.Nop())
}

func encodedImage(t *testing.T, w, h int) ([]byte, image.Image) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes(), img
}

func boardPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.rbd")
}

func TestSaveAndReadRoundTrip(t *testing.T) {
	path := boardPath(t)
	data, pixels := encodedImage(t, 40, 20)

	img := item.NewImage(data, pixels, "cat.png", false)
	img.SetPosition(geometry.NewPoint2D(12, -3))
	img.SetScale(2, img.Position())
	img.SetRotation(90, img.Position())
	img.SetCrop(geometry.NewRect(5, 5, 20, 10))
	txt := item.NewText("note to self")
	txt.SetZ(4)

	s, err := Create(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Save([]item.Item{img, txt}))
	assert.NotZero(t, img.SaveID())
	assert.NotZero(t, txt.SaveID())
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	items, err := s.Read(testDecoder())
	require.NoError(t, err)
	require.Len(t, items, 2)

	loaded, ok := items[0].(*item.Image)
	require.True(t, ok)
	assert.Equal(t, geometry.NewPoint2D(12, -3), loaded.Position())
	assert.Equal(t, 2.0, loaded.Scale())
	assert.Equal(t, 90.0, loaded.Rotation())
	assert.Equal(t, geometry.NewRect(5, 5, 20, 10), loaded.Crop())
	assert.Equal(t, "cat.png", loaded.Filename())
	assert.Equal(t, image.Rect(0, 0, 40, 20), loaded.Pixels().Bounds())

	loadedTxt, ok := items[1].(*item.Text)
	require.True(t, ok)
	assert.Equal(t, "note to self", loadedTxt.TextContent())
	assert.Equal(t, 4.0, loadedTxt.Z())
}

func TestIncrementalSave(t *testing.T) {
	path := boardPath(t)
	data, pixels := encodedImage(t, 10, 10)

	img := item.NewImage(data, pixels, "a.png", false)
	txt := item.NewText("old")

	s, err := Create(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Save([]item.Item{img, txt}))
	imgID := img.SaveID()

	// move the image, drop the text, add a new one
	img.SetPosition(geometry.NewPoint2D(77, 88))
	fresh := item.NewText("new")
	require.NoError(t, s.Save([]item.Item{img, fresh}))
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	items, err := s.Read(testDecoder())
	require.NoError(t, err)
	require.Len(t, items, 2)

	loaded := items[0].(*item.Image)
	assert.Equal(t, imgID, loaded.SaveID(), "updated in place, same row")
	assert.Equal(t, geometry.NewPoint2D(77, 88), loaded.Position())
	assert.Equal(t, data, loaded.EncodedBytes(), "blob bytes untouched by incremental save")

	assert.Equal(t, "new", items[1].(*item.Text).TextContent())
}

func TestSaveIntoFreshFileKeepsSaveIDs(t *testing.T) {
	first := boardPath(t)
	s, err := Create(first, zerolog.Nop())
	require.NoError(t, err)
	txt := item.NewText("hello")
	require.NoError(t, s.Save([]item.Item{txt}))
	id := txt.SaveID()
	require.NoError(t, s.Close())

	second := filepath.Join(t.TempDir(), "copy.rbd")
	s2, err := Create(second, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Save([]item.Item{txt}))
	assert.Equal(t, id, txt.SaveID())

	items, err := s2.Read(testDecoder())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].SaveID())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.rbd"), zerolog.Nop())
	var fe *FileError
	require.ErrorAs(t, err, &fe)
}

func TestOpenEmptyFile(t *testing.T) {
	path := boardPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path, zerolog.Nop())
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "empty")
}

func TestOpenGarbageFile(t *testing.T) {
	path := boardPath(t)
	require.NoError(t, os.WriteFile(path, []byte("this is not sqlite at all, not even close"), 0o644))

	_, err := Open(path, zerolog.Nop())
	var fe *FileError
	require.ErrorAs(t, err, &fe)
}

func TestOpenForeignSQLiteFile(t *testing.T) {
	path := boardPath(t)
	s, err := open(path, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.db.Exec("CREATE TABLE unrelated (x INT)")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path, zerolog.Nop())
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "not a board file")
}

func TestUnknownTypeRowSurvivesSaveCycle(t *testing.T) {
	path := boardPath(t)
	rec := item.Record{Type: "hologram", X: 1, Y: 2, Z: 3, Scale: 2, Rotation: 45, Flip: -1,
		Data: []byte(`{"future":true}`)}
	unknown, err := item.FromRecord(rec)
	require.NoError(t, err)

	s, err := Create(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Save([]item.Item{unknown}))
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	items, err := s.Read(testDecoder())
	require.NoError(t, err)
	require.Len(t, items, 1)

	loaded, ok := items[0].(*item.Error)
	require.True(t, ok)
	assert.Equal(t, "hologram", loaded.OriginalType())
	out, err := loaded.ToRecord()
	require.NoError(t, err)
	assert.JSONEq(t, `{"future":true}`, string(out.Data))
	assert.Equal(t, 45.0, out.Rotation)
}

func TestImageWithMissingBlobBecomesErrorItem(t *testing.T) {
	path := boardPath(t)
	data, pixels := encodedImage(t, 10, 10)
	img := item.NewImage(data, pixels, "a.png", false)

	s, err := Create(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Save([]item.Item{img}))
	_, err = s.db.Exec("DELETE FROM sqlar")
	require.NoError(t, err)

	items, err := s.Read(testDecoder())
	require.NoError(t, err)
	require.Len(t, items, 1)
	_, ok := items[0].(*item.Error)
	assert.True(t, ok)
	s.Close()
}

func TestBlobName(t *testing.T) {
	assert.Equal(t, "0007-cat.png", BlobName(7, "/home/user/cat.png"))
	assert.Equal(t, "0123-image", BlobName(123, ""))
}
