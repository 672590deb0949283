package service

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "image/jpeg"
	_ "image/png"
)

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return files
}

func decodeStored(t *testing.T, path string) image.Image {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(content))
	require.NoError(t, err)
	return img
}

func TestUploadSaveShrinksOversizedImage(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir)

	name, err := svc.Save(testutil.TinyPNG(t, 1280, 720), "photo.png", CategoryArticles)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotContains(t, name, "photo")

	img := decodeStored(t, filepath.Join(dir, CategoryArticles, name))
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())
}

func TestUploadSavePreservesAspectRatio(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir)

	// 1000x1000 into a 640x360 box is height-bound: 360x360.
	name, err := svc.Save(testutil.TinyPNG(t, 1000, 1000), "square.png", CategoryArticles)
	require.NoError(t, err)

	img := decodeStored(t, filepath.Join(dir, CategoryArticles, name))
	assert.Equal(t, 360, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())
}

func TestUploadSaveNeverUpscales(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir)

	name, err := svc.Save(testutil.TinyJPEG(t, 100, 80), "small.jpg", CategoryProfiles)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	img := decodeStored(t, filepath.Join(dir, CategoryProfiles, name))
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}

func TestUploadSaveRejections(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir)

	tests := []struct {
		name     string
		content  []byte
		filename string
	}{
		{"disallowed extension", testutil.TinyPNG(t, 10, 10), "malware.gif"},
		{"no extension", testutil.TinyPNG(t, 10, 10), "noext"},
		{"corrupt content", []byte("not an image"), "fake.png"},
		{"truncated image", testutil.TinyPNG(t, 100, 100)[:20], "cut.png"},
		{"oversized file", testutil.NoisyPNG(t, 1500, 1500), "huge.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(tt.content, tt.filename, CategoryArticles)
			assert.True(t, models.IsCode(err, models.ErrCodeUnsupportedMedia))
		})
	}

	// No partial writes: every rejection left the directory empty.
	assert.Empty(t, storedFiles(t, dir))
}

func TestUploadSaveCaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir)

	name, err := svc.Save(testutil.TinyJPEG(t, 10, 10), "PHOTO.JPEG", CategoryArticles)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpeg"))
}

func TestUploadRandomizedFilenamesNeverCollide(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		name, err := svc.Save(testutil.TinyPNG(t, 10, 10), "same.png", CategoryProfiles)
		require.NoError(t, err)
		assert.False(t, seen[name])
		seen[name] = true
	}
}

func TestUploadRemoveSkipsPlaceholders(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir)

	name, err := svc.Save(testutil.TinyPNG(t, 10, 10), "pic.png", CategoryProfiles)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(models.DefaultProfileImage, CategoryProfiles))
	require.NoError(t, svc.Remove("", CategoryProfiles))
	require.NoError(t, svc.Remove("already-gone.png", CategoryProfiles))

	require.NoError(t, svc.Remove(name, CategoryProfiles))
	assert.Empty(t, storedFiles(t, dir))
}
