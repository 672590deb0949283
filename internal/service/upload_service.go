package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/models"
	"quill/internal/observability"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

// Upload categories. Each category gets its own subdirectory under the
// configured upload root and its own resize bounds.
const (
	CategoryArticles = "articles"
	CategoryProfiles = "profiles"
)

const maxUploadBytes = 2 * 1024 * 1024

// uploadPolicy bounds one category of uploads. Images larger than the bounds
// are shrunk to fit; smaller images are stored as-is.
type uploadPolicy struct {
	maxWidth  int
	maxHeight int
}

var uploadPolicies = map[string]uploadPolicy{
	CategoryArticles: {maxWidth: 640, maxHeight: 360},
	CategoryProfiles: {maxWidth: 150, maxHeight: 150},
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// UploadService stores user-submitted images under a local directory tree.
type UploadService struct {
	baseDir string
}

// NewUploadService returns an UploadService rooted at baseDir.
func NewUploadService(baseDir string) *UploadService {
	return &UploadService{baseDir: baseDir}
}

// Save validates, resizes, and persists one uploaded image. It returns the
// generated filename to store on the owning record. Any failure, from a bad
// extension to a truncated pixel stream, comes back as an unsupported-media
// error and leaves nothing on disk.
func (s *UploadService) Save(content []byte, filename, category string) (string, error) {
	policy, ok := uploadPolicies[category]
	if !ok {
		return "", models.NewInternalError(fmt.Errorf("unknown upload category %q", category))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		observability.UploadRejectionsTotal.WithLabelValues("extension").Inc()
		return "", models.NewUnsupportedMediaError("only jpg, jpeg, and png images are accepted", nil)
	}

	if len(content) > maxUploadBytes {
		observability.UploadRejectionsTotal.WithLabelValues("size").Inc()
		return "", models.NewUnsupportedMediaError("image exceeds the 2 MB limit", nil)
	}

	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		observability.UploadRejectionsTotal.WithLabelValues("decode").Inc()
		return "", models.NewUnsupportedMediaError("image could not be decoded", err)
	}

	img = resizeToFit(img, policy.maxWidth, policy.maxHeight)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, img)
	default:
		observability.UploadRejectionsTotal.WithLabelValues("format").Inc()
		return "", models.NewUnsupportedMediaError("only jpg, jpeg, and png images are accepted", nil)
	}
	if err != nil {
		return "", models.NewUnsupportedMediaError("image could not be re-encoded", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	dir := filepath.Join(s.baseDir, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		return "", models.NewInternalError(err)
	}
	return name, nil
}

// Remove deletes a previously stored image. Placeholder images are shared and
// never removed. A missing file is not an error.
func (s *UploadService) Remove(filename, category string) error {
	if filename == "" || filename == models.DefaultArticleImage || filename == models.DefaultProfileImage {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, category, filename))
	if err != nil && !os.IsNotExist(err) {
		return models.NewInternalError(err)
	}
	return nil
}

// resizeToFit scales img down to fit within maxWidth x maxHeight, preserving
// aspect ratio. Images already inside the bounds are returned unchanged.
func resizeToFit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxWidth && height <= maxHeight {
		return img
	}

	scaleW := float64(maxWidth) / float64(width)
	scaleH := float64(maxHeight) / float64(height)
	scale := scaleW
	if scaleH < scaleW {
		scale = scaleH
	}

	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}
