package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// ErrUnreadableImage is returned when a file cannot be read or decoded as an image.
var ErrUnreadableImage = errors.New("unreadable image")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// IsImageFile reports whether the file name has a supported image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// LoadImage reads an image file and prepares it for the extractor.
func LoadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured faces directory
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableImage, err)
	}
	return PrepareImage(data)
}

// PrepareImage fully decodes image data and downscales images whose larger
// side exceeds constants.MaxImageSize. Images within the limit are returned
// as-is. Truncated or corrupt data fails with ErrUnreadableImage even when the
// header is intact.
func PrepareImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableImage, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnreadableImage)
	}
	if max(b.Dx(), b.Dy()) <= constants.MaxImageSize {
		return data, nil
	}

	resized := resizeToFit(img, constants.MaxImageSize)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 92}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeToFit scales img so its larger side equals maxSide, keeping the aspect ratio.
func resizeToFit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
