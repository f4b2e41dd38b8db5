// Package image provides the raw frame type passed from cameras to the
// analyzer, still-image loading, and the frame source abstraction.
package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ChannelOrder is the byte order of the three colour channels in a Frame.
type ChannelOrder int

const (
	OrderBGR ChannelOrder = iota // OpenCV / camera native order
	OrderRGB
)

func (o ChannelOrder) String() string {
	switch o {
	case OrderBGR:
		return "BGR"
	case OrderRGB:
		return "RGB"
	default:
		return "Unknown"
	}
}

// Frame is a single captured image: tightly packed 8-bit pixels, three
// channels per pixel, row-major.
type Frame struct {
	Pix        []byte
	Width      int
	Height     int
	Order      ChannelOrder
	CapturedAt time.Time
}

// Validate checks that the pixel buffer matches the frame dimensions.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Pix) != want {
		return fmt.Errorf("frame buffer has %d bytes, want %d for %dx%d", len(f.Pix), want, f.Width, f.Height)
	}
	return nil
}

// FromImage converts a decoded image into a BGR frame.
func FromImage(img image.Image, capturedAt time.Time) Frame {
	b := img.Bounds()
	f := Frame{
		Pix:        make([]byte, 0, b.Dx()*b.Dy()*3),
		Width:      b.Dx(),
		Height:     b.Dy(),
		Order:      OrderBGR,
		CapturedAt: capturedAt,
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// Convert from 16-bit to 8-bit
			f.Pix = append(f.Pix, byte(bl>>8), byte(g>>8), byte(r>>8))
		}
	}
	return f
}

// Load decodes a still image file into a BGR frame.
func Load(path string) (Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	capturedAt := time.Now()
	if info, err := file.Stat(); err == nil {
		capturedAt = info.ModTime()
	}
	return FromImage(img, capturedAt), nil
}

// SupportedFormats returns the list of still-image formats Load can decode.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	return hasExt(path, SupportedFormats())
}

// TrainingFormats returns the extensions counted as dataset samples.
func TrainingFormats() []string {
	return []string{".png", ".jpg", ".jpeg"}
}

// IsTrainingFormat checks if the given path counts as a training sample.
func IsTrainingFormat(path string) bool {
	return hasExt(path, TrainingFormats())
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
