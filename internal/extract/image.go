package extract

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// blank imports register their decoders with image.Decode
var (
	_ = jpeg.Decode
	_ = png.Decode
	_ = bmp.Decode
	_ = tiff.Decode
	_ = webp.Decode
)

// maxImageDimension caps the larger of an image's width/height before
// OCR. This is the primary defense against pathological OCR memory use;
// anything larger is downscaled, never upscaled.
const maxImageDimension = 2000

// preprocessImage loads path, and if either dimension exceeds
// maxImageDimension, rescales so the larger dimension equals
// maxImageDimension (preserving aspect ratio) using a high-quality
// resampling filter, writing the result as a lossless temp PNG. The
// returned cleanup function removes that temp file and must be called
// by the caller on every exit path, successful or not. If no resize was
// needed, cleanup is a no-op and the original path is returned.
func preprocessImage(path string) (ocrPath string, cleanup func(), err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", func() {}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return "", func() {}, err
	}

	if cfg.Width <= maxImageDimension && cfg.Height <= maxImageDimension {
		return path, func() {}, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return "", func() {}, err
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return "", func() {}, err
	}

	scale := float64(maxImageDimension) / float64(cfg.Width)
	if cfg.Height > cfg.Width {
		scale = float64(maxImageDimension) / float64(cfg.Height)
	}
	newW := int(float64(cfg.Width) * scale)
	newH := int(float64(cfg.Height) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	tmp, err := os.CreateTemp("", "nexus-ocr-*.png")
	if err != nil {
		return "", func() {}, err
	}
	if err := png.Encode(tmp, dst); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", func() {}, err
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", func() {}, err
	}

	return tmpPath, func() { os.Remove(tmpPath) }, nil
}
