package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	"image/png"

	_ "golang.org/x/image/bmp" // BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // TIFF decoder
)

// Preprocessing parameters tuned for printed result sheets.
const (
	minWidth      = 1000
	targetWidth   = 1500
	contrastGain  = 2.5
	brightnessMul = 1.2
)

// Preprocess converts an encoded image to an enhanced grayscale PNG:
// narrow scans are upscaled, then contrast and brightness are boosted.
func Preprocess(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("decode image: empty bounds")
	}
	if width < minWidth {
		height = height * targetWidth / width
		width = targetWidth
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(gray, gray.Bounds(), src, b, draw.Src, nil)

	enhance(gray)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// enhance stretches contrast around the mean luminance and brightens.
func enhance(img *image.Gray) {
	if len(img.Pix) == 0 {
		return
	}
	var sum int
	for _, p := range img.Pix {
		sum += int(p)
	}
	mean := float64(sum) / float64(len(img.Pix))

	var lut [256]uint8
	for i := range lut {
		v := mean + contrastGain*(float64(i)-mean)
		v *= brightnessMul
		lut[i] = clamp(v)
	}
	for i, p := range img.Pix {
		img.Pix[i] = lut[p]
	}
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
