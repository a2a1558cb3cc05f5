package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

const (
	// minQuality is the floor for the recursive quality reduction. Once the
	// next step would drop below it, whatever size resulted is accepted.
	minQuality = 0.3

	qualityStep = 0.1

	bytesPerMB = 1024 * 1024
)

// Compress downsizes an image blob toward maxSizeMB, re-encoding at the given
// quality fraction (0-1) and stepping the quality down by 0.1 while the result
// stays oversized. It is best-effort by contract: blobs already under the
// target come back byte-for-byte unchanged, and any decode or encode failure
// returns the input untouched.
func Compress(data []byte, maxSizeMB, quality float64) []byte {
	if maxSizeMB <= 0 || float64(len(data))/bytesPerMB < maxSizeMB {
		return data
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	resized := fitDimensions(img, maxDimensionFor(maxSizeMB))

	for {
		encoded, err := encode(resized, format, quality)
		if err != nil {
			return data
		}
		if float64(len(encoded))/bytesPerMB <= maxSizeMB || quality-qualityStep < minQuality {
			return encoded
		}
		quality -= qualityStep
	}
}

// maxDimensionFor tiers the maximum edge length by the size target: small
// targets get aggressively downscaled, large ones keep more resolution.
func maxDimensionFor(maxSizeMB float64) int {
	switch {
	case maxSizeMB <= 1:
		return 1200
	case maxSizeMB <= 3:
		return 1800
	default:
		return 2400
	}
}

// fitDimensions scales img down so neither edge exceeds maxDim, preserving
// aspect ratio. Images already within bounds are returned as-is.
func fitDimensions(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxDim
		newHeight = int(float64(height) * float64(maxDim) / float64(width))
	} else {
		newHeight = maxDim
		newWidth = int(float64(width) * float64(maxDim) / float64(height))
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func encode(img image.Image, format string, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		q := int(quality * 100)
		if q < 1 {
			q = 1
		}
		if q > 100 {
			q = 100
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
