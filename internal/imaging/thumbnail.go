package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
)

const (
	thumbMaxDim  = 100
	thumbQuality = 50
)

// Thumbnail renders a small JPEG preview of the image blob, suitable for the
// guest gallery where full-size results are never persisted.
func Thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("thumbnail: decode: %w", err)
	}

	scaled := img
	bounds := img.Bounds()
	if bounds.Dx() > thumbMaxDim || bounds.Dy() > thumbMaxDim {
		scaled = fitDimensions(img, thumbMaxDim)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("thumbnail: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// ThumbnailDataURI renders the thumbnail as a data: URI for direct embedding
// in gallery responses.
func ThumbnailDataURI(data []byte) (string, error) {
	thumb, err := Thumbnail(data)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(thumb), nil
}
