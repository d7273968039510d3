// Package avatar crops uploaded profile pictures into JPEG data URLs.
package avatar

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
)

// MaxUploadBytes caps the accepted upload size.
const MaxUploadBytes = 5 << 20

const jpegQuality = 90

var (
	ErrEmptyCrop = errors.New("crop area is empty")
	ErrTooLarge  = errors.New("image exceeds 5MB")
)

// Rect is a crop region in source image pixels.
type Rect struct {
	X, Y, Width, Height int
}

// Crop decodes a JPEG, PNG or GIF and re-encodes the selected region as JPEG.
// The region is clamped to the image bounds.
func Crop(r io.Reader, rect Rect) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	area := image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height).
		Add(src.Bounds().Min).
		Intersect(src.Bounds())
	if rect.Width <= 0 || rect.Height <= 0 || area.Empty() {
		return nil, ErrEmptyCrop
	}

	dst := image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	draw.Draw(dst, dst.Bounds(), src, area.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL embeds JPEG bytes in a data URL.
func DataURL(jpegData []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)
}
