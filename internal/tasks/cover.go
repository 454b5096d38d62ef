package tasks

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/desertthunder/vibelist/internal/models"
)

// MaxCoverPayload is the catalog's limit on the base64 cover payload.
const MaxCoverPayload = 256 * 1024

var coverQualities = []int{90, 80, 70, 60, 50, 40}

// EncodeCover returns img as a base64 JPEG within [MaxCoverPayload].
//
// JPEG input that already fits is sent unchanged. Anything else is decoded and re-encoded at
// decreasing quality, halving the dimensions when even the lowest quality is too large.
func EncodeCover(img *models.ImageRef) (string, error) {
	if !img.HasData() {
		return "", fmt.Errorf("cover has no image data")
	}

	if img.ContentType == "image/jpeg" || bytes.HasPrefix(img.Data, []byte{0xFF, 0xD8, 0xFF}) {
		if base64.StdEncoding.EncodedLen(len(img.Data)) <= MaxCoverPayload {
			return base64.StdEncoding.EncodeToString(img.Data), nil
		}
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("failed to decode cover: %w", err)
	}

	for src.Bounds().Dx() >= 64 {
		for _, q := range coverQualities {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: q}); err != nil {
				return "", fmt.Errorf("failed to encode cover: %w", err)
			}
			if base64.StdEncoding.EncodedLen(buf.Len()) <= MaxCoverPayload {
				return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
			}
		}
		src = halve(src)
	}

	return "", fmt.Errorf("cover does not fit in %d bytes", MaxCoverPayload)
}

// halve downsamples by averaging 2x2 blocks.
func halve(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx()/2, b.Dy()/2
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := range h {
		for x := range w {
			var r, g, bl, a uint32
			for dy := range 2 {
				for dx := range 2 {
					pr, pg, pb, pa := src.At(b.Min.X+2*x+dx, b.Min.Y+2*y+dy).RGBA()
					r, g, bl, a = r+pr, g+pg, bl+pb, a+pa
				}
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = uint8(r / 4 >> 8)
			dst.Pix[i+1] = uint8(g / 4 >> 8)
			dst.Pix[i+2] = uint8(bl / 4 >> 8)
			dst.Pix[i+3] = uint8(a / 4 >> 8)
		}
	}
	return dst
}
