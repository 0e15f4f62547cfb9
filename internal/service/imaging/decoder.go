package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels matches the decompression bomb limit of common imaging
// libraries (twice 89478485 pixels).
const DefaultMaxPixels = 2 * 89478485

// Decode turns uploaded bytes into an opaque RGB pixel buffer anchored at
// (0, 0). It returns the registered format name of the source image. Images
// whose header declares more than maxPixels pixels are rejected before any
// pixel data is decoded; maxPixels <= 0 disables the check.
func Decode(data []byte, maxPixels int64) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", errors.New("empty image data")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, "", errors.Errorf("unsupported content type %s", mtype.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrapf(err, "cannot identify image file (%s)", mtype.String())
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && pixels > maxPixels {
		return nil, "", errors.Errorf("image is %dx%d (%d pixels), above the %d pixel limit",
			cfg.Width, cfg.Height, pixels, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrapf(err, "cannot identify image file (%s)", mtype.String())
	}

	return ToRGB(img), format, nil
}

// ToRGB converts any color model to 8-bit RGB with full opacity. Alpha is
// dropped rather than composited, so translucent pixels keep their color.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}

// Clone returns a deep copy of img.
func Clone(img *image.RGBA) *image.RGBA {
	dst := &image.RGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(dst.Pix, img.Pix)
	return dst
}
