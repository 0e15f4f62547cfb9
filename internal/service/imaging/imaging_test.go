package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastedetect/internal/logger"
	"wastedetect/internal/models"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func countColor(img *image.RGBA, r image.Rectangle, c color.RGBA) int {
	n := 0
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestDecode_JPEG(t *testing.T) {
	data := encodeJPEG(t, solid(640, 480, color.RGBA{R: 120, G: 130, B: 140, A: 255}))

	img, format, err := Decode(data, DefaultMaxPixels)
	require.NoError(t, err)

	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())
	assert.Equal(t, uint8(255), img.RGBAAt(10, 10).A)
}

func TestDecode_GrayscaleBecomesRGB(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 3))
	for i := range gray.Pix {
		gray.Pix[i] = 77
	}

	img, format, err := Decode(encodePNG(t, gray), DefaultMaxPixels)
	require.NoError(t, err)

	assert.Equal(t, "png", format)
	assert.Equal(t, color.RGBA{R: 77, G: 77, B: 77, A: 255}, img.RGBAAt(2, 1))
}

func TestDecode_AlphaIsDropped(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	src.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 0})

	img, _, err := Decode(encodePNG(t, src), DefaultMaxPixels)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, uint8(255), img.RGBAAt(1, 1).A)
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG without
// touching its pixel data, so the header claims a much larger image.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	require.Equal(t, "IHDR", string(data[12:16]))

	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecode_Errors(t *testing.T) {
	pngData := encodePNG(t, solid(8, 8, color.RGBA{A: 255}))

	tests := []struct {
		name      string
		data      []byte
		maxPixels int64
		wantErr   string
	}{
		{"empty", nil, DefaultMaxPixels, "empty image data"},
		{"text", []byte("definitely not an image"), DefaultMaxPixels, "unsupported content type text/plain"},
		{"truncated png", pngData[:len(pngData)/2], DefaultMaxPixels, "cannot identify image file"},
		{"over configured limit", encodePNG(t, solid(64, 64, color.RGBA{A: 255})), 1000, "above the 1000 pixel limit"},
		{"header claims 20000x20000", withPNGSize(t, pngData, 20000, 20000), DefaultMaxPixels, "image is 20000x20000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := Decode(tt.data, tt.maxPixels)
			assert.Nil(t, img)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDecode_LimitDisabled(t *testing.T) {
	img, _, err := Decode(encodePNG(t, solid(64, 64, color.RGBA{A: 255})), 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	img, _, err = Decode(encodePNG(t, solid(64, 64, color.RGBA{A: 255})), 64*64)
	require.NoError(t, err, "a limit equal to the pixel count is allowed")
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestToRGB_NormalizesOrigin(t *testing.T) {
	src := solid(10, 10, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	src.SetRGBA(5, 5, color.RGBA{R: 9, G: 9, B: 9, A: 255})
	sub := src.SubImage(image.Rect(5, 5, 8, 8))

	dst := ToRGB(sub)

	assert.Equal(t, image.Rect(0, 0, 3, 3), dst.Bounds())
	assert.Equal(t, color.RGBA{R: 9, G: 9, B: 9, A: 255}, dst.RGBAAt(0, 0))
}

func TestClone_IsIndependent(t *testing.T) {
	src := solid(4, 4, color.RGBA{R: 5, A: 255})
	dst := Clone(src)
	dst.SetRGBA(0, 0, color.RGBA{G: 9, A: 255})

	assert.Equal(t, color.RGBA{R: 5, A: 255}, src.RGBAAt(0, 0))
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}, ColorFor("Organic Waste"))
	assert.Equal(t, color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}, ColorFor("Recyclable"))
	assert.Equal(t, color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}, ColorFor("Non-Recyclable"))
	assert.Equal(t, DefaultColor, ColorFor("recyclable"))
	assert.Equal(t, DefaultColor, ColorFor(models.UnknownClass))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Recyclable: 87.00%", Label(models.Detection{ClassName: "Recyclable", Confidence: 0.87}))
	assert.Equal(t, "Unknown: 5.25%", Label(models.Detection{ClassName: "Unknown", Confidence: 0.0525}))
}

func TestDrawRectangle_InwardBorder(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	img := solid(20, 20, color.RGBA{A: 255})

	DrawRectangle(img, image.Rect(2, 2, 10, 10), red, 3)

	assert.Equal(t, red, img.RGBAAt(2, 2))
	assert.Equal(t, red, img.RGBAAt(4, 4))
	assert.Equal(t, red, img.RGBAAt(10, 10))
	assert.Equal(t, red, img.RGBAAt(8, 6))
	assert.NotEqual(t, red, img.RGBAAt(5, 5))
	assert.NotEqual(t, red, img.RGBAAt(7, 7))
	assert.NotEqual(t, red, img.RGBAAt(11, 11))
	assert.NotEqual(t, red, img.RGBAAt(1, 2))
}

func TestNewAnnotator_FallsBackToBuiltinFont(t *testing.T) {
	a := NewAnnotator("/nonexistent/arial.ttf", 20, logger.NewNop())
	assert.False(t, a.Scalable())

	a = NewAnnotator("", 0, logger.NewNop())
	assert.False(t, a.Scalable())
}

func TestAnnotate_DrawsBoxAndLabel(t *testing.T) {
	a := NewAnnotator("", 20, logger.NewNop())
	src := solid(100, 100, color.RGBA{A: 255})
	blue := ColorFor("Recyclable")
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	out := a.Annotate(src, []models.Detection{
		{ClassName: "Recyclable", Confidence: 0.87, Box: models.Box{10, 40, 60, 90}},
	})

	assert.Equal(t, blue, out.RGBAAt(10, 40))
	assert.Equal(t, blue, out.RGBAAt(60, 90))
	assert.Equal(t, blue, out.RGBAAt(12, 60))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(35, 65))

	labelArea := image.Rect(10, 40-LabelOffset, 100, 40)
	assert.Positive(t, countColor(out, labelArea, blue))
	assert.Positive(t, countColor(out, labelArea, white))

	assert.Zero(t, countColor(src, src.Bounds(), blue), "source image must not be modified")
}

func TestAnnotate_UnmappedClassUsesGray(t *testing.T) {
	a := NewAnnotator("", 20, logger.NewNop())
	out := a.Annotate(solid(50, 50, color.RGBA{A: 255}), []models.Detection{
		{ClassName: "Battery", Confidence: 0.5, Box: models.Box{30, 30, 45, 45}},
	})
	assert.Equal(t, DefaultColor, out.RGBAAt(30, 30))
}

func TestAnnotate_LabelAboveCanvasIsClipped(t *testing.T) {
	a := NewAnnotator("", 20, logger.NewNop())
	src := solid(40, 40, color.RGBA{A: 255})

	out := a.Annotate(src, []models.Detection{
		{ClassName: "Organic Waste", Confidence: 0.99, Box: models.Box{0, 2, 39, 39}},
	})

	assert.Equal(t, ColorFor("Organic Waste"), out.RGBAAt(0, 2))
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestAnnotate_NoDetectionsCopiesInput(t *testing.T) {
	a := NewAnnotator("", 20, logger.NewNop())
	src := solid(16, 16, color.RGBA{R: 33, G: 66, B: 99, A: 255})

	out := a.Annotate(src, nil)

	assert.Equal(t, src.Pix, out.Pix)
	assert.NotSame(t, src, out)
}

func TestEncodeDataURI_RoundTripsDimensions(t *testing.T) {
	src := solid(64, 48, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	uri, err := EncodeDataURI(src)
	require.NoError(t, err)
	assert.True(t, len(uri) > len(DataURIPrefix))
	assert.Equal(t, DataURIPrefix, uri[:len(DataURIPrefix)])

	data, err := DecodeDataURI(uri)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestDecodeDataURI_Errors(t *testing.T) {
	_, err := DecodeDataURI("data:image/png;base64,AAAA")
	assert.Error(t, err)

	_, err = DecodeDataURI(DataURIPrefix + "***")
	assert.Error(t, err)
}
