package yolo

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// PadColor fills the letterbox border.
var PadColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// PadSquare copies img into the top-left corner of a square canvas whose side
// is the larger image dimension, so a single scale factor maps network
// coordinates back to the original image.
func PadSquare(img image.Image) (*image.RGBA, int) {
	b := img.Bounds()
	side := max(b.Dx(), b.Dy())

	square := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(square, square.Bounds(), image.NewUniform(PadColor), image.Point{}, draw.Src)
	draw.Draw(square, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)

	return square, side
}

// Letterbox pads img to a square, resizes it to size×size and returns the
// planar RGB tensor (NCHW, batch of one) scaled to [0, 1] together with the
// frame needed to decode the network output.
func Letterbox(img image.Image, size int) ([]float32, Frame) {
	b := img.Bounds()
	square, side := PadSquare(img)
	resized := resize.Resize(uint(size), uint(size), square, resize.Bilinear)

	return ToCHW(resized, size), Frame{
		Scale:  float64(side) / float64(size),
		Width:  b.Dx(),
		Height: b.Dy(),
	}
}

// ToCHW converts the top-left size×size region of img to planar float RGB.
func ToCHW(img image.Image, size int) []float32 {
	plane := size * size
	tensor := make([]float32, 3*plane)
	b := img.Bounds()

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			idx := y*size + x
			tensor[idx] = float32(r>>8) / 255.0
			tensor[plane+idx] = float32(g>>8) / 255.0
			tensor[2*plane+idx] = float32(bl>>8) / 255.0
		}
	}

	return tensor
}
