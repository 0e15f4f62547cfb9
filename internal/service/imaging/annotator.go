package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"wastedetect/internal/logger"
	"wastedetect/internal/models"
)

const (
	// BoxLineWidth is the outline width of a detection rectangle, drawn inward.
	BoxLineWidth = 3
	// LabelOffset is the distance from the box top edge to the label's text origin.
	LabelOffset = 25
	// DefaultFontSize is used when no positive size is configured.
	DefaultFontSize = 20
)

var (
	DefaultColor = color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}

	palette = map[string]color.RGBA{
		"Organic Waste":  {R: 0x10, G: 0xb9, B: 0x81, A: 0xff},
		"Recyclable":     {R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
		"Non-Recyclable": {R: 0xef, G: 0x44, B: 0x44, A: 0xff},
	}

	fontDirs = []string{
		"/usr/share/fonts/truetype/msttcorefonts",
		"/usr/share/fonts/truetype/dejavu",
		"/usr/share/fonts/TTF",
		"/Library/Fonts",
		"/System/Library/Fonts/Supplemental",
		`C:\Windows\Fonts`,
	}
)

// ColorFor returns the display color for an exact class name.
func ColorFor(className string) color.RGBA {
	if c, ok := palette[className]; ok {
		return c
	}
	return DefaultColor
}

// Label formats the caption drawn above a detection, e.g. "Recyclable: 87.00%".
func Label(d models.Detection) string {
	return fmt.Sprintf("%s: %.2f%%", d.ClassName, d.Confidence*100)
}

// Annotator draws labelled detection boxes.
type Annotator struct {
	font   *opentype.Font
	size   float64
	logger *logger.Logger
}

// NewAnnotator tries to load the scalable font at fontPath. Any failure is
// logged and the built-in bitmap face is used instead.
func NewAnnotator(fontPath string, size float64, logger *logger.Logger) *Annotator {
	if size <= 0 {
		size = DefaultFontSize
	}
	a := &Annotator{size: size, logger: logger}

	f, err := loadFont(fontPath)
	if err != nil {
		logger.Warning("Using built-in font, could not load %q: %v", fontPath, err)
		return a
	}
	a.font = f
	return a
}

// Scalable reports whether the preferred font was loaded.
func (a *Annotator) Scalable() bool {
	return a.font != nil
}

func loadFont(path string) (*opentype.Font, error) {
	if path == "" {
		return nil, fmt.Errorf("no font configured")
	}

	data, err := os.ReadFile(path)
	if err != nil && !filepath.IsAbs(path) {
		for _, dir := range fontDirs {
			if data, err = os.ReadFile(filepath.Join(dir, path)); err == nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}

	return opentype.Parse(data)
}

// newFace returns a face for one annotation pass. Faces cache glyphs and are
// not safe for concurrent use, so each request gets its own.
func (a *Annotator) newFace() font.Face {
	if a.font != nil {
		face, err := opentype.NewFace(a.font, &opentype.FaceOptions{
			Size:    a.size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			return face
		}
		a.logger.Warning("Using built-in font, could not create face: %v", err)
	}
	return basicfont.Face7x13
}

// Annotate draws every detection on a copy of src; src is left untouched.
func (a *Annotator) Annotate(src *image.RGBA, detections []models.Detection) *image.RGBA {
	dst := Clone(src)
	if len(detections) == 0 {
		return dst
	}

	face := a.newFace()
	defer face.Close()

	for _, d := range detections {
		c := ColorFor(d.ClassName)
		x1, y1 := floor(d.Box.X1()), floor(d.Box.Y1())
		x2, y2 := floor(d.Box.X2()), floor(d.Box.Y2())

		DrawRectangle(dst, image.Rect(x1, y1, x2, y2), c, BoxLineWidth)
		drawLabel(dst, face, Label(d), image.Pt(x1, y1-LabelOffset), c)
	}

	return dst
}

// DrawRectangle outlines r (corners inclusive) with a border of the given
// width growing inward. Parts outside dst are clipped.
func DrawRectangle(dst draw.Image, r image.Rectangle, c color.Color, width int) {
	src := image.NewUniform(c)
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X+1, r.Max.Y+1

	strips := []image.Rectangle{
		image.Rect(x0, y0, x1, min(y0+width, y1)),
		image.Rect(x0, max(y1-width, y0), x1, y1),
		image.Rect(x0, y0, min(x0+width, x1), y1),
		image.Rect(max(x1-width, x0), y0, x1, y1),
	}
	for _, s := range strips {
		draw.Draw(dst, s, src, image.Point{}, draw.Src)
	}
}

// drawLabel fills a background sized to the text whose top-left corner is at
// origin and writes the text in white. The origin is not clamped; drawing
// above the canvas is clipped.
func drawLabel(dst draw.Image, face font.Face, text string, origin image.Point, bg color.Color) {
	metrics := face.Metrics()
	advance := font.MeasureString(face, text)

	rect := image.Rect(
		origin.X,
		origin.Y,
		origin.X+advance.Ceil(),
		origin.Y+(metrics.Ascent+metrics.Descent).Ceil(),
	)
	draw.Draw(dst, rect, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(origin.X), Y: fixed.I(origin.Y) + metrics.Ascent},
	}
	d.DrawString(text)
}

func floor(v float64) int {
	return int(math.Floor(v))
}
