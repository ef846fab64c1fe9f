package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/swdee/go-posewatch/landmark"
)

// Text draws status text with a TrueType font, or the built in 7x13 bitmap
// font when no font file is configured
type Text struct {
	face font.Face
	// Pad is the space in pixels around the text inside the banner
	Pad int
}

// NewText returns a Text using the TTF font file at the given point size.  An
// empty fontPath selects the built in font.
func NewText(fontPath string, size float64) (*Text, error) {

	if fontPath == "" {
		return &Text{face: basicfont.Face7x13, Pad: 6}, nil
	}

	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return &Text{face: face, Pad: 6}, nil
}

// Close releases the font face
func (t *Text) Close() error {
	return t.face.Close()
}

// Height returns the banner height needed for one line of text
func (t *Text) Height() int {

	m := t.face.Metrics()

	return (m.Ascent + m.Descent).Ceil() + 2*t.Pad
}

// Width returns the pixel width of the text
func (t *Text) Width(text string) int {
	return font.MeasureString(t.face, text).Ceil()
}

// Banner draws the text in white on a solid bar across the top of the image
func (t *Text) Banner(img *gocv.Mat, text string, bg color.RGBA) error {

	if img.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("banner needs an 8 bit BGR frame, got type %v", img.Type())
	}

	w := img.Cols()
	h := t.Height()

	if h > img.Rows() {
		h = img.Rows()
	}

	if w == 0 || h == 0 {
		return nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(White),
		Face: t.face,
		Dot: fixed.Point26_6{
			X: fixed.I(t.Pad),
			Y: fixed.I(t.Pad) + t.face.Metrics().Ascent,
		},
	}
	dr.DrawString(text)

	bar, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil {
		return fmt.Errorf("error creating Mat from RGBA: %w", err)
	}

	defer bar.Close()

	gocv.CvtColor(bar, &bar, gocv.ColorRGBAToBGR)

	roi := img.Region(image.Rect(0, 0, w, h))
	defer roi.Close()

	bar.CopyTo(&roi)

	return nil
}

// Annotator returns a frame annotation function drawing the landmark skeleton
// and a status banner coloured by activity
func (t *Text) Annotator(lineThickness int) func(img *gocv.Mat, set *landmark.Set, status string) {

	return func(img *gocv.Mat, set *landmark.Set, status string) {
		Landmarks(img, set, lineThickness)
		if err := t.Banner(img, status, StatusColor(status)); err != nil {
			log.WithError(err).Debug("status banner not drawn")
		}
	}
}
