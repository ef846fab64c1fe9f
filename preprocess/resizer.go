// Package preprocess prepares camera frames for the pose model input tensor.
package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Letterbox is the padding color used around resized frames
var Letterbox = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Resizer scales frames of a fixed source size to the model input size while
// keeping the frame aspect, padding the remainder
type Resizer struct {
	srcWidth   int
	srcHeight  int
	destWidth  int
	destHeight int
	// tempMat holds the scaled frame before padding
	tempMat gocv.Mat
	// letterbox parameters
	xPad  int
	yPad  int
	scale float32
	// scaled frame size before padding
	resizeW int
	resizeH int
}

// NewResizer returns a Resizer from the source frame size to the model input
// size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {

	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	r.preCalc()

	return r
}

// Close frees the temporary Mat
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc works out the scale and padding, the smaller of the width and
// height scale is used so the whole frame fits
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2
	r.xPad = (r.destWidth - r.resizeW) / 2
}

// LetterBoxResize scales src into dest at the model input size, padding with
// the given color
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, pad color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, pad)
}

// ToSource maps a point in model input coordinates back to source frame
// coordinates
func (r *Resizer) ToSource(x, y float32) (float32, float32) {
	return (x - float32(r.xPad)) / r.scale, (y - float32(r.yPad)) / r.scale
}

// Fits returns true if the resizer was built for frames of the given size
func (r *Resizer) Fits(width, height int) bool {
	return r.srcWidth == width && r.srcHeight == height
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source frame
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source frame
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}
