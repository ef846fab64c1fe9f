package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestLetterBoxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)
		resizer.LetterBoxResize(img, &resizedImg, Letterbox)

		assert.Equalf(t, tc.expectedXPad, resizer.XPad(), "xpad for src (%d, %d)", tc.srcWidth, tc.srcHeight)
		assert.Equalf(t, tc.expectedYPad, resizer.YPad(), "ypad for src (%d, %d)", tc.srcWidth, tc.srcHeight)
		assert.Equalf(t, tc.expectedScale, resizer.ScaleFactor(), "scale for src (%d, %d)", tc.srcWidth, tc.srcHeight)

		assert.Equal(t, tc.resizeWidth, resizedImg.Cols())
		assert.Equal(t, tc.resizeHeight, resizedImg.Rows())

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func TestToSource(t *testing.T) {

	resizer := NewResizer(1280, 720, 640, 640)
	defer resizer.Close()

	// top left corner of the picture area
	x, y := resizer.ToSource(0, 140)
	assert.InDelta(t, 0, x, 1e-4)
	assert.InDelta(t, 0, y, 1e-4)

	// bottom right corner
	x, y = resizer.ToSource(640, 500)
	assert.InDelta(t, 1280, x, 1e-3)
	assert.InDelta(t, 720, y, 1e-3)

	assert.True(t, resizer.Fits(1280, 720))
	assert.False(t, resizer.Fits(640, 480))
}
