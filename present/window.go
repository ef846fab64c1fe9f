package present

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posewatch/pipeline"
)

// Window shows frames in a desktop window.  OpenCV requires the window to be
// driven from the main OS thread so Run must be called from main.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a desktop window with the given title
func NewWindow(title string) *Window {
	return &Window{
		win: gocv.NewWindow(title),
	}
}

// Present decodes and shows the frame.  Pressing q or Esc in the window
// returns ErrQuit.
func (w *Window) Present(s pipeline.Snapshot) error {

	if len(s.Frame) > 0 {
		img, err := gocv.IMDecode(s.Frame, gocv.IMReadColor)

		if err != nil {
			return fmt.Errorf("error decoding frame: %w", err)
		}

		if !img.Empty() {
			w.win.IMShow(img)
		}

		img.Close()
	}

	switch w.win.WaitKey(1) {
	case 'q', 27:
		return ErrQuit
	}

	return nil
}

// Close the window
func (w *Window) Close() error {
	return w.win.Close()
}
