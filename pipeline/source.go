package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posewatch/landmark"
)

// Source is an open frame source
type Source interface {
	// Read reads the next frame into img, returning ErrEndOfStream when no
	// more frames are available
	Read(img *gocv.Mat) error
	// Close releases the source
	Close() error
}

// Opener opens the frame source named by id, being a camera index such as
// "0" or a video file or stream URL
type Opener func(id string) (Source, error)

// Extractor finds the landmarks of a person in a frame, returning a nil set
// when nobody is found
type Extractor interface {
	Detect(img gocv.Mat) (*landmark.Set, error)
}

// captureSource reads frames with an OpenCV VideoCapture
type captureSource struct {
	vc *gocv.VideoCapture
}

// OpenCapture opens a camera device when id is a number, otherwise a video
// file or network stream URL
func OpenCapture(id string) (Source, error) {

	var (
		vc  *gocv.VideoCapture
		err error
	)

	id = strings.TrimSpace(id)

	if dev, convErr := strconv.Atoi(id); convErr == nil {
		vc, err = gocv.OpenVideoCapture(dev)
	} else {
		vc, err = gocv.VideoCaptureFile(id)
	}

	if err != nil {
		return nil, fmt.Errorf("error opening video capture %s: %w", id, err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %s is not opened", id)
	}

	return &captureSource{vc: vc}, nil
}

// Read the next frame
func (c *captureSource) Read(img *gocv.Mat) error {

	if ok := c.vc.Read(img); !ok {
		return ErrEndOfStream
	}

	return nil
}

// Close the capture device
func (c *captureSource) Close() error {
	return c.vc.Close()
}
