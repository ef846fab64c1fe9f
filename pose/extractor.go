// Package pose extracts body landmarks from video frames with a YOLOv8-pose
// model running on the NPU.
package pose

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posewatch"
	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/postprocess"
	"github.com/swdee/go-posewatch/postprocess/result"
	"github.com/swdee/go-posewatch/preprocess"
)

// Extractor finds the most confident person in a frame and returns their
// landmarks
type Extractor struct {
	pool   *posewatch.Pool
	post   *postprocess.YOLOv8Pose
	layout landmark.Layout
	// minScore is the minimum person score to report landmarks
	minScore float32

	mu sync.Mutex
	// resizer is rebuilt when the frame size changes
	resizer *preprocess.Resizer
	rgbImg  gocv.Mat
	input   gocv.Mat
}

// NewExtractor returns an Extractor running the pose model from the pool.
// Landmarks are returned in the given layout.
func NewExtractor(pool *posewatch.Pool, params postprocess.YOLOv8PoseParams,
	layout landmark.Layout) *Extractor {

	// box tensors are decoded as int8 and keypoints as fp16
	pool.SetWantFloat(false)

	return &Extractor{
		pool:     pool,
		post:     postprocess.NewYOLOv8Pose(params),
		layout:   layout,
		minScore: params.BoxThreshold,
		rgbImg:   gocv.NewMat(),
		input:    gocv.NewMat(),
	}
}

// Detect returns the landmarks of the highest scoring person in the frame or
// nil when nobody was found
func (e *Extractor) Detect(img gocv.Mat) (*landmark.Set, error) {

	people, err := e.DetectPeople(img)

	if err != nil {
		return nil, err
	}

	if len(people) == 0 || people[0].Probability < e.minScore {
		return nil, nil
	}

	return ToLandmarks(people[0], img.Cols(), img.Rows(), e.layout), nil
}

// DetectPeople returns every person found in the frame ordered by score
func (e *Extractor) DetectPeople(img gocv.Mat) ([]result.DetectResult, error) {

	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rt := e.pool.Get()
	defer e.pool.Return(rt)

	attr := rt.InputAttributes()

	if e.resizer == nil || !e.resizer.Fits(img.Cols(), img.Rows()) {
		if e.resizer != nil {
			e.resizer.Close()
		}

		e.resizer = preprocess.NewResizer(img.Cols(), img.Rows(),
			int(attr.Width), int(attr.Height))
	}

	gocv.CvtColor(img, &e.rgbImg, gocv.ColorBGRToRGB)
	e.resizer.LetterBoxResize(e.rgbImg, &e.input, preprocess.Letterbox)

	outputs, err := rt.Inference([]gocv.Mat{e.input})

	if err != nil {
		return nil, fmt.Errorf("error running pose inference: %w", err)
	}

	defer outputs.Free()

	tensors, err := postprocess.TensorsFromOutputs(outputs)

	if err != nil {
		return nil, err
	}

	people, err := e.post.DetectObjects(tensors, e.resizer)

	if err != nil {
		return nil, fmt.Errorf("error decoding pose outputs: %w", err)
	}

	return people, nil
}

// Close frees the Mats held by the extractor, the pool is owned by the caller
func (e *Extractor) Close() error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resizer != nil {
		e.resizer.Close()
		e.resizer = nil
	}

	e.rgbImg.Close()
	return e.input.Close()
}
