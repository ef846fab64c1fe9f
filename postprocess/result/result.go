// Package result holds the detection types produced by the post processors.
package result

// BoxRect is a bounding box in pixel coordinates
type BoxRect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Width of the box
func (b BoxRect) Width() int {
	return b.Right - b.Left
}

// Height of the box
func (b BoxRect) Height() int {
	return b.Bottom - b.Top
}

// KeyPoint is one pose keypoint in pixel coordinates of the source frame
type KeyPoint struct {
	X     float32
	Y     float32
	Score float32
}

// DetectResult is one detected person
type DetectResult struct {
	Box         BoxRect
	Probability float32
	Class       int
	// ID is a unique number for the detection
	ID int64
	// KeyPoints of the detected person in model keypoint order
	KeyPoints []KeyPoint
}
