// Package landmark defines body landmark sets produced by pose estimation and
// the feature vectors built from them for activity classification.
package landmark

import (
	"fmt"
	"strings"
)

// Landmark is a single anatomical keypoint with its position and visibility
// confidence.  X and Y are normalised to the source frame so [0,1] covers the
// image, Z is depth relative to the hips and is zero for 2D pose models.
type Landmark struct {
	X          float32
	Y          float32
	Z          float32
	Visibility float32
}

// Set is the ordered landmarks detected for one person in one frame
type Set struct {
	// Layout names the ordering convention of Points
	Layout Layout
	// Points are the landmarks in Layout order
	Points []Landmark
	// Score is the detection confidence of the person the points belong to
	Score float32
}

// Len returns the number of landmarks in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}

	return len(s.Points)
}

// Layout defines the landmark ordering convention of a Set
type Layout int

const (
	// COCO17 is the 17 keypoint layout output by YOLOv8-pose models
	COCO17 Layout = iota
	// BlazePose33 is the 33 landmark layout used by MediaPipe Pose
	BlazePose33
)

// Size returns the number of landmarks in the layout
func (l Layout) Size() int {
	switch l {
	case BlazePose33:
		return 33
	default:
		return 17
	}
}

// String returns the layout name as used in configuration files
func (l Layout) String() string {
	switch l {
	case COCO17:
		return "coco17"
	case BlazePose33:
		return "blazepose33"
	default:
		return "unknown"
	}
}

// ParseLayout returns the Layout for the given name
func ParseLayout(name string) (Layout, error) {

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "coco17", "coco":
		return COCO17, nil
	case "blazepose33", "blazepose", "mediapipe":
		return BlazePose33, nil
	}

	return COCO17, fmt.Errorf("unknown landmark layout: %s", name)
}

// COCO keypoint indices
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// cocoToBlazePose maps each COCO keypoint index to the BlazePose landmark
// index of the same body part
var cocoToBlazePose = [17]int{0, 2, 5, 7, 8, 11, 12, 13, 14, 15, 16, 23, 24, 25, 26, 27, 28}

// ToLayout converts the set into the given layout.  Converting COCO17 to
// BlazePose33 places each keypoint at its BlazePose index and leaves the
// landmarks COCO does not have (eye corners, mouth, hands, feet) zeroed.
// Converting BlazePose33 to COCO17 picks the matching subset.
func (s *Set) ToLayout(l Layout) *Set {

	if s == nil || s.Layout == l {
		return s
	}

	out := &Set{
		Layout: l,
		Points: make([]Landmark, l.Size()),
		Score:  s.Score,
	}

	for coco, blaze := range cocoToBlazePose {
		switch l {
		case BlazePose33:
			if coco < len(s.Points) {
				out.Points[blaze] = s.Points[coco]
			}
		case COCO17:
			if blaze < len(s.Points) {
				out.Points[coco] = s.Points[blaze]
			}
		}
	}

	return out
}
