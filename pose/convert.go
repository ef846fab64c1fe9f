package pose

import (
	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/postprocess/result"
)

// ToLandmarks converts a detected person's keypoints into a landmark Set in
// the given layout.  Coordinates are normalised to [0,1] by the frame size,
// the pose model has no depth so z is zero and visibility is the keypoint
// score.
func ToLandmarks(person result.DetectResult, width, height int, layout landmark.Layout) *landmark.Set {

	set := &landmark.Set{
		Layout: landmark.COCO17,
		Points: make([]landmark.Landmark, len(person.KeyPoints)),
		Score:  person.Probability,
	}

	for i, kp := range person.KeyPoints {
		set.Points[i] = landmark.Landmark{
			X:          normalise(kp.X, width),
			Y:          normalise(kp.Y, height),
			Visibility: clamp01(kp.Score),
		}
	}

	return set.ToLayout(layout)
}

// FromLandmarks returns the keypoints of a landmark set in pixel coordinates
// of a frame of the given size, in COCO keypoint order
func FromLandmarks(set *landmark.Set, width, height int) []result.KeyPoint {

	if set == nil {
		return nil
	}

	coco := set.ToLayout(landmark.COCO17)
	kps := make([]result.KeyPoint, len(coco.Points))

	for i, lm := range coco.Points {
		kps[i] = result.KeyPoint{
			X:     lm.X * float32(width),
			Y:     lm.Y * float32(height),
			Score: lm.Visibility,
		}
	}

	return kps
}

func normalise(v float32, size int) float32 {

	if size <= 0 {
		return 0
	}

	return clamp01(v / float32(size))
}

func clamp01(v float32) float32 {

	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
