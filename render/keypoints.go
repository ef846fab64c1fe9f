// Package render draws pose skeletons and status text onto frames.
package render

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/pose"
	"github.com/swdee/go-posewatch/postprocess/result"
)

// skeleton pairs the COCO keypoints (numbered from one) to draw limbs
// between, so (16,14) is a line from the left ankle to the left knee
var skeleton = [38]int{16, 14, 14, 12, 17, 15, 15, 13, 12, 13, 6, 12, 7, 13, 6, 7, 6, 8,
	7, 9, 8, 10, 9, 11, 2, 3, 1, 2, 1, 3, 2, 4, 3, 5, 4, 6, 5, 7}

// MinKeyPointScore is the score below which a keypoint is not drawn
const MinKeyPointScore = 0.3

// PoseKeyPoints draws the skeleton of each person.  Limbs touching a keypoint
// scoring under minScore are skipped.
func PoseKeyPoints(img *gocv.Mat, people [][]result.KeyPoint, lineThickness int, minScore float32) {

	for _, kps := range people {

		if len(kps) < len(keyPointColors) {
			continue
		}

		for j := 0; j < len(skeleton)/2; j++ {
			a := kps[skeleton[2*j]-1]
			b := kps[skeleton[2*j+1]-1]

			if a.Score < minScore || b.Score < minScore {
				continue
			}

			gocv.Line(img, point(a), point(b), limbColors[j], lineThickness)
		}

		for j, kp := range kps[:len(keyPointColors)] {
			if kp.Score < minScore {
				continue
			}

			gocv.Circle(img, point(kp), 3, keyPointColors[j], -1)
		}
	}
}

// Landmarks draws the skeleton of a landmark set normalised to the frame
func Landmarks(img *gocv.Mat, set *landmark.Set, lineThickness int) {

	if set == nil {
		return
	}

	kps := pose.FromLandmarks(set, img.Cols(), img.Rows())
	PoseKeyPoints(img, [][]result.KeyPoint{kps}, lineThickness, MinKeyPointScore)
}

func point(kp result.KeyPoint) image.Point {
	return image.Pt(int(kp.X), int(kp.Y))
}
