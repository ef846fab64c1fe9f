// Package postprocess decodes the raw NPU output tensors of the pose model
// into person detections with keypoints.
package postprocess

import (
	"math"
)

// deqntAffineToF32 converts a quantized int8 value back to a float32 using
// the provided zero point and scale
func deqntAffineToF32(qnt int8, zp int32, scale float32) float32 {
	return (float32(qnt) - float32(zp)) * scale
}

// qntF32ToAffine converts a float32 value to an int8 using the zero point and
// scale
func qntF32ToAffine(f32 float32, zp int32, scale float32) int8 {

	dstVal := (f32 / scale) + float32(zp)

	return int8(clip(dstVal, -128, 127))
}

// clip restricts val to the range min and max and converts the result to int
func clip(val, min, max float32) int {

	if val <= min {
		return int(min)
	}

	if val >= max {
		return int(max)
	}

	return int(val)
}

// clamp restricts val to the range min and max
func clamp(val float32, min, max uint32) float32 {

	if val > float32(min) {

		if val < float32(max) {
			return val
		}

		return float32(max)
	}

	return float32(min)
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}

// unsigmoid is the inverse of sigmoid, used to compare thresholds against raw
// logits without applying sigmoid to every value
func unsigmoid(y float32) float32 {
	return float32(-1.0 * math.Log((1.0/float64(y))-1.0))
}

// softmax normalises the first n values of input in place
func softmax(input []float32, n int) {

	maxVal := input[0]

	for i := 1; i < n; i++ {
		if input[i] > maxVal {
			maxVal = input[i]
		}
	}

	var sum float32

	for i := 0; i < n; i++ {
		input[i] = float32(math.Exp(float64(input[i] - maxVal)))
		sum += input[i]
	}

	for i := 0; i < n; i++ {
		input[i] /= sum
	}
}

// quickSortIndiceInverse sorts input in descending order and applies the same
// reordering to indices
func quickSortIndiceInverse(input []float32, left int, right int, indices []int) int {

	var key float32
	var keyIndex int

	low := left
	high := right

	if left < right {
		keyIndex = indices[left]
		key = input[left]

		for low < high {
			for low < high && input[high] <= key {
				high--
			}

			input[low] = input[high]
			indices[low] = indices[high]

			for low < high && input[low] >= key {
				low++
			}

			input[high] = input[low]
			indices[high] = indices[low]
		}

		input[low] = key
		indices[low] = keyIndex

		quickSortIndiceInverse(input, left, low-1, indices)
		quickSortIndiceInverse(input, low+1, right, indices)
	}

	return low
}

// nms marks with -1 every entry in order whose box overlaps a higher scoring
// box of the same class by more than threshold.  Boxes are stored as
// x, y, w, h followed by boxLen-4 extra values.
func nms(validCount int, boxes []float32, boxLen int, classIds, order []int,
	filterId int, threshold float32) {

	for i := 0; i < validCount; i++ {

		n := order[i]

		if n == -1 || classIds[n] != filterId {
			continue
		}

		for j := i + 1; j < validCount; j++ {
			m := order[j]

			if m == -1 || classIds[m] != filterId {
				continue
			}

			xmin0 := boxes[n*boxLen+0]
			ymin0 := boxes[n*boxLen+1]
			xmax0 := xmin0 + boxes[n*boxLen+2]
			ymax0 := ymin0 + boxes[n*boxLen+3]

			xmin1 := boxes[m*boxLen+0]
			ymin1 := boxes[m*boxLen+1]
			xmax1 := xmin1 + boxes[m*boxLen+2]
			ymax1 := ymin1 + boxes[m*boxLen+3]

			iou := calculateOverlap(xmin0, ymin0, xmax0, ymax0, xmin1, ymin1, xmax1, ymax1)

			if iou > threshold {
				order[j] = -1
			}
		}
	}
}

// calculateOverlap returns the Intersection over Union of two boxes
func calculateOverlap(xmin0, ymin0, xmax0, ymax0, xmin1, ymin1,
	xmax1, ymax1 float32) float32 {

	w := math.Max(0.0, math.Min(float64(xmax0), float64(xmax1))-math.Max(float64(xmin0), float64(xmin1))+1.0)
	h := math.Max(0.0, math.Min(float64(ymax0), float64(ymax1))-math.Max(float64(ymin0), float64(ymin1))+1.0)
	intersection := w * h

	// inclusive pixel areas
	area0 := (xmax0 - xmin0 + 1) * (ymax0 - ymin0 + 1)
	area1 := (xmax1 - xmin1 + 1) * (ymax1 - ymin1 + 1)

	union := area0 + area1 - float32(intersection)

	if union <= 0 {
		return 0.0
	}

	return float32(intersection) / union
}
