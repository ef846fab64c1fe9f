package postprocess

import (
	"fmt"

	"github.com/swdee/go-posewatch"
	"github.com/swdee/go-posewatch/postprocess/result"
	"github.com/swdee/go-posewatch/preprocess"
)

const (
	// dflLen is the number of distribution bins per box side
	dflLen = 16
	// boxLocLen is the number of box channels before the class channels
	boxLocLen = 4 * dflLen
	// boxLen is the number of values stored per candidate box, being x, y,
	// w, h and the anchor index of its keypoints
	boxLen = 5
)

// YOLOv8Pose decodes the outputs of a YOLOv8-pose model
type YOLOv8Pose struct {
	Params YOLOv8PoseParams
	idGen  *result.IDGenerator
}

// YOLOv8PoseParams are the post processing settings
type YOLOv8PoseParams struct {
	// BoxThreshold is the minimum person score for a box to be kept
	BoxThreshold float32
	// NMSThreshold is the maximum IoU allowed between two kept boxes
	NMSThreshold float32
	// ObjectClassNum is the number of classes the model was trained with
	ObjectClassNum int
	// MaxObjectNumber caps the number of people returned
	MaxObjectNumber int
	// KeyPointsNumber is the number of keypoints per person
	KeyPointsNumber int
}

// YOLOv8PoseCOCOParams returns the parameters for a model trained on the COCO
// keypoints dataset
func YOLOv8PoseCOCOParams() YOLOv8PoseParams {
	return YOLOv8PoseParams{
		BoxThreshold:    0.5,
		NMSThreshold:    0.4,
		ObjectClassNum:  1,
		MaxObjectNumber: 64,
		KeyPointsNumber: 17,
	}
}

// NewYOLOv8Pose returns a YOLOv8Pose post processor
func NewYOLOv8Pose(p YOLOv8PoseParams) *YOLOv8Pose {
	return &YOLOv8Pose{
		Params: p,
		idGen:  result.NewIDGenerator(),
	}
}

// Stride is one int8 box output tensor of the model along with its
// quantization parameters and grid size
type Stride struct {
	Tensor []int8
	ZP     int32
	Scale  float32
	GridH  int
	GridW  int
}

// PoseTensors are the model outputs needed to decode people
type PoseTensors struct {
	// Strides are the box tensors from the finest to the coarsest grid
	Strides []Stride
	// KeyPoints is the float keypoint tensor laid out as
	// [keypoint][x, y, score][anchor]
	KeyPoints []float32
	// InputWidth and InputHeight are the model input size in pixels
	InputWidth  int
	InputHeight int
}

// anchors returns the total number of grid cells over all strides
func (t PoseTensors) anchors() int {

	total := 0

	for _, s := range t.Strides {
		total += s.GridH * s.GridW
	}

	return total
}

// TensorsFromOutputs collects the pose tensors from the runtime outputs.  The
// model must be run with SetWantFloat(false) so the box tensors stay int8 and
// the fp16 keypoint tensor is converted to float32.
func TensorsFromOutputs(outputs *posewatch.Outputs) (PoseTensors, error) {

	if len(outputs.Output) < 2 {
		return PoseTensors{}, fmt.Errorf("pose model needs at least 2 outputs, got %d",
			len(outputs.Output))
	}

	in := outputs.InputAttributes()
	attrs := outputs.OutputAttributes()
	n := len(outputs.Output) - 1

	t := PoseTensors{
		Strides:     make([]Stride, n),
		KeyPoints:   outputs.Output[n].BufFloat,
		InputWidth:  int(in.Width),
		InputHeight: int(in.Height),
	}

	if len(t.KeyPoints) == 0 {
		return PoseTensors{}, fmt.Errorf("keypoint output is not float, check the model outputs fp16 keypoints")
	}

	for i := 0; i < n; i++ {

		if len(outputs.Output[i].BufInt) == 0 {
			return PoseTensors{}, fmt.Errorf("box output %d is not int8, disable want float on the runtime", i)
		}

		t.Strides[i] = Stride{
			Tensor: outputs.Output[i].BufInt,
			ZP:     attrs.ZPs[i],
			Scale:  attrs.Scales[i],
			GridH:  int(attrs.DimHeights[i]),
			GridW:  int(attrs.DimWidths[i]),
		}
	}

	return t, nil
}

// candidates holds the boxes above threshold over all strides
type candidates struct {
	// boxes holds boxLen values per candidate
	boxes   []float32
	probs   []float32
	classID []int
}

// DetectObjects decodes the people found in the outputs.  Box and keypoint
// coordinates are mapped back to the source frame using the resizer.  Results
// are ordered by descending score.
func (y *YOLOv8Pose) DetectObjects(t PoseTensors, resizer *preprocess.Resizer) ([]result.DetectResult, error) {

	total := t.anchors()
	need := y.Params.KeyPointsNumber * 3 * total

	if len(t.KeyPoints) < need {
		return nil, fmt.Errorf("keypoint tensor has %d values, need %d for %d anchors",
			len(t.KeyPoints), need, total)
	}

	data := &candidates{}
	index := 0

	for _, s := range t.Strides {

		if s.GridH == 0 || s.GridW == 0 {
			return nil, fmt.Errorf("invalid grid size %dx%d", s.GridH, s.GridW)
		}

		stride := t.InputHeight / s.GridH
		y.processStride(s, stride, data, index)
		index += s.GridH * s.GridW
	}

	validCount := len(data.probs)

	if validCount == 0 {
		return nil, nil
	}

	indexArray := make([]int, validCount)

	for i := range indexArray {
		indexArray[i] = i
	}

	// sort a copy so data.probs stays indexed by candidate
	probs := append([]float32(nil), data.probs...)
	quickSortIndiceInverse(probs, 0, validCount-1, indexArray)

	classSet := make(map[int]bool)

	for _, id := range data.classID {
		classSet[id] = true
	}

	for c := range classSet {
		nms(validCount, data.boxes, boxLen, data.classID, indexArray, c,
			y.Params.NMSThreshold)
	}

	people := make([]result.DetectResult, 0)

	for i := 0; i < validCount; i++ {

		if indexArray[i] == -1 || len(people) >= y.Params.MaxObjectNumber {
			continue
		}

		n := indexArray[i]

		x1 := clamp(data.boxes[n*boxLen+0], 0, uint32(t.InputWidth))
		y1 := clamp(data.boxes[n*boxLen+1], 0, uint32(t.InputHeight))
		x2 := clamp(data.boxes[n*boxLen+0]+data.boxes[n*boxLen+2], 0, uint32(t.InputWidth))
		y2 := clamp(data.boxes[n*boxLen+1]+data.boxes[n*boxLen+3], 0, uint32(t.InputHeight))
		anchor := int(data.boxes[n*boxLen+4])

		left, top := resizer.ToSource(x1, y1)
		right, bottom := resizer.ToSource(x2, y2)

		keyPoints := make([]result.KeyPoint, y.Params.KeyPointsNumber)

		for j := range keyPoints {
			base := j * 3 * total

			kx, ky := resizer.ToSource(t.KeyPoints[base+anchor], t.KeyPoints[base+total+anchor])

			keyPoints[j] = result.KeyPoint{
				X:     kx,
				Y:     ky,
				Score: t.KeyPoints[base+2*total+anchor],
			}
		}

		people = append(people, result.DetectResult{
			Box: result.BoxRect{
				Left:   int(left),
				Top:    int(top),
				Right:  int(right),
				Bottom: int(bottom),
			},
			Probability: data.probs[n],
			Class:       data.classID[n],
			ID:          y.idGen.GetNext(),
			KeyPoints:   keyPoints,
		})
	}

	return people, nil
}

// processStride appends the boxes of one stride scoring over the threshold
func (y *YOLOv8Pose) processStride(s Stride, stride int, data *candidates, index int) {

	gridLen := s.GridH * s.GridW
	thresI8 := qntF32ToAffine(unsigmoid(y.Params.BoxThreshold), s.ZP, s.Scale)
	loc := make([]float32, boxLocLen)

	for h := 0; h < s.GridH; h++ {
		for w := 0; w < s.GridW; w++ {
			for a := 0; a < y.Params.ObjectClassNum; a++ {

				offset := (boxLocLen+a)*gridLen + h*s.GridW + w

				if s.Tensor[offset] < thresI8 {
					continue
				}

				boxConf := sigmoid(deqntAffineToF32(s.Tensor[offset], s.ZP, s.Scale))

				for i := 0; i < boxLocLen; i++ {
					loc[i] = deqntAffineToF32(s.Tensor[i*gridLen+h*s.GridW+w], s.ZP, s.Scale)
				}

				// expected distance of each box side from the distribution
				var dist [4]float32

				for side := 0; side < 4; side++ {
					bins := loc[side*dflLen : (side+1)*dflLen]
					softmax(bins, dflLen)

					for b, p := range bins {
						dist[side] += p * float32(b)
					}
				}

				cx := float32(w) + 0.5
				cy := float32(h) + 0.5

				x1 := (cx - dist[0]) * float32(stride)
				y1 := (cy - dist[1]) * float32(stride)
				x2 := (cx + dist[2]) * float32(stride)
				y2 := (cy + dist[3]) * float32(stride)

				data.boxes = append(data.boxes, x1, y1, x2-x1, y2-y1,
					float32(index+h*s.GridW+w))
				data.probs = append(data.probs, boxConf)
				data.classID = append(data.classID, a)
			}
		}
	}
}
