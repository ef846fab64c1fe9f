package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/postprocess/result"
)

func person() result.DetectResult {

	kps := make([]result.KeyPoint, 17)

	for i := range kps {
		kps[i] = result.KeyPoint{X: float32(i * 10), Y: float32(i * 5), Score: 0.5}
	}

	// out of frame keypoint is clamped
	kps[landmark.RightAnkle] = result.KeyPoint{X: 700, Y: -10, Score: 1.2}

	return result.DetectResult{Probability: 0.8, KeyPoints: kps}
}

func TestToLandmarksCOCO(t *testing.T) {

	set := ToLandmarks(person(), 640, 480, landmark.COCO17)

	require.Len(t, set.Points, 17)
	assert.Equal(t, landmark.COCO17, set.Layout)
	assert.Equal(t, float32(0.8), set.Score)

	shoulder := set.Points[landmark.LeftShoulder]
	assert.InDelta(t, 50.0/640, shoulder.X, 1e-6)
	assert.InDelta(t, 25.0/480, shoulder.Y, 1e-6)
	assert.Equal(t, float32(0), shoulder.Z)
	assert.Equal(t, float32(0.5), shoulder.Visibility)

	ankle := set.Points[landmark.RightAnkle]
	assert.Equal(t, landmark.Landmark{X: 1, Y: 0, Visibility: 1}, ankle)
}

func TestToLandmarksBlazePose(t *testing.T) {

	set := ToLandmarks(person(), 640, 480, landmark.BlazePose33)

	require.Len(t, set.Points, 33)
	assert.Equal(t, landmark.BlazePose33, set.Layout)

	// BlazePose left shoulder is index 11
	assert.InDelta(t, 50.0/640, set.Points[11].X, 1e-6)

	vec := landmark.FeatureBuilder{Features: landmark.DefaultFeatures}.Build(set)
	assert.Len(t, vec, landmark.DefaultFeatures)
}

func TestFromLandmarks(t *testing.T) {

	set := ToLandmarks(person(), 640, 480, landmark.BlazePose33)
	kps := FromLandmarks(set, 640, 480)

	require.Len(t, kps, 17)
	assert.InDelta(t, 50, kps[landmark.LeftShoulder].X, 1e-3)
	assert.InDelta(t, 25, kps[landmark.LeftShoulder].Y, 1e-3)

	assert.Nil(t, FromLandmarks(nil, 640, 480))
}
