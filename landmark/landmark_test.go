package landmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLayoutBlazePose(t *testing.T) {

	coco := &Set{Layout: COCO17, Points: make([]Landmark, 17), Score: 0.9}

	for i := range coco.Points {
		coco.Points[i] = Landmark{X: float32(i), Visibility: 1}
	}

	blaze := coco.ToLayout(BlazePose33)

	require.Len(t, blaze.Points, 33)
	assert.Equal(t, BlazePose33, blaze.Layout)
	assert.Equal(t, float32(0.9), blaze.Score)

	// shoulders and ankles land on their BlazePose indices
	assert.Equal(t, float32(LeftShoulder), blaze.Points[11].X)
	assert.Equal(t, float32(RightAnkle), blaze.Points[28].X)

	// mouth has no COCO equivalent
	assert.Equal(t, Landmark{}, blaze.Points[9])

	back := blaze.ToLayout(COCO17)
	assert.Equal(t, coco.Points, back.Points)
}

func TestToLayoutSame(t *testing.T) {

	s := &Set{Layout: COCO17, Points: make([]Landmark, 17)}
	assert.Same(t, s, s.ToLayout(COCO17))

	var empty *Set
	assert.Nil(t, empty.ToLayout(BlazePose33))
	assert.Equal(t, 0, empty.Len())
}

func TestParseLayout(t *testing.T) {

	l, err := ParseLayout(" MediaPipe ")
	require.NoError(t, err)
	assert.Equal(t, BlazePose33, l)
	assert.Equal(t, "blazepose33", l.String())

	l, err = ParseLayout("coco17")
	require.NoError(t, err)
	assert.Equal(t, 17, l.Size())

	_, err = ParseLayout("hands")
	assert.Error(t, err)
}
