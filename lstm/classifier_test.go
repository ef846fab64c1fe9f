package lstm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-posewatch"
)

func tensorAttr(dims ...uint32) posewatch.TensorAttr {

	var a posewatch.TensorAttr
	a.NDims = uint32(copy(a.Dims[:], dims))

	return a
}

func TestCheckInputShape(t *testing.T) {

	tests := []struct {
		name  string
		dims  []uint32
		valid bool
	}{
		{"batch of one", []uint32{1, 10, 132}, true},
		{"no batch dim", []uint32{10, 132}, true},
		{"extra leading ones", []uint32{1, 1, 10, 132}, true},
		{"wrong features", []uint32{1, 10, 131}, false},
		{"wrong window", []uint32{1, 100, 132}, false},
		{"batch of two", []uint32{2, 10, 132}, false},
		{"flat", []uint32{1320}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			err := checkInputShape(tensorAttr(tc.dims...), 10, 132)

			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCheckOutputClasses(t *testing.T) {

	assert.NoError(t, checkOutputClasses(tensorAttr(1, 3), 3))
	assert.NoError(t, checkOutputClasses(tensorAttr(3), 3))
	assert.NoError(t, checkOutputClasses(tensorAttr(1, 1, 3, 1), 3))
	assert.Error(t, checkOutputClasses(tensorAttr(1, 4), 3))
	assert.Error(t, checkOutputClasses(tensorAttr(), 3))
}

func TestFlatten(t *testing.T) {

	batch := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	data, err := flatten(batch, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, data)

	_, err = flatten(batch, 3, 3)
	assert.Error(t, err)

	_, err = flatten(nil, 2, 3)
	assert.Error(t, err)
}
