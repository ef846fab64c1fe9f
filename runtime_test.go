package posewatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestPlatformCores(t *testing.T) {

	tests := []struct {
		platform string
		cores    []CoreMask
	}{
		{"rk3588", RK3588},
		{" RK3576 ", RK3576},
		{"rk3566", RK3566},
	}

	for _, tc := range tests {
		got, err := PlatformCores(tc.platform)
		require.NoError(t, err)
		assert.Equal(t, tc.cores, got)
	}

	_, err := PlatformCores("rk9999")
	assert.Error(t, err)
}

func TestPoolCoreRoundRobin(t *testing.T) {

	want := []CoreMask{NPUCore0, NPUCore1, NPUCore2, NPUCore0, NPUCore1}

	for i, core := range want {
		assert.Equalf(t, core, poolCore(RK3588, i), "runtime %d", i)
	}

	assert.Equal(t, NPUSkipSetCore, poolCore(RK3566, 4))
}

func TestCPUMaskByPlatform(t *testing.T) {

	mask, err := CPUMaskByPlatform("rk3588", FastCores)
	require.NoError(t, err)
	assert.Equal(t, CPUCoreMask([]int{4, 5, 6, 7}), mask)

	mask, err = CPUMaskByPlatform("RK3582", AllCores)
	require.NoError(t, err)
	assert.Equal(t, RK3582AllCores, mask)

	_, err = CPUMaskByPlatform("pi5", FastCores)
	assert.Error(t, err)
}

func TestParseCoreType(t *testing.T) {

	ct, err := ParseCoreType("Slow")
	require.NoError(t, err)
	assert.Equal(t, SlowCores, ct)

	ct, err = ParseCoreType("")
	require.NoError(t, err)
	assert.Equal(t, FastCores, ct)

	_, err = ParseCoreType("medium")
	assert.Error(t, err)
}

func TestFloat16ToFloat32(t *testing.T) {

	vals := []float32{0, 1, -2.5, 0.5, 65504}
	buf := make([]uint16, len(vals))

	for i, v := range vals {
		buf[i] = float16.Fromfloat32(v).Bits()
	}

	assert.Equal(t, vals, float16ToFloat32(buf))
}

func TestErrorCodesString(t *testing.T) {

	assert.Equal(t, "execution timed out", ErrTimeout.String())
	assert.Equal(t, "unknown error code 42", ErrorCodes(42).String())
}

func TestTensorAttrShape(t *testing.T) {

	var a TensorAttr
	a.NDims = uint32(copy(a.Dims[:], []uint32{1, 1, 30, 132}))

	assert.Equal(t, []uint32{1, 1, 30, 132}, a.Shape())
	assert.Equal(t, 3960, a.Elements())
	assert.Equal(t, []uint32{30, 132}, a.Squeeze(2))
	assert.Equal(t, []uint32{1, 30, 132}, a.Squeeze(3))

	a.NDims = uint32(copy(a.Dims[:], []uint32{1, 1})) // shorter than before
	assert.Equal(t, []uint32{1, 1}, a.Squeeze(2))
	assert.Equal(t, []uint32{1}, a.Squeeze(1))
	assert.Equal(t, 1, a.Elements())

	assert.Equal(t, 0, TensorAttr{}.Elements())
	assert.Empty(t, TensorAttr{}.Squeeze(2))

	// NDims beyond the dims array is clamped
	a.NDims = 99
	assert.Len(t, a.Shape(), len(a.Dims))
}

func TestTensorAttrString(t *testing.T) {

	var a TensorAttr
	a.NDims = uint32(copy(a.Dims[:], []uint32{1, 3}))
	a.Name = "probs"
	a.Fmt = TensorUndefined
	a.Type = TensorFloat16
	a.QntType = TensorQntNone
	a.NElems = 3
	a.Size = 6
	a.Scale = 1

	assert.Equal(t, `#0 "probs" [1 3] UNDEFINED FP16/NONE zp=0 scale=1 (3 values, 6 bytes)`, a.String())
	assert.Equal(t, "UNKNOWN(999)", TensorType(999).String())
}
