package landmark

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeSet returns a set of n landmarks with distinct values so flattening
// order can be checked
func makeSet(n int) *Set {

	s := &Set{Points: make([]Landmark, n)}

	for i := range s.Points {
		base := float32(i * 10)
		s.Points[i] = Landmark{X: base + 1, Y: base + 2, Z: base + 3, Visibility: base + 4}
	}

	return s
}

func TestBuildFlattenOrder(t *testing.T) {

	b := FeatureBuilder{Features: 8}
	got := b.Build(makeSet(2))

	want := Vector{1, 2, 3, 4, 11, 12, 13, 14}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLength(t *testing.T) {

	tests := []struct {
		name      string
		landmarks int
		features  int
	}{
		{"mediapipe exact", 33, 132},
		{"mediapipe truncated", 33, 131},
		{"coco padded", 17, 132},
		{"empty set", 0, 10},
		{"single value", 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			set := makeSet(tc.landmarks)
			b := FeatureBuilder{Features: tc.features}
			got := b.Build(set)

			require.Len(t, got, tc.features)

			flat := tc.landmarks * ValuesPerLandmark

			for i := 0; i < tc.features; i++ {
				if i >= flat {
					assert.Equalf(t, float32(0), got[i], "index %d should be zero padded", i)
					continue
				}

				lm := set.Points[i/ValuesPerLandmark]
				want := [ValuesPerLandmark]float32{lm.X, lm.Y, lm.Z, lm.Visibility}[i%ValuesPerLandmark]
				assert.Equalf(t, want, got[i], "index %d should equal flattened prefix", i)
			}
		})
	}
}

func TestBuildNilSet(t *testing.T) {

	got := FeatureBuilder{Features: 4}.Build(nil)
	assert.Equal(t, Vector{0, 0, 0, 0}, got)
}

func TestNewFeatureBuilder(t *testing.T) {

	_, err := NewFeatureBuilder(0)
	assert.Error(t, err)

	b, err := NewFeatureBuilder(DefaultFeatures)
	require.NoError(t, err)
	assert.Equal(t, 132, b.Features)
}
