package landmark

import "fmt"

// ValuesPerLandmark is the number of values each landmark contributes to a
// feature vector, being x, y, z and visibility
const ValuesPerLandmark = 4

// DefaultFeatures is the feature vector length of models trained on 33
// BlazePose landmarks
const DefaultFeatures = 33 * ValuesPerLandmark

// Vector is a fixed length feature vector built from one landmark Set
type Vector []float32

// FeatureBuilder flattens landmark sets into feature vectors of a fixed length
type FeatureBuilder struct {
	// Features is the length F of every vector built
	Features int
}

// NewFeatureBuilder returns a FeatureBuilder producing vectors of the given
// length
func NewFeatureBuilder(features int) (FeatureBuilder, error) {

	if features <= 0 {
		return FeatureBuilder{}, fmt.Errorf("feature length must be positive, got %d", features)
	}

	return FeatureBuilder{Features: features}, nil
}

// Build flattens the landmarks as x, y, z, visibility in set order.  The
// result is right padded with zeros when the set is short of F values and
// truncated to the first F values when it is long, so it always has length F.
func (b FeatureBuilder) Build(set *Set) Vector {

	v := make(Vector, b.Features)

	if set == nil {
		return v
	}

	i := 0

	for _, lm := range set.Points {
		for _, val := range [ValuesPerLandmark]float32{lm.X, lm.Y, lm.Z, lm.Visibility} {
			if i >= b.Features {
				return v
			}

			v[i] = val
			i++
		}
	}

	return v
}
