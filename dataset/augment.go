package dataset

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	// MinAlpha and MaxAlpha bound the random blend factor used by Augment
	MinAlpha = 0.3
	MaxAlpha = 0.7
)

// Interpolate blends two sequences row by row as alpha*a + (1-alpha)*b over
// the rows they have in common
func Interpolate(a, b *mat.Dense, alpha float64) (*mat.Dense, error) {

	ra, ca := a.Dims()
	rb, cb := b.Dims()

	if ca != cb {
		return nil, fmt.Errorf("sequences have %d and %d columns", ca, cb)
	}

	rows := ra

	if rb < rows {
		rows = rb
	}

	var sa, sb mat.Dense
	sa.Scale(alpha, a.Slice(0, rows, 0, ca))
	sb.Scale(1-alpha, b.Slice(0, rows, 0, cb))

	out := mat.NewDense(rows, ca, nil)
	out.Add(&sa, &sb)

	return out, nil
}

// Augment generates n sequences, each blending two distinct randomly chosen
// sources with a random alpha in [MinAlpha, MaxAlpha]
func Augment(sources []*mat.Dense, n int, rng *rand.Rand) ([]*mat.Dense, error) {

	if len(sources) < 2 {
		return nil, fmt.Errorf("need at least 2 sources to augment, got %d", len(sources))
	}

	if n < 0 {
		return nil, fmt.Errorf("number of sequences must not be negative, got %d", n)
	}

	out := make([]*mat.Dense, 0, n)

	for i := 0; i < n; i++ {

		first := rng.Intn(len(sources))
		second := rng.Intn(len(sources) - 1)

		if second >= first {
			second++
		}

		alpha := MinAlpha + (MaxAlpha-MinAlpha)*rng.Float64()

		m, err := Interpolate(sources[first], sources[second], alpha)

		if err != nil {
			return nil, fmt.Errorf("error blending sources %d and %d: %w", first, second, err)
		}

		out = append(out, m)
	}

	return out, nil
}
