// Package window provides the fixed capacity buffer of recent feature vectors
// that forms one activity classification input.
package window

import (
	"fmt"
	"strings"

	"github.com/swdee/go-posewatch/landmark"
	"gonum.org/v1/gonum/mat"
)

// Mode defines how the window is reused between classifications
type Mode int

const (
	// Sliding keeps the window populated so every push after it first fills
	// produces a new overlapping window
	Sliding Mode = iota
	// Batch empties the window after each classification so windows do not
	// overlap
	Batch
)

// String returns the mode name as used in configuration files
func (m Mode) String() string {
	switch m {
	case Sliding:
		return "sliding"
	case Batch:
		return "batch"
	default:
		return "unknown"
	}
}

// ParseMode returns the Mode for the given name
func ParseMode(name string) (Mode, error) {

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sliding", "":
		return Sliding, nil
	case "batch":
		return Batch, nil
	}

	return Sliding, fmt.Errorf("unknown window mode: %s", name)
}

// Buffer is an ordered FIFO of at most Capacity feature vectors, oldest first.
// It is not safe for concurrent use, the capture worker owns it.
type Buffer struct {
	// capacity is the maximum number of vectors W held
	capacity int
	// features is the length F every pushed vector must have
	features int
	mode     Mode
	vectors  []landmark.Vector
}

// New returns an empty Buffer holding up to capacity vectors of the given
// feature length
func New(capacity, features int, mode Mode) (*Buffer, error) {

	if capacity <= 0 {
		return nil, fmt.Errorf("window capacity must be positive, got %d", capacity)
	}

	if features <= 0 {
		return nil, fmt.Errorf("window feature length must be positive, got %d", features)
	}

	return &Buffer{
		capacity: capacity,
		features: features,
		mode:     mode,
		vectors:  make([]landmark.Vector, 0, capacity+1),
	}, nil
}

// Push appends the vector to the end of the window, evicting the oldest
// vector when the window is already at capacity
func (b *Buffer) Push(v landmark.Vector) error {

	if len(v) != b.features {
		return fmt.Errorf("vector length %d does not match window feature length %d",
			len(v), b.features)
	}

	b.vectors = append(b.vectors, v)

	if len(b.vectors) > b.capacity {
		// shift down rather than reslice so the backing array does not grow
		copy(b.vectors, b.vectors[1:])
		b.vectors[len(b.vectors)-1] = nil
		b.vectors = b.vectors[:b.capacity]
	}

	return nil
}

// IsFull returns true when the window holds exactly Capacity vectors
func (b *Buffer) IsFull() bool {
	return len(b.vectors) == b.capacity
}

// Len returns the number of vectors held
func (b *Buffer) Len() int {
	return len(b.vectors)
}

// Capacity returns the window capacity W
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Features returns the feature vector length F
func (b *Buffer) Features() int {
	return b.features
}

// Mode returns the window reuse mode
func (b *Buffer) Mode() Mode {
	return b.mode
}

// Drain removes and returns all vectors in insertion order leaving the window
// empty
func (b *Buffer) Drain() []landmark.Vector {

	out := make([]landmark.Vector, len(b.vectors))
	copy(out, b.vectors)

	b.Reset()

	return out
}

// Reset empties the window
func (b *Buffer) Reset() {

	for i := range b.vectors {
		b.vectors[i] = nil
	}

	b.vectors = b.vectors[:0]
}

// Vectors returns a copy of the vectors currently held, oldest first
func (b *Buffer) Vectors() []landmark.Vector {

	out := make([]landmark.Vector, len(b.vectors))

	for i, v := range b.vectors {
		out[i] = append(landmark.Vector(nil), v...)
	}

	return out
}

// Matrix returns the window as a Len x F matrix with one row per vector,
// oldest first.  A full window is the single sample of a [1, W, F] batch.
func (b *Buffer) Matrix() *mat.Dense {

	if len(b.vectors) == 0 {
		return nil
	}

	data := make([]float64, 0, len(b.vectors)*b.features)

	for _, v := range b.vectors {
		for _, val := range v {
			data = append(data, float64(val))
		}
	}

	return mat.NewDense(len(b.vectors), b.features, data)
}
