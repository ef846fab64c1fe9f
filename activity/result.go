package activity

import (
	"fmt"
	"time"
)

// Result is the outcome of classifying one full window
type Result struct {
	// Label is the human readable class name
	Label string `json:"label"`
	// Index of the label in the classifier output
	Index int `json:"index"`
	// Confidence is the probability of the chosen class
	Confidence float32 `json:"confidence"`
	// Distribution is the full classifier output
	Distribution []float32 `json:"distribution"`
	// Time the window was classified
	Time time.Time `json:"time"`
}

// IsFalling returns true when the result is the Falling class
func (r Result) IsFalling() bool {
	return r.Label == Falling
}

// String returns the result in the form shown to the user
func (r Result) String() string {
	return fmt.Sprintf("Detected: %s (%.2f)", r.Label, r.Confidence)
}
