package activity

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
)

const (
	Falling  = "Falling"
	Sitting  = "Sitting"
	Standing = "Standing"
)

// DefaultLabels is the class order the activity models were trained with
var DefaultLabels = Labels{Falling, Sitting, Standing}

// Labels is the ordered list of class names, the index of each label matches
// the classifier output index
type Labels []string

// LoadLabels reads the labels used to train the Model from the given text file.
// It should contain one label per line, blank lines are ignored.
func LoadLabels(file string) (Labels, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels Labels

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		labels = append(labels, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels found in %s", file)
	}

	return labels, nil
}

// Index returns the position of the named label or -1 if not present
func (l Labels) Index(name string) int {

	for i, lbl := range l {
		if strings.EqualFold(lbl, name) {
			return i
		}
	}

	return -1
}

// Map converts a classifier output distribution into a Result.  The label at
// the index of the highest probability is chosen, where several classes share
// the maximum the lowest index wins.  A NaN or infinite value is an error as
// no class can be chosen from it.
func (l Labels) Map(dist []float32) (Result, error) {

	if len(dist) != len(l) {
		return Result{}, fmt.Errorf("distribution has %d classes but %d labels are defined",
			len(dist), len(l))
	}

	if len(dist) == 0 {
		return Result{}, fmt.Errorf("empty distribution")
	}

	for i, v := range dist {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Result{}, fmt.Errorf("distribution value %d is not finite: %v", i, v)
		}
	}

	best := 0

	for i := 1; i < len(dist); i++ {
		// strictly greater keeps the first maximum
		if dist[i] > dist[best] {
			best = i
		}
	}

	return Result{
		Label:        l[best],
		Index:        best,
		Confidence:   dist[best],
		Distribution: append([]float32(nil), dist...),
	}, nil
}
