// Package activity turns a stream of landmark sets into activity
// classifications by buffering a window of feature vectors and running a
// sequence classifier once the window is full.
package activity

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/window"
)

// Classifier predicts a probability distribution over the activity labels for
// one window.  The batch matrix has one row per frame (W rows) and one column
// per feature (F columns) and forms the single sample of a [1, W, F] input.
type Classifier interface {
	Predict(ctx context.Context, batch *mat.Dense) ([]float32, error)
}

// ClassifierFunc adapts an ordinary function to the Classifier interface
type ClassifierFunc func(ctx context.Context, batch *mat.Dense) ([]float32, error)

// Predict calls f(ctx, batch)
func (f ClassifierFunc) Predict(ctx context.Context, batch *mat.Dense) ([]float32, error) {
	return f(ctx, batch)
}

// Recognizer owns the window of feature vectors for one capture session and
// triggers classification when the window is full.  It must only be used from
// a single goroutine.
type Recognizer struct {
	builder    landmark.FeatureBuilder
	buf        *window.Buffer
	classifier Classifier
	labels     Labels
	// now is the clock used to timestamp results
	now func() time.Time
	// logger used for the timestamped classification line, nil disables it
	logger *log.Entry
}

// RecognizerOption configures optional Recognizer settings
type RecognizerOption func(*Recognizer)

// WithLogger sets the logger the classification line is written to
func WithLogger(l *log.Entry) RecognizerOption {
	return func(r *Recognizer) {
		r.logger = l
	}
}

// WithClock overrides the clock used to timestamp results
func WithClock(now func() time.Time) RecognizerOption {
	return func(r *Recognizer) {
		r.now = now
	}
}

// NewRecognizer returns a Recognizer with an empty window of the given
// capacity and mode.  The feature length is taken from the builder.
func NewRecognizer(builder landmark.FeatureBuilder, capacity int, mode window.Mode,
	classifier Classifier, labels Labels, opts ...RecognizerOption) (*Recognizer, error) {

	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one label is required")
	}

	buf, err := window.New(capacity, builder.Features, mode)

	if err != nil {
		return nil, err
	}

	r := &Recognizer{
		builder:    builder,
		buf:        buf,
		classifier: classifier,
		labels:     labels,
		now:        time.Now,
		logger:     log.NewEntry(log.StandardLogger()),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Observe processes the landmarks of one frame.  A nil set means no person was
// detected and leaves the window untouched.  Otherwise the feature vector is
// pushed and, when the window is full, classified.  The returned bool is true
// only when a classification took place.
func (r *Recognizer) Observe(ctx context.Context, set *landmark.Set) (Result, bool, error) {

	if set == nil {
		return Result{}, false, nil
	}

	err := r.buf.Push(r.builder.Build(set))

	if err != nil {
		return Result{}, false, fmt.Errorf("error pushing feature vector: %w", err)
	}

	if !r.buf.IsFull() {
		return Result{}, false, nil
	}

	res, err := r.classify(ctx)

	// batch mode starts a fresh window after every classification attempt
	if r.buf.Mode() == window.Batch {
		r.buf.Reset()
	}

	if err != nil {
		return Result{}, false, err
	}

	return res, true, nil
}

// classify runs the classifier over the current window
func (r *Recognizer) classify(ctx context.Context) (Result, error) {

	dist, err := r.classifier.Predict(ctx, r.buf.Matrix())

	if err != nil {
		return Result{}, fmt.Errorf("error predicting activity: %w", err)
	}

	res, err := r.labels.Map(dist)

	if err != nil {
		return Result{}, fmt.Errorf("error mapping activity: %w", err)
	}

	res.Time = r.now()

	if r.logger != nil {
		r.logger.WithFields(log.Fields{
			"label":      res.Label,
			"confidence": res.Confidence,
			"at":         res.Time.Format("2006-01-02 15:04:05"),
		}).Debug("activity detected")
	}

	return res, nil
}

// Window returns the number of vectors held and the window capacity
func (r *Recognizer) Window() (held, capacity int) {
	return r.buf.Len(), r.buf.Capacity()
}

// Vectors returns a copy of the current window contents, oldest first
func (r *Recognizer) Vectors() []landmark.Vector {
	return r.buf.Vectors()
}

// Reset empties the window, used when a new capture session starts
func (r *Recognizer) Reset() {
	r.buf.Reset()
}

// Labels returns the label order results are mapped with
func (r *Recognizer) Labels() Labels {
	return r.labels
}
