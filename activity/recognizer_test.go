package activity

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/window"
)

// stubClassifier returns a fixed distribution and records every window it
// was asked to classify
type stubClassifier struct {
	dist    []float32
	err     error
	batches []*mat.Dense
}

func (s *stubClassifier) Predict(ctx context.Context, batch *mat.Dense) ([]float32, error) {

	s.batches = append(s.batches, mat.DenseCopyOf(batch))

	if s.err != nil {
		return nil, s.err
	}

	return s.dist, nil
}

// point returns a single landmark set whose F=2 feature vector is (v, v)
func point(v float32) *landmark.Set {
	return &landmark.Set{Points: []landmark.Landmark{{X: v, Y: v}}}
}

func newTestRecognizer(t *testing.T, mode window.Mode, cls Classifier) *Recognizer {

	logger, _ := test.NewNullLogger()

	r, err := NewRecognizer(landmark.FeatureBuilder{Features: 2}, 3, mode, cls,
		DefaultLabels, WithLogger(log.NewEntry(logger)))
	require.NoError(t, err)

	return r
}

func TestSlidingMode(t *testing.T) {

	cls := &stubClassifier{dist: []float32{0.1, 0.7, 0.2}}
	r := newTestRecognizer(t, window.Sliding, cls)

	classified := []bool{false, false, true, true}

	for i := 0; i < 4; i++ {
		_, ok, err := r.Observe(context.Background(), point(float32(i+1)))
		require.NoError(t, err)
		assert.Equalf(t, classified[i], ok, "classification after push %d", i+1)
	}

	want := []landmark.Vector{{2, 2}, {3, 3}, {4, 4}}

	if diff := cmp.Diff(want, r.Vectors()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, cls.batches, 2)

	assert.True(t, mat.Equal(mat.NewDense(3, 2, []float64{1, 1, 2, 2, 3, 3}), cls.batches[0]))
	assert.True(t, mat.Equal(mat.NewDense(3, 2, []float64{2, 2, 3, 3, 4, 4}), cls.batches[1]))
}

func TestBatchMode(t *testing.T) {

	cls := &stubClassifier{dist: []float32{0.1, 0.7, 0.2}}
	r := newTestRecognizer(t, window.Batch, cls)

	classified := []bool{false, false, true, false}

	for i := 0; i < 4; i++ {
		_, ok, err := r.Observe(context.Background(), point(float32(i+1)))
		require.NoError(t, err)
		assert.Equalf(t, classified[i], ok, "classification after push %d", i+1)
	}

	assert.Equal(t, []landmark.Vector{{4, 4}}, r.Vectors())
	assert.Len(t, cls.batches, 1)
}

func TestDetectionGap(t *testing.T) {

	cls := &stubClassifier{dist: []float32{0.1, 0.7, 0.2}}

	r, err := NewRecognizer(landmark.FeatureBuilder{Features: 2}, 10, window.Sliding,
		cls, DefaultLabels)
	require.NoError(t, err)

	frames := []*landmark.Set{point(1), nil, point(3), nil, point(5)}

	for _, f := range frames {
		_, ok, err := r.Observe(context.Background(), f)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	held, capacity := r.Window()
	assert.Equal(t, 3, held)
	assert.Equal(t, 10, capacity)
	assert.Equal(t, []landmark.Vector{{1, 1}, {3, 3}, {5, 5}}, r.Vectors())
	assert.Empty(t, cls.batches)
}

func TestEndToEndSitting(t *testing.T) {

	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	cls := &stubClassifier{dist: []float32{0.1, 0.7, 0.2}}

	r, err := NewRecognizer(landmark.FeatureBuilder{Features: landmark.DefaultFeatures}, 5,
		window.Sliding, cls, DefaultLabels,
		WithLogger(log.NewEntry(logger)),
		WithClock(func() time.Time { return at }))
	require.NoError(t, err)

	set := &landmark.Set{Layout: landmark.BlazePose33, Points: make([]landmark.Landmark, 33)}

	var (
		res Result
		ok  bool
	)

	for i := 0; i < 5; i++ {
		res, ok, err = r.Observe(context.Background(), set)
		require.NoError(t, err)
	}

	require.True(t, ok)
	assert.Equal(t, Sitting, res.Label)
	assert.Equal(t, at, res.Time)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "activity detected", entry.Message)
	assert.Equal(t, log.DebugLevel, entry.Level)
	assert.Equal(t, Sitting, entry.Data["label"])
	assert.Equal(t, "2024-05-01 10:30:00", entry.Data["at"])

	// user facing result lines come from the presenters
	logger.SetLevel(log.InfoLevel)
	hook.Reset()

	_, _, err = r.Observe(context.Background(), set)
	require.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}

func TestClassifierError(t *testing.T) {

	boom := errors.New("npu timeout")
	cls := &stubClassifier{err: boom}
	r := newTestRecognizer(t, window.Batch, cls)

	var err error

	for i := 0; i < 3; i++ {
		_, _, err = r.Observe(context.Background(), point(1))
	}

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// the failed window is not retried
	held, _ := r.Window()
	assert.Equal(t, 0, held)
}

func TestMappingError(t *testing.T) {

	cls := &stubClassifier{dist: []float32{0.5, 0.5}}
	r := newTestRecognizer(t, window.Sliding, cls)

	var err error

	for i := 0; i < 3; i++ {
		_, _, err = r.Observe(context.Background(), point(1))
	}

	assert.Error(t, err)
}

func TestNaNDistribution(t *testing.T) {

	cls := &stubClassifier{dist: []float32{float32(math.NaN()), 0.7, 0.2}}
	r := newTestRecognizer(t, window.Sliding, cls)

	var (
		res Result
		ok  bool
		err error
	)

	for i := 0; i < 3; i++ {
		res, ok, err = r.Observe(context.Background(), point(1))
	}

	assert.ErrorContains(t, err, "not finite")
	assert.False(t, ok)
	assert.Empty(t, res.Label)
}

func TestNewRecognizerValidation(t *testing.T) {

	b := landmark.FeatureBuilder{Features: 2}

	_, err := NewRecognizer(b, 3, window.Sliding, nil, DefaultLabels)
	assert.Error(t, err)

	_, err = NewRecognizer(b, 3, window.Sliding, &stubClassifier{}, nil)
	assert.Error(t, err)

	_, err = NewRecognizer(b, 0, window.Sliding, &stubClassifier{}, DefaultLabels)
	assert.Error(t, err)
}

func TestClassifierFunc(t *testing.T) {

	var called bool

	f := ClassifierFunc(func(ctx context.Context, batch *mat.Dense) ([]float32, error) {
		called = true
		return []float32{1, 0, 0}, nil
	})

	r, err := NewRecognizer(landmark.FeatureBuilder{Features: 1}, 1, window.Sliding, f, DefaultLabels)
	require.NoError(t, err)

	res, ok, err := r.Observe(context.Background(), point(1))
	require.NoError(t, err)

	assert.True(t, ok)
	assert.True(t, called)
	assert.Equal(t, Falling, res.Label)
}
