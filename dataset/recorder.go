// Package dataset records labelled landmark sequences for training, stores
// them as CSV and generates augmented sequences from them.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/pipeline"
)

// RecorderState is the stage a Recorder is in
type RecorderState int

const (
	// Waiting for the countdown delay to pass
	Waiting RecorderState = iota
	Recording
	Done
)

// String returns the state name
func (s RecorderState) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Recording:
		return "recording"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// RecorderConfig holds the capture limits
type RecorderConfig struct {
	// Delay before recording starts so the subject can get into position
	Delay time.Duration `yaml:"delay"`
	// MaxFrames is the most rows recorded
	MaxFrames int `yaml:"max_frames"`
	// MaxDuration is the longest a recording runs
	MaxDuration time.Duration `yaml:"max_duration"`
}

// DefaultRecorderConfig returns the standard capture limits
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Delay:       5 * time.Second,
		MaxFrames:   100,
		MaxDuration: 10 * time.Second,
	}
}

// Recorder collects feature rows from frames with landmarks
type Recorder struct {
	cfg     RecorderConfig
	builder landmark.FeatureBuilder
	now     func() time.Time
	begin   time.Time
	rows    []landmark.Vector
	state   RecorderState
}

// NewRecorder returns a Recorder whose countdown starts immediately
func NewRecorder(builder landmark.FeatureBuilder, cfg RecorderConfig) *Recorder {
	return newRecorder(builder, cfg, time.Now)
}

func newRecorder(builder landmark.FeatureBuilder, cfg RecorderConfig, now func() time.Time) *Recorder {
	return &Recorder{
		cfg:     cfg,
		builder: builder,
		now:     now,
		begin:   now().Add(cfg.Delay),
	}
}

// Observe records the landmarks when recording and returns the state after
// the frame.  Frames without landmarks are not recorded but still count
// toward the duration limit.
func (r *Recorder) Observe(set *landmark.Set) RecorderState {

	if r.state == Done {
		return Done
	}

	now := r.now()

	if now.Before(r.begin) {
		return Waiting
	}

	if r.state == Waiting {
		r.state = Recording
		log.Info("recording started")
	}

	if now.Sub(r.begin) >= r.cfg.MaxDuration {
		r.state = Done
		return Done
	}

	if set != nil {
		r.rows = append(r.rows, r.builder.Build(set))
	}

	if len(r.rows) >= r.cfg.MaxFrames {
		r.state = Done
	}

	return r.state
}

// State returns the current state
func (r *Recorder) State() RecorderState {
	return r.state
}

// Rows returns the recorded feature rows
func (r *Recorder) Rows() []landmark.Vector {
	return r.rows
}

// Capture reads frames from src until the recorder is done, the context is
// cancelled or the source ends.  The optional show func is called with each
// frame, its landmarks and the recorder state, and may end capture early by
// returning an error.
func Capture(ctx context.Context, src pipeline.Source, extractor pipeline.Extractor,
	rec *Recorder, show func(img gocv.Mat, set *landmark.Set, state RecorderState) error) error {

	img := gocv.NewMat()
	defer img.Close()

	for rec.State() != Done {

		if err := ctx.Err(); err != nil {
			return err
		}

		err := src.Read(&img)

		if err != nil {
			if errors.Is(err, pipeline.ErrEndOfStream) {
				break
			}

			return fmt.Errorf("error reading frame: %w", err)
		}

		if img.Empty() {
			continue
		}

		set, err := extractor.Detect(img)

		if err != nil {
			return fmt.Errorf("error detecting landmarks: %w", err)
		}

		state := rec.Observe(set)

		if show != nil {
			if err := show(img, set, state); err != nil {
				return err
			}
		}
	}

	return nil
}
