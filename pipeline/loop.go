// Package pipeline runs the capture and processing loop that reads frames,
// extracts landmarks, classifies activity and publishes snapshots for
// presentation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/swdee/go-posewatch/activity"
	"github.com/swdee/go-posewatch/landmark"
)

// State of the capture loop
type State int32

const (
	Idle State = iota
	Capturing
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// AnnotateFunc draws the landmarks and status text onto a copy of the frame
// before it is encoded for presentation
type AnnotateFunc func(img *gocv.Mat, set *landmark.Set, status string)

// Config holds the optional loop settings
type Config struct {
	// Interval between frame reads, zero reads frames as fast as the source
	// delivers them
	Interval time.Duration
	// Buffer is the number of snapshots held for the presentation layer
	// before the oldest is dropped
	Buffer int
	// EncodeFrames has snapshots carry the JPEG encoded frame
	EncodeFrames bool
	// Annotate is called on the frame copy before encoding, may be nil
	Annotate AnnotateFunc
}

// DefaultConfig returns the loop settings used by the posewatch command
func DefaultConfig() Config {
	return Config{
		Interval:     30 * time.Millisecond,
		Buffer:       4,
		EncodeFrames: true,
	}
}

// Loop owns the frame source and the activity window of a capture session.
// Start, Stop, State, LastResult and Wait are safe to call from any
// goroutine.
type Loop struct {
	open       Opener
	extractor  Extractor
	recognizer *activity.Recognizer
	cfg        Config
	logger     *log.Entry

	snapshots chan Snapshot
	dropped   atomic.Uint64
	state     atomic.Int32
	last      atomic.Pointer[activity.Result]

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	session string
	closed  bool
}

// NewLoop returns an idle Loop
func NewLoop(open Opener, extractor Extractor, recognizer *activity.Recognizer,
	cfg Config) *Loop {

	if cfg.Buffer <= 0 {
		cfg.Buffer = 1
	}

	return &Loop{
		open:       open,
		extractor:  extractor,
		recognizer: recognizer,
		cfg:        cfg,
		logger:     log.WithField("component", "pipeline"),
		snapshots:  make(chan Snapshot, cfg.Buffer),
	}
}

// Start opens the frame source and begins a capture session.  If the source
// fails to open an error wrapping ErrSourceOpen is returned and the loop
// stays Idle.
func (l *Loop) Start(ctx context.Context, id string) error {

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("loop is closed")
	}

	if l.State() == Capturing {
		return ErrAlreadyCapturing
	}

	src, err := l.open(id)

	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrSourceOpen, id, err)
	}

	session := uuid.NewString()
	logger := l.logger.WithFields(log.Fields{
		"session": session,
		"source":  id,
	})

	// each session starts from an empty window
	l.recognizer.Reset()
	l.last.Store(nil)

	runCtx, cancel := context.WithCancel(ctx)

	l.cancel = cancel
	l.done = make(chan struct{})
	l.err = nil
	l.session = session
	l.state.Store(int32(Capturing))

	logger.Info("capture started")

	go l.run(runCtx, cancel, src, session, logger, l.done)

	return nil
}

// Stop asks the running session to end.  The worker observes the request at
// the top of its next iteration and releases the frame source.  Stop does
// not wait, use Wait for that.
func (l *Loop) Stop() {

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
}

// Wait blocks until the current session has ended and returns the error that
// ended it, nil when it was stopped
func (l *Loop) Wait() error {

	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return nil
	}

	<-done

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.err
}

// Close stops any running session, waits for it and closes the snapshot
// channel
func (l *Loop) Close() error {

	l.Stop()
	err := l.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		close(l.snapshots)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// State returns the loop state
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Session returns the ID of the current or last capture session
func (l *Loop) Session() string {

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.session
}

// LastResult returns the most recent classification of the current session
func (l *Loop) LastResult() (activity.Result, bool) {

	res := l.last.Load()

	if res == nil {
		return activity.Result{}, false
	}

	return *res, true
}

// Snapshots returns the channel the presentation layer drains.  It is closed
// by Close.
func (l *Loop) Snapshots() <-chan Snapshot {
	return l.snapshots
}

// Dropped returns the number of snapshots discarded because the
// presentation layer fell behind
func (l *Loop) Dropped() uint64 {
	return l.dropped.Load()
}

// run is the session worker, it is the only goroutine touching the source
// and the recognizer while the session runs
func (l *Loop) run(ctx context.Context, cancel context.CancelFunc, src Source, session string,
	logger *log.Entry, done chan struct{}) {

	var seq uint64

	err := l.capture(ctx, src, session, &seq)

	if cerr := src.Close(); cerr != nil {
		logger.WithError(cerr).Warn("error closing frame source")
	}

	// a requested stop is not an error
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	status := StatusStopped

	if err != nil {
		status = fmt.Sprintf("Status: %v", err)
		logger.WithError(err).Error("capture ended")
	} else {
		logger.WithField("frames", seq).Info("capture stopped")
	}

	l.publish(Snapshot{
		Session: session,
		Seq:     seq,
		Time:    time.Now(),
		Status:  status,
		Final:   true,
		Err:     err,
	})

	// detach the session context from the parent
	cancel()

	l.mu.Lock()
	l.err = err
	l.cancel = nil
	l.state.Store(int32(Idle))
	l.mu.Unlock()

	close(done)
}

// capture reads and processes frames until the context is cancelled or an
// error ends the session
func (l *Loop) capture(ctx context.Context, src Source, session string, seq *uint64) error {

	img := gocv.NewMat()
	defer img.Close()

	var tick <-chan time.Time

	if l.cfg.Interval > 0 {
		ticker := time.NewTicker(l.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		// cooperative stop
		if err := ctx.Err(); err != nil {
			return err
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		err := src.Read(&img)

		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				return err
			}

			return fmt.Errorf("%w: %v", ErrEndOfStream, err)
		}

		if img.Empty() {
			continue
		}

		*seq++

		snap, err := l.process(ctx, img, session, *seq)

		if err != nil {
			return err
		}

		l.publish(snap)
	}
}

// process runs one frame through extraction and classification
func (l *Loop) process(ctx context.Context, img gocv.Mat, session string, seq uint64) (Snapshot, error) {

	set, err := l.extractor.Detect(img)

	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrExtractor, err)
	}

	res, ok, err := l.recognizer.Observe(ctx, set)

	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrClassifier, err)
	}

	snap := Snapshot{
		Session:   session,
		Seq:       seq,
		Time:      time.Now(),
		Landmarks: set,
		Status:    StatusCapturing,
	}

	if ok {
		l.last.Store(&res)
		snap.Result = &res
	}

	// keep showing the latest label between classifications
	if last, found := l.LastResult(); found {
		snap.Status = last.String()
	}

	if l.cfg.EncodeFrames {
		snap.Frame, err = l.encode(img, set, snap.Status)

		if err != nil {
			return Snapshot{}, err
		}
	}

	return snap, nil
}

// encode annotates a copy of the frame and returns it as JPEG bytes
func (l *Loop) encode(img gocv.Mat, set *landmark.Set, status string) ([]byte, error) {

	frame := img.Clone()
	defer frame.Close()

	if l.cfg.Annotate != nil {
		l.cfg.Annotate(&frame, set, status)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)

	if err != nil {
		return nil, fmt.Errorf("error encoding frame: %w", err)
	}

	defer buf.Close()

	// copy out of the native buffer
	return append([]byte(nil), buf.GetBytes()...), nil
}

// publish hands the snapshot to the presentation layer without blocking,
// dropping the oldest pending snapshot when the buffer is full
func (l *Loop) publish(s Snapshot) {

	for {
		select {
		case l.snapshots <- s:
			return
		default:
		}

		select {
		case <-l.snapshots:
			l.dropped.Add(1)
		default:
		}
	}
}
