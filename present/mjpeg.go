package present

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/hybridgroup/mjpeg"
	log "github.com/sirupsen/logrus"

	"github.com/swdee/go-posewatch/activity"
	"github.com/swdee/go-posewatch/pipeline"
)

// Status is the JSON body served on /status
type Status struct {
	Session string           `json:"session"`
	Seq     uint64           `json:"seq"`
	Status  string           `json:"status"`
	Result  *activity.Result `json:"result,omitempty"`
	Time    time.Time        `json:"time"`
}

// MJPEG serves the annotated frames as an MJPEG stream on / and the latest
// status as JSON on /status
type MJPEG struct {
	stream *mjpeg.Stream
	server *http.Server

	mu     sync.RWMutex
	status Status
}

// NewMJPEG returns an MJPEG presenter listening on addr once started
func NewMJPEG(addr string) *MJPEG {

	m := &MJPEG{
		stream: mjpeg.NewStream(),
		status: Status{Status: pipeline.StatusNotStarted},
	}

	mux := http.NewServeMux()
	mux.Handle("/", m.stream)
	mux.HandleFunc("/status", m.serveStatus)

	m.server = &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 60 * time.Second,
	}

	return m
}

// Start serves HTTP in the background until Close
func (m *MJPEG) Start() {

	go func() {
		log.WithField("addr", m.server.Addr).Info("mjpeg stream listening")

		err := m.server.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("mjpeg server stopped")
		}
	}()
}

// Handler returns the HTTP handler of the presenter
func (m *MJPEG) Handler() http.Handler {
	return m.server.Handler
}

// Present pushes the frame to connected clients and records the status
func (m *MJPEG) Present(s pipeline.Snapshot) error {

	if len(s.Frame) > 0 {
		m.stream.UpdateJPEG(s.Frame)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.Session = s.Session
	m.status.Seq = s.Seq
	m.status.Status = s.Status
	m.status.Time = s.Time

	if s.Result != nil {
		res := *s.Result
		m.status.Result = &res
	}

	return nil
}

func (m *MJPEG) serveStatus(w http.ResponseWriter, r *http.Request) {

	m.mu.RLock()
	status := m.status
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.WithError(err).Warn("error writing status")
	}
}

// Close shuts the HTTP server down
func (m *MJPEG) Close() error {

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return m.server.Shutdown(ctx)
}
