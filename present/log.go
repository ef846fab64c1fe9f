package present

import (
	log "github.com/sirupsen/logrus"

	"github.com/swdee/go-posewatch/pipeline"
)

// Log writes classification results and session endings to the logger
type Log struct {
	logger *log.Entry
	// lastLabel suppresses repeating unchanged labels when OnChange is set
	lastLabel string
	// OnChange only logs a result when the label differs from the previous
	OnChange bool
}

// NewLog returns a Log presenter writing to the given logger
func NewLog(logger *log.Entry) *Log {
	return &Log{logger: logger}
}

// Present logs the snapshot result if it has one
func (l *Log) Present(s pipeline.Snapshot) error {

	if s.Final {
		entry := l.logger.WithFields(log.Fields{
			"session": s.Session,
			"frames":  s.Seq,
		})

		if s.Err != nil {
			entry.WithError(s.Err).Warn(s.Status)
		} else {
			entry.Info(s.Status)
		}

		l.lastLabel = ""
		return nil
	}

	if s.Result == nil {
		return nil
	}

	if l.OnChange && s.Result.Label == l.lastLabel {
		return nil
	}

	l.lastLabel = s.Result.Label

	l.logger.WithFields(log.Fields{
		"session":    s.Session,
		"seq":        s.Seq,
		"label":      s.Result.Label,
		"confidence": s.Result.Confidence,
	}).Info(s.Result.String())

	return nil
}

// Close is a no-op
func (l *Log) Close() error {
	return nil
}
