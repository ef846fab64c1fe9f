package pipeline

import "errors"

var (
	// ErrSourceOpen is returned by Start when the frame source can not be
	// opened
	ErrSourceOpen = errors.New("unable to open frame source")
	// ErrEndOfStream ends a session when the source has no more frames or a
	// frame read fails
	ErrEndOfStream = errors.New("end of stream")
	// ErrExtractor ends a session when landmark extraction fails
	ErrExtractor = errors.New("landmark extraction failed")
	// ErrClassifier ends a session when activity classification fails
	ErrClassifier = errors.New("activity classification failed")
	// ErrAlreadyCapturing is returned by Start while a session is running
	ErrAlreadyCapturing = errors.New("capture already running")
)
