package pipeline

import (
	"time"

	"github.com/swdee/go-posewatch/activity"
	"github.com/swdee/go-posewatch/landmark"
)

const (
	StatusNotStarted = "Status: Not Started"
	StatusCapturing  = "Status: Capturing"
	StatusStopped    = "Status: Stopped"
)

// Snapshot is the immutable state of one processed frame handed to the
// presentation layer.  Nothing in a Snapshot is shared with the worker.
type Snapshot struct {
	// Session is the ID of the capture session the frame belongs to
	Session string
	// Seq is the frame number within the session, starting at one
	Seq  uint64
	Time time.Time
	// Frame is the annotated frame encoded as JPEG, nil when frame encoding
	// is disabled or for the final snapshot of a session
	Frame []byte
	// Landmarks detected in the frame, nil when nobody was found
	Landmarks *landmark.Set
	// Result is set when the frame completed a window that was classified
	Result *activity.Result
	// Status is the text shown to the user
	Status string
	// Final marks the last snapshot of a session
	Final bool
	// Err is the error that ended the session
	Err error
}
