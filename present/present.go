// Package present drains capture snapshots on its own goroutine and shows
// them to the user.
package present

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/swdee/go-posewatch/pipeline"
)

// ErrQuit is returned by a presenter when the user asked to quit
var ErrQuit = errors.New("quit requested")

// Presenter shows snapshots to the user
type Presenter interface {
	Present(s pipeline.Snapshot) error
	Close() error
}

// Run hands every snapshot to each presenter until the channel is closed,
// the context is done or a presenter returns ErrQuit.  Other presenter errors
// are logged and do not stop the run.
func Run(ctx context.Context, snapshots <-chan pipeline.Snapshot, presenters ...Presenter) error {

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s, ok := <-snapshots:
			if !ok {
				return nil
			}

			for _, p := range presenters {
				err := p.Present(s)

				if errors.Is(err, ErrQuit) {
					return err
				}

				if err != nil {
					log.WithError(err).Warn("error presenting snapshot")
				}
			}
		}
	}
}
