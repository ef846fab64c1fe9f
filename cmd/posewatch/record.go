package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/swdee/go-posewatch/dataset"
	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/pipeline"
	"github.com/swdee/go-posewatch/present"
	"github.com/swdee/go-posewatch/render"
)

var recordCmd = &cobra.Command{
	Use:   "record <label>",
	Short: "Record a labelled landmark sequence for training",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecord,
}

var (
	recordDelay    time.Duration
	recordFrames   int
	recordDuration time.Duration
	recordShow     bool
)

func init() {
	flags := recordCmd.Flags()
	flags.DurationVar(&recordDelay, "delay", 0, "Countdown before recording starts, overrides the config")
	flags.IntVar(&recordFrames, "frames", 0, "Maximum frames to record, overrides the config")
	flags.DurationVar(&recordDuration, "duration", 0, "Maximum recording time, overrides the config")
	flags.BoolVarP(&recordShow, "window", "w", false, "Show frames in a desktop window")
}

func runRecord(cmd *cobra.Command, args []string) error {

	label := strings.ToLower(args[0])
	rcfg := cfg.Dataset.RecorderConfig

	if recordDelay > 0 {
		rcfg.Delay = recordDelay
	}

	if recordFrames > 0 {
		rcfg.MaxFrames = recordFrames
	}

	if recordDuration > 0 {
		rcfg.MaxDuration = recordDuration
	}

	store, err := dataset.NewStore(cfg.Dataset.Dir)

	if err != nil {
		return err
	}

	fb, err := featureBuilder(cfg)

	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newPoseEngine(cfg)

	if err != nil {
		return err
	}

	defer engine.Close()

	src, err := pipeline.OpenCapture(cfg.Source)

	if err != nil {
		return fmt.Errorf("%w %s: %v", pipeline.ErrSourceOpen, cfg.Source, err)
	}

	defer src.Close()

	var show func(img gocv.Mat, set *landmark.Set, state dataset.RecorderState) error

	if recordShow {
		text, err := render.NewText(cfg.Present.Font, cfg.Present.FontSize)

		if err != nil {
			return err
		}

		defer text.Close()

		win := gocv.NewWindow(cfg.Present.Title)
		defer win.Close()

		annotate := text.Annotator(cfg.Present.Thickness)

		show = func(img gocv.Mat, set *landmark.Set, state dataset.RecorderState) error {

			frame := img.Clone()
			defer frame.Close()

			annotate(&frame, set, fmt.Sprintf("Record %s: %s", label, state))
			win.IMShow(frame)

			switch win.WaitKey(1) {
			case 'q', 27:
				return present.ErrQuit
			}

			return nil
		}
	}

	rec := dataset.NewRecorder(fb, rcfg)

	log.WithFields(log.Fields{
		"label":    label,
		"delay":    rcfg.Delay,
		"frames":   rcfg.MaxFrames,
		"duration": rcfg.MaxDuration,
	}).Info("get into position, recording starts after the delay")

	err = dataset.Capture(ctx, src, engine.Extractor, rec, show)

	if err != nil && !errors.Is(err, present.ErrQuit) && !errors.Is(err, context.Canceled) {
		return err
	}

	rows := rec.Rows()

	if len(rows) == 0 {
		return fmt.Errorf("no landmarks were recorded")
	}

	path, err := store.Save(label, rows)

	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"file": path,
		"rows": len(rows),
	}).Info("recording saved")

	return nil
}
