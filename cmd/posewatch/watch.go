package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swdee/go-posewatch/activity"
	"github.com/swdee/go-posewatch/emitter"
	"github.com/swdee/go-posewatch/pipeline"
	"github.com/swdee/go-posewatch/present"
	"github.com/swdee/go-posewatch/render"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the source and classify activity",
	RunE:  runWatch,
}

var (
	showWindow bool
	mjpegAddr  string
)

func init() {
	watchCmd.Flags().BoolVarP(&showWindow, "window", "w", false, "Show frames in a desktop window")
	watchCmd.Flags().StringVarP(&mjpegAddr, "addr", "a", "", "MJPEG stream listen address, overrides the config")
}

func runWatch(cmd *cobra.Command, args []string) error {

	if showWindow {
		cfg.Present.Window = true
	}

	if mjpegAddr != "" {
		cfg.Present.MJPEG = mjpegAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(cfg)

	if err != nil {
		return err
	}

	defer engine.Close()

	fb, err := featureBuilder(cfg)

	if err != nil {
		return err
	}

	mode, err := cfg.WindowMode()

	if err != nil {
		return err
	}

	recognizer, err := activity.NewRecognizer(fb, cfg.Window.Capacity, mode,
		engine.Classifier, engine.Labels,
		activity.WithLogger(log.WithField("component", "activity")))

	if err != nil {
		return err
	}

	text, err := render.NewText(cfg.Present.Font, cfg.Present.FontSize)

	if err != nil {
		return err
	}

	defer text.Close()

	presenters, err := buildPresenters(ctx)

	if err != nil {
		return err
	}

	defer func() {
		for _, p := range presenters {
			if err := p.Close(); err != nil {
				log.WithError(err).Warn("error closing presenter")
			}
		}
	}()

	loop := pipeline.NewLoop(pipeline.OpenCapture, engine.Extractor, recognizer, pipeline.Config{
		Interval:     cfg.Capture.Interval,
		Buffer:       cfg.Capture.Buffer,
		EncodeFrames: cfg.Present.Window || cfg.Present.MJPEG != "",
		Annotate:     text.Annotator(cfg.Present.Thickness),
	})

	if err := loop.Start(ctx, cfg.Source); err != nil {
		return err
	}

	// the snapshot channel closes once the session ends so present.Run
	// returns
	go func() {
		loop.Wait()
		loop.Close()
	}()

	// presenters run on the main goroutine as the desktop window requires it
	perr := present.Run(ctx, loop.Snapshots(), presenters...)

	err = loop.Close()

	if dropped := loop.Dropped(); dropped > 0 {
		log.WithField("dropped", dropped).Info("snapshots dropped by slow presentation")
	}

	switch {
	case errors.Is(err, pipeline.ErrEndOfStream):
		log.Info("source ended")
		return nil
	case err != nil:
		return err
	case perr != nil && !errors.Is(perr, present.ErrQuit) && !errors.Is(perr, context.Canceled):
		return perr
	}

	return nil
}

// buildPresenters returns the configured presenters, logging is always on
func buildPresenters(ctx context.Context) ([]present.Presenter, error) {

	logp := present.NewLog(log.WithField("component", "present"))
	logp.OnChange = cfg.Present.OnChange

	presenters := []present.Presenter{logp}

	if cfg.Present.MJPEG != "" {
		m := present.NewMJPEG(cfg.Present.MJPEG)
		m.Start()
		presenters = append(presenters, m)
	}

	if cfg.Present.Window {
		presenters = append(presenters, present.NewWindow(cfg.Present.Title))
	}

	if cfg.MQTT.Enabled {
		e := emitter.NewMQTT(cfg.MQTT.Config)

		if err := e.Connect(ctx); err != nil {
			for _, p := range presenters {
				p.Close()
			}

			return nil, err
		}

		presenters = append(presenters, e)
	}

	return presenters, nil
}
