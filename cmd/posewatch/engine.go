package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/swdee/go-posewatch"
	"github.com/swdee/go-posewatch/activity"
	"github.com/swdee/go-posewatch/config"
	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/lstm"
	"github.com/swdee/go-posewatch/pose"
	"github.com/swdee/go-posewatch/postprocess"
)

// Engine holds the models, it is built once at startup and closed on
// shutdown
type Engine struct {
	pool       *posewatch.Pool
	Extractor  *pose.Extractor
	Classifier *lstm.Classifier
	Labels     activity.Labels
}

// newPoseEngine loads the pose model only, as used when recording training
// data
func newPoseEngine(cfg *config.Config) (*Engine, error) {

	layout, err := cfg.LandmarkLayout()

	if err != nil {
		return nil, err
	}

	pool, err := posewatch.NewPoolByPlatform(cfg.Platform, cfg.Models.PoolSize, cfg.Models.Pose)

	if err != nil {
		return nil, fmt.Errorf("error creating pose runtime pool: %w", err)
	}

	params := postprocess.YOLOv8PoseCOCOParams()
	params.BoxThreshold = cfg.Models.BoxThreshold

	if cfg.Models.NMSThreshold > 0 {
		params.NMSThreshold = cfg.Models.NMSThreshold
	}

	log.WithFields(log.Fields{
		"model":  cfg.Models.Pose,
		"pool":   cfg.Models.PoolSize,
		"layout": layout,
	}).Info("pose model loaded")

	return &Engine{
		pool:      pool,
		Extractor: pose.NewExtractor(pool, params, layout),
	}, nil
}

// newEngine loads the pose and activity models.  The activity model is
// checked against the configured window size, feature length and labels.
func newEngine(cfg *config.Config) (*Engine, error) {

	labels := activity.DefaultLabels

	if cfg.Models.Labels != "" {
		var err error
		labels, err = activity.LoadLabels(cfg.Models.Labels)

		if err != nil {
			return nil, err
		}
	}

	cores, err := posewatch.PlatformCores(cfg.Platform)

	if err != nil {
		return nil, err
	}

	e, err := newPoseEngine(cfg)

	if err != nil {
		return nil, err
	}

	// the LSTM is small, let the driver place it unless core selection is
	// unsupported
	core := posewatch.NPUCoreAuto

	if cores[0] == posewatch.NPUSkipSetCore {
		core = posewatch.NPUSkipSetCore
	}

	e.Classifier, err = lstm.Open(cfg.Models.Activity, core, cfg.Window.Capacity,
		cfg.Window.Features, len(labels))

	if err != nil {
		e.Close()
		return nil, err
	}

	e.Labels = labels

	log.WithFields(log.Fields{
		"model":    cfg.Models.Activity,
		"window":   cfg.Window.Capacity,
		"features": cfg.Window.Features,
		"labels":   labels,
	}).Info("activity model loaded")

	return e, nil
}

// featureBuilder returns the feature builder for the configured feature length
func featureBuilder(cfg *config.Config) (landmark.FeatureBuilder, error) {
	return landmark.NewFeatureBuilder(cfg.Window.Features)
}

// Close releases the models
func (e *Engine) Close() {

	if e.Classifier != nil {
		if err := e.Classifier.Close(); err != nil {
			log.WithError(err).Warn("error closing activity model")
		}
	}

	if e.Extractor != nil {
		e.Extractor.Close()
	}

	if e.pool != nil {
		e.pool.Close()
	}
}
