// Command posewatch watches a video feed and classifies the activity of the
// person in it as Falling, Sitting or Standing.
package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swdee/go-posewatch"
	"github.com/swdee/go-posewatch/config"
)

var (
	configFile string
	logLevel   string
	logJSON    bool
	sourceFlag string
	platform   string

	// cfg is loaded before any sub command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:               "posewatch",
	Short:             "posewatch - pose based activity recognition on Rockchip NPU",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "Log level [debug|info|warn|error]")
	flags.BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	flags.StringVarP(&sourceFlag, "source", "s", "", "Camera index, video file or stream URL, overrides the config")
	flags.StringVarP(&platform, "platform", "p", "", "Rockchip platform [rk3562|rk3566|rk3568|rk3576|rk3582|rk3588], overrides the config")

	rootCmd.AddCommand(watchCmd, recordCmd, mergeCmd, listCmd, deleteCmd, augmentCmd, queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup configures logging and loads the configuration
func setup(cmd *cobra.Command, args []string) error {

	level, err := log.ParseLevel(logLevel)

	if err != nil {
		return err
	}

	log.SetLevel(level)

	if logJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if configFile != "" {
		cfg, err = config.Load(configFile)

		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	if sourceFlag != "" {
		cfg.Source = sourceFlag
	}

	if platform != "" {
		cfg.Platform = platform
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return pinCPU()
}

// pinCPU restricts the process to the configured CPU cores
func pinCPU() error {

	if cfg.CPUCores == "" {
		return nil
	}

	ct, err := posewatch.ParseCoreType(cfg.CPUCores)

	if err != nil {
		return err
	}

	if err := posewatch.SetCPUAffinityByPlatform(cfg.Platform, ct); err != nil {
		return fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	log.WithField("cores", strings.ToLower(cfg.CPUCores)).Debug("cpu affinity set")

	return nil
}
