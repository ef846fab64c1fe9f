package main

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-posewatch/activity"
	"github.com/swdee/go-posewatch/dataset"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [label...]",
	Short: "Merge recorded sequences by label, all labels when none given",
	RunE:  runMerge,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recorded sequence files",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file>...",
	Short: "Delete recorded sequence files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

var augmentCmd = &cobra.Command{
	Use:   "augment <label>",
	Short: "Generate interpolated sequences from the recordings of a label",
	Args:  cobra.ExactArgs(1),
	RunE:  runAugment,
}

var (
	augmentCount int
	augmentOut   string
	augmentSeed  int64
)

func init() {
	flags := augmentCmd.Flags()
	flags.IntVarP(&augmentCount, "count", "n", 100, "Number of sequences to generate")
	flags.StringVarP(&augmentOut, "out", "o", "increase_data", "Output directory, a sub directory per label is used")
	flags.Int64Var(&augmentSeed, "seed", 0, "Random seed, zero uses the current time")
}

func runMerge(cmd *cobra.Command, args []string) error {

	store, err := dataset.NewStore(cfg.Dataset.Dir)

	if err != nil {
		return err
	}

	labels := args

	if len(labels) == 0 {
		for _, l := range activity.DefaultLabels {
			labels = append(labels, strings.ToLower(l))
		}
	}

	merged := 0

	for _, label := range labels {
		path, rows, err := store.Merge(strings.ToLower(label))

		if err != nil {
			log.WithError(err).WithField("label", label).Warn("nothing merged")
			continue
		}

		merged++

		log.WithFields(log.Fields{
			"label": label,
			"file":  path,
			"rows":  rows,
		}).Info("merged")
	}

	if merged == 0 {
		return fmt.Errorf("no recordings merged in %s", store.Dir())
	}

	return nil
}

func runList(cmd *cobra.Command, args []string) error {

	store, err := dataset.NewStore(cfg.Dataset.Dir)

	if err != nil {
		return err
	}

	files, err := store.List()

	if err != nil {
		return err
	}

	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}

	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {

	store, err := dataset.NewStore(cfg.Dataset.Dir)

	if err != nil {
		return err
	}

	for _, name := range args {
		if err := store.Delete(name); err != nil {
			return err
		}

		log.WithField("file", name).Info("deleted")
	}

	return nil
}

func runAugment(cmd *cobra.Command, args []string) error {

	label := strings.ToLower(args[0])

	store, err := dataset.NewStore(cfg.Dataset.Dir)

	if err != nil {
		return err
	}

	files, err := store.Numbered(label)

	if err != nil {
		return err
	}

	sources := make([]*mat.Dense, 0, len(files))

	for _, f := range files {
		m, err := store.Load(f)

		if err != nil {
			return err
		}

		sources = append(sources, m)
	}

	seed := augmentSeed

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	generated, err := dataset.Augment(sources, augmentCount, rand.New(rand.NewSource(seed)))

	if err != nil {
		return err
	}

	out, err := dataset.NewStore(filepath.Join(augmentOut, label))

	if err != nil {
		return err
	}

	for _, m := range generated {
		if _, err := out.SaveMatrix(label, m); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"label":   label,
		"sources": len(sources),
		"created": len(generated),
		"dir":     out.Dir(),
	}).Info("augmentation complete")

	return nil
}
