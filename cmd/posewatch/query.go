package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/swdee/go-posewatch"
)

var queryCmd = &cobra.Command{
	Use:   "query [model]",
	Short: "Print the tensor attributes of a model, the activity model when none given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {

	modelFile := cfg.Models.Activity

	if len(args) == 1 {
		modelFile = args[0]
	}

	rt, err := posewatch.NewRuntimeByPlatform(cfg.Platform, modelFile)

	if err != nil {
		return err
	}

	defer rt.Close()

	return rt.Query(os.Stdout)
}
