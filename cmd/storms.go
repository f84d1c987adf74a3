package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/storm"
)

var stormsCmd = &cobra.Command{
	Use:   "storms",
	Short: "Manage storm swath data",
}

var stormsLoadCmd = &cobra.Command{
	Use:   "load <file.shp>",
	Short: "Load storm swath polygons from a shapefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		events, err := storm.LoadShapefile(args[0])
		if err != nil {
			return err
		}

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		inserted, err := env.Store.InsertStormEvents(ctx, events)
		if err != nil {
			return err
		}

		zap.L().Info("loaded storm swaths",
			zap.String("file", args[0]),
			zap.Int("parsed", len(events)),
			zap.Int("inserted", inserted),
		)

		return nil
	},
}

func init() {
	stormsCmd.AddCommand(stormsLoadCmd)
	rootCmd.AddCommand(stormsCmd)
}
