package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Outaos/data-steward/internal/mapsheet"
)

var mapsheetCmd = &cobra.Command{
	Use:   "mapsheet",
	Short: "Render one PDF map sheet per planting opening",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		outDir, _ := cmd.Flags().GetString("out")
		maxSheets, _ := cmd.Flags().GetInt("max")
		buffer, _ := cmd.Flags().GetFloat64("buffer")

		opts := mapsheet.Options{
			ZoomBufferRatio: buffer,
			ScaleStep:       cfg.MapSheet.ScaleStep,
			MaxSheets:       maxSheets,
		}
		if opts.ZoomBufferRatio == 0 {
			opts.ZoomBufferRatio = cfg.MapSheet.ZoomBufferRatio
		}

		written, err := mapsheet.Produce(input, outDir, opts)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Println(path)
		}
		return nil
	},
}

func init() {
	mapsheetCmd.Flags().String("input", "", "openings shapefile with OPENING_ID and SILV_POLYG columns")
	mapsheetCmd.Flags().String("out", ".", "output folder")
	mapsheetCmd.Flags().Int("max", 0, "stop after this many sheets (0 = all)")
	mapsheetCmd.Flags().Float64("buffer", 0, "extent padding ratio (default from config)")
	_ = mapsheetCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(mapsheetCmd)
}
