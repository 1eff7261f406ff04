package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Outaos/data-steward/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a feature layer as shapefile and/or KMZ",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		outDir, _ := cmd.Flags().GetString("out")
		name, _ := cmd.Flags().GetString("name")
		kmz, _ := cmd.Flags().GetBool("kmz")
		shpOnly, _ := cmd.Flags().GetBool("shp-only")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		if name == "" {
			name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
		base := export.SanitizeFilename(name)
		opts := export.Options{Overwrite: overwrite}

		if !kmz || shpOnly {
			out, err := export.CopySHP(input, outDir, base, opts)
			if err != nil {
				return err
			}
			fmt.Println(out)
		}
		if kmz {
			out, err := export.ExportKMZ(input, outDir, base, opts)
			if err != nil {
				return err
			}
			fmt.Println(out)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("input", "", "source shapefile")
	exportCmd.Flags().String("out", ".", "output folder")
	exportCmd.Flags().String("name", "", "output base name (default from input)")
	exportCmd.Flags().Bool("kmz", false, "also write a KMZ archive")
	exportCmd.Flags().Bool("shp-only", false, "write the shapefile even when --kmz is set")
	exportCmd.Flags().Bool("overwrite", false, "replace existing outputs")
	_ = exportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(exportCmd)
}
