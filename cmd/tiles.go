package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Outaos/data-steward/internal/fetcher"
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Raster tile retrieval",
}

var tilesFetchCmd = &cobra.Command{
	Use:   "fetch <ftp-url>...",
	Short: "Download raster tiles from an FTP mirror",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = cfg.Tiles.Dir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}

		f := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(cfg.Tiles.FTPTimeoutSecs) * time.Second,
		})

		for _, url := range args {
			dest := filepath.Join(outDir, filepath.Base(url))
			n, err := f.DownloadToFile(cmd.Context(), url, dest)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d bytes)\n", dest, n)
		}
		return nil
	},
}

func init() {
	tilesFetchCmd.Flags().String("out", "", "destination folder (default from config)")
	tilesCmd.AddCommand(tilesFetchCmd)
	rootCmd.AddCommand(tilesCmd)
}
