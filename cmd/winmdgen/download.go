package main

import (
	"github.com/spf13/cobra"

	"winmdgen/internal/metadata"
)

var downloadIndex string

var downloadCmd = &cobra.Command{
	Use:   "download [path]",
	Short: "Download the newest Win32 metadata",
	Long: `Download the newest stable Microsoft.Windows.SDK.Win32Metadata package
from a NuGet feed and extract its .winmd file.

Examples:
  winmdgen download                       # Writes Windows.Win32.winmd
  winmdgen download metadata/Win32.winmd  # Custom destination`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultMetadataPath
		if len(args) == 1 {
			path = args[0]
		}
		downloader := &metadata.Downloader{Index: downloadIndex}
		return downloader.Download(cmd.Context(), path)
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadIndex, "index", "", "NuGet service index (default: nuget.org)")
}
