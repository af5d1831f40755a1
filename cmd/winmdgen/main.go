package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"winmdgen/internal/errors"
	"winmdgen/internal/logger"
)

var (
	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "winmdgen",
	Short: "Generate bindings from Windows metadata",
	Long: `winmdgen reads Windows metadata (a .winmd file or a YAML snapshot) and
renders it as Go packages, as an IDL document, or both.

Examples:
  winmdgen download                              # Fetch the newest Windows.Win32.winmd
  winmdgen go --filter Windows.Win32.Foundation  # Go packages under ./output/
  winmdgen idl --input rules.txt --out win32.idl # IDL for the namespaces listed in rules.txt
  winmdgen all --config flatten --force-clean    # Both, flattening the Go output`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(verbose, jsonLogs); err != nil {
			return errors.Wrap(err, "initializing logger")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Log as JSON")

	rootCmd.AddCommand(goCmd)
	rootCmd.AddCommand(idlCmd)
	rootCmd.AddCommand(allCmd)
	rootCmd.AddCommand(downloadCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		logger.Logger.Errorw("winmdgen failed", "error", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
