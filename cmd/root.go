package cmd

import (
	"fmt"
	"os"

	"syncstore/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd is the syncstore command. Subcommands register themselves in init.
var RootCmd = &cobra.Command{
	Use:   "syncstore",
	Short: "Reactive cache of remote collections",
	Long: `syncstore keeps local caches of remote collections in sync and notifies
observers of every change. It ships with the furniture catalogue feature, synced from
the FurnitureData.json gamedata object of an S3 bucket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs RootCmd. Errors are reported on stderr in console form since the
// configured logger may be the thing that failed.
func Execute() {
	err := RootCmd.Execute()
	if err == nil {
		return
	}
	if l, lerr := logger.New(&logger.Config{Level: "error", Format: "console"}); lerr == nil {
		l.Error("Command failed", zap.Error(err))
		_ = l.Sync()
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
