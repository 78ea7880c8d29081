package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/cmd/compare"
	"github.com/cockroachdb/tblverify/cmd/schema"
	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := compare.Command()
	cmd.SilenceErrors = true
	cmd.AddCommand(schema.Command())
	return cmd
}

func Execute() {
	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, compare.ErrTablesDiffer) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
