package cmdutil

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/tblverify/tableload"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var loaderRetrySettings = tableload.DefaultRetrySettings()

// RegisterLoaderFlags registers flags controlling how inputs held in object
// storage are fetched.
func RegisterLoaderFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().DurationVar(
		&loaderRetrySettings.InitialBackoff,
		"fetch-initial-backoff",
		loaderRetrySettings.InitialBackoff,
		"initial backoff between attempts to fetch remote inputs",
	)
	cmd.PersistentFlags().DurationVar(
		&loaderRetrySettings.MaxBackoff,
		"fetch-max-backoff",
		loaderRetrySettings.MaxBackoff,
		"maximum backoff between attempts to fetch remote inputs",
	)
	cmd.PersistentFlags().IntVar(
		&loaderRetrySettings.MaxRetries,
		"fetch-max-attempts",
		loaderRetrySettings.MaxRetries,
		"maximum number of attempts to fetch a remote input (0 for unlimited)",
	)
}

func LoadOpts(logger zerolog.Logger, mem memory.Allocator) []tableload.LoadOpt {
	return []tableload.LoadOpt{
		tableload.WithAllocator(mem),
		tableload.WithLogger(logger),
		tableload.WithRetrySettings(loaderRetrySettings),
	}
}
