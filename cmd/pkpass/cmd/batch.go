package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/passkit/internal/service/packager"
)

func newBatchCommand() *cobra.Command {
	options := new(packager.BatchOptions)

	command := &cobra.Command{
		Use:   "batch [jobs-file]",
		Short: "Build many pass archives concurrently.",
		Long: `Builds every job listed in a YAML jobs file.

Each job names a source directory, a destination archive and an optional definition.
Relative paths are resolved against the jobs file. All jobs run even when some fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			options.ConfigPath = configPath
			options.JobsPath = args[0]

			results, err := packager.RunBatch(ctx, options)

			out := c.OutOrStdout()
			for _, r := range results {
				if r.Err != nil {
					_, _ = fmt.Fprintf(out, "FAIL %s: %v\n", r.Job.Destination, r.Err)

					continue
				}

				_, _ = fmt.Fprintf(out, "OK   %s %s\n", r.Result.Path, r.Result.Digest)
			}

			return err
		},
	}

	addOverrideFlags(command, &options.Overrides)
	command.Flags().IntVarP(&options.Parallelism, "parallelism", "p", 0, "maximum concurrent builds (default from settings)")

	return command
}
