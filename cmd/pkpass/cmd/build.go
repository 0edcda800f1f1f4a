package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/passkit/internal/service/packager"
)

// addOverrideFlags registers the flags shared by build and batch.
func addOverrideFlags(command *cobra.Command, overrides *packager.Overrides) {
	flags := command.Flags()
	flags.StringVar(&overrides.Certificate, "certificate", "", "PEM file with the pass type certificate")
	flags.StringVar(&overrides.PrivateKey, "private-key", "", "PEM file with the certificate private key")
	flags.StringVar(&overrides.PKCS12, "pkcs12", "", "PKCS#12 bundle with certificate and key")
	flags.StringSliceVar(&overrides.Chain, "chain", nil, "PEM files with intermediate certificates")
	flags.StringVar(&overrides.Digest, "digest", "", "signature digest: sha256 or sha1")
	flags.StringVar(&overrides.Compression, "compression", "", "archive compression: default, fast, best, none")
}

func newBuildCommand() *cobra.Command {
	options := new(packager.Options)

	command := &cobra.Command{
		Use:   "build [source-dir] [archive]",
		Short: "Build one signed pass archive.",
		Long: `Builds a signed .pkpass archive from a source directory.

The definition is read from pass.json in the source directory unless --definition
points at another file. An existing archive is replaced atomically.`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			options.ConfigPath = configPath
			options.Source = args[0]
			options.Destination = args[1]

			result, err := packager.Run(ctx, options)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(c.OutOrStdout(), "%s %s %d\n", result.Path, result.Digest, result.Size)

			return err
		},
	}

	addOverrideFlags(command, &options.Overrides)
	command.Flags().StringVarP(&options.Definition, "definition", "d", "", "pass.json to use instead of the one in the source directory")

	return command
}
