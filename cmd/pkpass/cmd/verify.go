package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/passkit/internal/service/verifier"
)

func newVerifyCommand() *cobra.Command {
	options := new(verifier.Options)

	command := &cobra.Command{
		Use:   "verify [archive]",
		Short: "Check a pass archive the way a wallet does.",
		Long: `Verifies archive layout, manifest digests and the manifest signature.

Trusted roots come from signing.roots in settings and --root flags. Without any
root only the signature value is checked, not the certificate chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			options.ConfigPath = configPath
			options.Archive = args[0]

			report, err := verifier.Run(ctx, options)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(c.OutOrStdout(), "%s %s serial=%s signer=%q chain_verified=%t\n",
				report.Path, report.Digest, report.SerialNumber, report.Signer, report.ChainVerified)

			return err
		},
	}

	command.Flags().StringSliceVar(&options.Roots, "root", nil, "PEM files with trusted root certificates")

	return command
}
