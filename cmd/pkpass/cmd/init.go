package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/passkit/internal/service/packager"
)

func newInitCommand() *cobra.Command {
	options := new(packager.InitOptions)

	command := &cobra.Command{
		Use:   "init [source-dir]",
		Short: "Scaffold a pass source directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			options.Dir = args[0]

			path, err := packager.Init(c.Context(), options)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.OutOrStdout(), path)

			return err
		},
	}

	flags := command.Flags()
	flags.StringVar(&options.SerialNumber, "serial", "", "pass serial number")
	flags.StringVar(&options.PassTypeIdentifier, "pass-type", "", "pass type identifier")
	flags.StringVar(&options.TeamIdentifier, "team", "", "team identifier")
	flags.StringVar(&options.OrganizationName, "organization", "", "organization name")
	flags.StringVar(&options.Description, "description", "", "accessibility description")
	flags.StringVar(&options.Style, "style", packager.StyleGeneric,
		"pass style: boardingPass, coupon, eventTicket, generic, storeCard")
	flags.StringVar(&options.TransitType, "transit", "", "boarding pass transit type: air, boat, bus, generic, train")
	flags.BoolVarP(&options.Force, "force", "f", false, "overwrite an existing pass.json")

	return command
}
