package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"redistrict/internal/boundary"
)

func regionsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "Print selectable regions of the base map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := boundary.LoadBase(o.base)
			if err != nil {
				return err
			}
			regions, err := boundary.LoadRegions(o.regions)
			if err != nil {
				return err
			}
			for _, opt := range regions.Options(base) {
				n := len(boundary.FilterByRegion(base, opt.Code))
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", opt.Code, opt.Name, n)
			}
			return nil
		},
	}
}
