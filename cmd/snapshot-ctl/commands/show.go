package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"redistrict/internal/snapshot"
)

func showCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Summarize one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := snapshot.ID(args[0])
			c, err := o.mgr.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			var edited, proposed, unassigned int
			seen := map[string]struct{}{}
			for _, b := range c {
				if b.Edited() {
					edited++
				}
				if b.Proposed() {
					proposed++
				}
				if code := b.RegionCode(); code != "" {
					seen[code] = struct{}{}
				} else {
					unassigned++
				}
			}
			regions := make([]string, 0, len(seen))
			for r := range seen {
				regions = append(regions, r)
			}
			sort.Strings(regions)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:         %s\n", id)
			fmt.Fprintf(out, "name:       %s\n", snapshot.DisplayName(id))
			fmt.Fprintf(out, "boundaries: %d\n", len(c))
			fmt.Fprintf(out, "edited:     %d\n", edited)
			fmt.Fprintf(out, "proposed:   %d\n", proposed)
			fmt.Fprintf(out, "unassigned: %d\n", unassigned)
			fmt.Fprintf(out, "regions:    %s\n", strings.Join(regions, ","))
			return nil
		},
	}
}
