package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"redistrict/internal/migrate"
	"redistrict/internal/store"
	"redistrict/internal/utils"
)

func historyCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List catalog entries (requires CATALOG_DRIVER)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, dialect, err := utils.OpenCatalogFromEnv()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("catalog disabled; set CATALOG_DRIVER")
			}
			defer db.Close()
			if err := migrate.EnsureSchema(db, dialect); err != nil {
				return err
			}
			entries, err := store.AttachDB(db, dialect).History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSAVED\tBOUNDARIES\tPROPOSED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", e.ID, e.SavedAt.Format("2006-01-02 15:04:05"), e.Boundaries, e.Proposed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max entries, 0 for all")
	return cmd
}
