// 包 commands：snapshot-ctl 运维命令，离线查看与合并快照
package commands

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"redistrict/internal/logger"
	"redistrict/internal/snapshot"
)

type options struct {
	dir     string
	base    string
	regions string
	mgr     *snapshot.Manager
}

func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "snapshot-ctl",
		Short:         "Inspect and produce boundary snapshots",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(".env")
			_ = godotenv.Load(filepath.Join("data", "env", ".env"))
			logger.Setup()
			if o.dir != "" {
				o.mgr = snapshot.NewManager(snapshot.NewFSStore(o.dir))
				return nil
			}
			st, err := snapshot.OpenFromEnv(cmd.Context())
			if err != nil {
				return err
			}
			o.mgr = snapshot.NewManager(st)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&o.dir, "dir", "", "snapshot directory (overrides SNAPSHOT_DRIVER/SNAPSHOT_DIR)")
	root.PersistentFlags().StringVar(&o.base, "base", envOr("BASE_GEOJSON", filepath.Join("data", "input", "counties_0.geojson")), "base boundary GeoJSON")
	root.PersistentFlags().StringVar(&o.regions, "regions", envOr("REGION_CODES", filepath.Join("data", "input", "state_code_to_name_0.json")), "region code to name JSON")

	root.AddCommand(listCmd(o), showCmd(o), mergeCmd(o), regionsCmd(o), historyCmd(o))
	return root
}
