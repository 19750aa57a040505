package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"redistrict/internal/boundary"
	"redistrict/internal/session"
)

// 文档注释：离线合并
// 背景：批量导入外部绘制的提议形状，走与界面相同的会话流程（选区、绘制、保存）。
// 约束：shapes 文件可为 FeatureCollection、Feature 或裸几何；任一形状非多边形即整体失败，不写快照。
func mergeCmd(o *options) *cobra.Command {
	var region, subregion, shapes, name string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge proposed shapes into the base map and save a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := boundary.LoadBase(o.base)
			if err != nil {
				return err
			}
			geoms, err := readShapes(shapes)
			if err != nil {
				return err
			}
			s := session.New()
			if err := s.Select(region, subregion, false); err != nil {
				return err
			}
			for i, g := range geoms {
				if _, _, err := s.Draw(g); err != nil {
					return fmt.Errorf("shape %d: %w", i, err)
				}
			}
			id, merged, err := s.Save(cmd.Context(), o.mgr, base, name, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d boundaries)\n", id, len(merged))
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", boundary.AllRegions, "region code, or All")
	cmd.Flags().StringVar(&subregion, "subregion", "", "subregion name used to label proposals")
	cmd.Flags().StringVar(&shapes, "shapes", "", "GeoJSON file with proposed shapes")
	cmd.Flags().StringVar(&name, "name", "", "snapshot name")
	_ = cmd.MarkFlagRequired("shapes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func readShapes(path string) ([]orb.Geometry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if fc, err := geojson.UnmarshalFeatureCollection(b); err == nil && fc.Type == "FeatureCollection" {
		out := make([]orb.Geometry, 0, len(fc.Features))
		for _, f := range fc.Features {
			out = append(out, f.Geometry)
		}
		if len(out) == 0 {
			return nil, errors.New("shapes file has no features")
		}
		return out, nil
	}
	if f, err := geojson.UnmarshalFeature(b); err == nil && f.Type == "Feature" {
		return []orb.Geometry{f.Geometry}, nil
	}
	g, err := geojson.UnmarshalGeometry(b)
	if err != nil {
		return nil, fmt.Errorf("parse shapes %s: %w", path, err)
	}
	return []orb.Geometry{g.Geometry()}, nil
}
