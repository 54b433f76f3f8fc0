package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/beetlebugorg/nitf/pkg/nitf"
)

var bbox string

var footprintCmd = &cobra.Command{
	Use:   "footprint --bbox minLon,minLat,maxLon,maxLat FILE...",
	Short: "List the image blocks whose BLOCKA footprint intersects a box",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		box, err := parseBBox(bbox)
		if err != nil {
			return err
		}
		parser, err := newParser()
		if err != nil {
			return err
		}
		blocks, failed := loadBlocks(parser, args)

		idx := nitf.BuildIndex(collectFootprints(blocks))
		logger.Info("footprints indexed", "count", idx.Count(), "bounds", idx.Bounds())

		out := cmd.OutOrStdout()
		for _, fp := range idx.Query(box) {
			b := fp.GeoBounds
			fmt.Fprintf(out, "%s\tblock %d\t%.6f,%.6f,%.6f,%.6f\n", fp.Name, fp.Instance, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	footprintCmd.Flags().StringVar(&bbox, "bbox", "", "query box as minLon,minLat,maxLon,maxLat")
	footprintCmd.MarkFlagRequired("bbox")
	RootCmd.AddCommand(footprintCmd)
}

func collectFootprints(blocks []*nitf.Block) []nitf.Footprint {
	var footprints []nitf.Footprint
	for _, b := range blocks {
		for _, ext := range b.Extensions {
			tree, ok := ext.(*nitf.Tree)
			if !ok || tree.Tag() != "BLOCKA" {
				continue
			}
			fp, err := nitf.FootprintFromBLOCKA(b.Path, tree)
			if err != nil {
				logger.Warn("BLOCKA without footprint", "path", b.Path, "error", err)
				continue
			}
			footprints = append(footprints, fp)
		}
	}
	return footprints
}

func parseBBox(s string) (nitf.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nitf.Bounds{}, fmt.Errorf("bbox %q: want minLon,minLat,maxLon,maxLat", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nitf.Bounds{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := nitf.Bounds{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if !b.Valid() {
		return nitf.Bounds{}, fmt.Errorf("bbox %q: minimum exceeds maximum", s)
	}
	return b, nil
}
