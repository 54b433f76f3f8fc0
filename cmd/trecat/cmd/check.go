package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beetlebugorg/nitf/pkg/nitf"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Parse and re-serialize each file, reporting any byte differences",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, err := newParser()
		if err != nil {
			return err
		}
		blocks, failed := loadBlocks(parser, args)

		out := cmd.OutOrStdout()
		mismatched := 0
		for _, b := range blocks {
			msg, ok := checkBlock(parser, b)
			if !ok {
				mismatched++
			}
			fmt.Fprintln(out, msg)
		}
		if failed > 0 || mismatched > 0 {
			return fmt.Errorf("%d files failed to parse, %d did not round trip", failed, mismatched)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(checkCmd)
}

func checkBlock(parser nitf.Parser, b *nitf.Block) (string, bool) {
	out, err := parser.SerializeExtensions(b.Extensions)
	if err != nil {
		return fmt.Sprintf("FAIL %s: %v", b.Path, err), false
	}
	if at := firstDifference(out, b.Data); at >= 0 {
		return fmt.Sprintf("DIFF %s: first difference at byte %d (%d bytes in, %d out)", b.Path, at, len(b.Data), len(out)), false
	}
	return fmt.Sprintf("OK   %s: %d TREs", b.Path, len(b.Extensions)), true
}

// firstDifference returns the first offset where a and b differ, or -1.
func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
