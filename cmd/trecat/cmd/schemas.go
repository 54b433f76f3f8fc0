package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the TRE tags with schemas and check that each one loads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := newRepository()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		broken := 0
		for _, tag := range repo.Tags() {
			s, err := repo.Lookup(tag)
			if err != nil {
				broken++
				fmt.Fprintf(out, "%-6s  ERROR %v\n", tag, err)
				continue
			}
			fmt.Fprintf(out, "%-6s  %s\n", tag, s.Description)
		}
		if broken > 0 {
			return fmt.Errorf("%d schemas failed to load", broken)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(schemasCmd)
}
