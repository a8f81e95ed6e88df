package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/boundwalk/boundwalk/domain"
)

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "Run compute_summaries: explore with summaries enabled and print the table",
	RunE: func(*cobra.Command, []string) error {
		e, err := buildEngine()
		if err != nil {
			return err
		}
		table, err := e.ComputeSummaries()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)

		dom := &domain.PathDomain{}
		for _, name := range names {
			for _, summary := range table[name] {
				fmt.Printf("%s: %s\n", name, dom.PPSummary(summary))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summariesCmd)
}
