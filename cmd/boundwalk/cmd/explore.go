package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Run exec_pgm: explore the program to completion",
	RunE: func(*cobra.Command, []string) error {
		e, err := buildEngine()
		if err != nil {
			return err
		}
		if err := e.ExecPgm(); err != nil {
			return err
		}
		fmt.Printf("run %s complete\n", e.RunID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}
