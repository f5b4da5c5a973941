package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print(versionString())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
