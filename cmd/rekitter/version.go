package main

import (
	"fmt"

	"github.com/aretw0/rekitter"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of rekitter",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rekitter version %s\n", rekitter.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
