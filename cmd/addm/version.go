package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loopkit/addm/internal/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the addm version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("addm " + server.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
