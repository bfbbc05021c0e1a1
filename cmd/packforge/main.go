package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "packforge",
		Short: "Pack builder for a content-addressed object store",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newSendCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("packforge 0.1.0-dev")
		},
	}
}
