package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quka-ai/synthesis/cmd/service"
)

func main() {
	root := &cobra.Command{
		Use:   "synthesis",
		Short: "synthesis",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command")
		},
	}

	root.AddCommand(service.NewCommand(), service.NewProcessCommand(), service.NewSynthesizeCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
