package cli

import (
	"fmt"
	"runtime"

	"github.com/promptstream/promptstream/internal/build"

	"github.com/spf13/cobra"
)

func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Promptstream version information",
		Long:  `Print the version information of Promptstream`,
		Run: func(cmd *cobra.Command, args []string) {
			version()
		},
	}
}

func version() {
	fmt.Printf("Promptstream v%s (Go version: %s)\n", build.Version, runtime.Version())
}
