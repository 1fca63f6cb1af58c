package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	serviceName    = "messengerd"
	serviceVersion = "1.0.0"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "UDP messaging daemon for editor tooling clients",
		Long: `messengerd runs the UDP messaging session that lets external tooling
clients control and query an editing host: play state, asset refresh,
test execution and project discovery. The messaging port derives from
the process id, so clients locate the daemon without configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", serviceName, serviceVersion)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
