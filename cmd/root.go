// Package cmd implements the netprobe CLI using the cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd is the base command when netprobe is invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "netprobe",
	Short: "netprobe - real-time network traffic observability daemon",
	Long: `netprobe captures network traffic via an external capture tool, classifies
it into flows and protocol categories, computes throughput/latency/jitter/loss
metrics per capture window, and streams the results to connected dashboard
subscribers over a websocket channel.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/netprobe/config.yml",
		"config file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
