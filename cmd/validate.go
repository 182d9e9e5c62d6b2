package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/netprobe/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration file without starting the daemon",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError("invalid configuration", err)
		return err
	}
	fmt.Printf("configuration OK: capture tool=%q window=%s listen=%s\n",
		cfg.Capture.ToolPath, cfg.Capture.WindowDuration, cfg.Server.ListenAddr)
	return nil
}
