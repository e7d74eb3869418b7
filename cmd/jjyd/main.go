package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const VERSION = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "jjyd",
		Short:         "JJY longwave time code transmitter",
		Long:          "jjyd keys a GPIO pin with the JJY time code so radio-controlled clocks can be set from the local system clock.",
		Version:       VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", getDefaultConfig(), "Configuration file path")

	rootCmd.AddCommand(
		newRunCmd(&configFile),
		newEncodeCmd(),
		newHistoryCmd(&configFile),
	)
	return rootCmd
}

func getDefaultConfig() string {
	// Check for config file in current directory first
	if _, err := os.Stat("jjyd.yaml"); err == nil {
		return "jjyd.yaml"
	}

	// Check system location
	systemConfig := "/etc/jjyd/jjyd.yaml"
	if _, err := os.Stat(systemConfig); err == nil {
		return systemConfig
	}

	// Default to current directory
	return "jjyd.yaml"
}
