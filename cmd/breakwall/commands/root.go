package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "breakwall",
		Short: "Breakwall - full-screen break reminders for screen workers",
		Long: `Breakwall reminds you to take periodic breaks from screen work by
covering every connected display with a full-screen overlay until the
break is over.

Features:
  • Work/break cycle timer with long breaks every few cycles
  • One always-on-top overlay per connected display
  • Overlays follow monitors as they are plugged and unplugged
  • Breaks are postponed while you are in a detected meeting
  • Persistent configuration with live reload
  • REST API and websocket bridge for external surfaces`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/breakwall/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8343)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "human-readable log output")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_pretty", rootCmd.PersistentFlags().Lookup("pretty"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
