package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/breakwall/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Breakwall configuration",
	Long:  `View and manage Breakwall configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Example: `  # Show configuration as YAML (default)
  breakwall config show

  # Show configuration as JSON
  breakwall config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Example: `  # Work for 50 minutes between breaks
  breakwall config set work_minutes 50

  # Take 5 minute breaks
  breakwall config set break_seconds 300

  # Do not postpone breaks during meetings
  breakwall config set skip_during_meetings false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	configShowCmd.Flags().StringVar(&formatFlag, "format", "yaml", "output format (yaml or json)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	var out []byte
	switch formatFlag {
	case "json":
		out, err = json.MarshalIndent(cfg, "", "  ")
	default:
		out, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	key, value := args[0], args[1]
	switch key {
	case "work_minutes":
		cfg.Timer.WorkDurationMinutes, err = strconv.Atoi(value)
	case "break_seconds":
		cfg.Timer.BreakDurationSeconds, err = strconv.Atoi(value)
	case "long_break_minutes":
		cfg.Timer.LongBreakDurationMinutes, err = strconv.Atoi(value)
	case "long_break_interval":
		cfg.Timer.LongBreakIntervalCycles, err = strconv.Atoi(value)
	case "skip_during_meetings":
		cfg.SkipBreaksDuringMeetings, err = strconv.ParseBool(value)
	case "server_port":
		cfg.ServerPort, err = strconv.Atoi(value)
	case "log_level":
		cfg.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := configMgr.Update(cfg); err != nil {
		return err
	}

	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return err
	}
	fmt.Println(configMgr.GetConfigPath())
	return nil
}
