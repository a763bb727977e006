package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/breakwall/internal/api"
	"github.com/bryanchriswhite/breakwall/internal/app"
	"github.com/bryanchriswhite/breakwall/internal/config"
	"github.com/bryanchriswhite/breakwall/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the break reminder daemon",
	Long: `Run the Breakwall daemon: the work/break timer, the overlay fleet,
meeting detection and the HTTP control surface.`,
	Example: `  # Run with defaults
  breakwall serve

  # Run on a custom API port
  breakwall serve --port 9090

  # Run with a specific config file
  breakwall serve --config /path/to/config.yaml

  # Run with debug logging
  breakwall serve --log-level debug --pretty`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	defer configMgr.Stop()

	cfg := configMgr.Get()

	// Flag overrides
	port := cfg.ServerPort
	if viper.IsSet("server_port") && viper.GetInt("server_port") > 0 {
		port = viper.GetInt("server_port")
	}
	logLevel := cfg.LogLevel
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		logLevel = viper.GetString("log_level")
	}

	logger.Init(logLevel, viper.GetBool("log_pretty"))
	log := logger.WithComponent("serve")
	log.Info().Str("config", configMgr.GetConfigPath()).Msg("Configuration loaded")

	if err := configMgr.Watch(); err != nil {
		log.Warn().Err(err).Msg("Config file watching disabled")
	}

	a, err := app.New(configMgr, app.Deps{})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	server := api.NewServer(configMgr, a, a.Displays(), a.Hub())
	go func() {
		if err := server.Start(port); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	go a.Run()

	log.Info().
		Int("port", port).
		Int("work_minutes", cfg.Timer.WorkDurationMinutes).
		Msg("Breakwall is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	a.Shutdown()
	return nil
}
