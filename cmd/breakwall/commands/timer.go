package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/breakwall/internal/api"
	"github.com/bryanchriswhite/breakwall/internal/config"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Control the running daemon's timer",
	Long:  `Query and control the timer of a running Breakwall daemon over its HTTP API.`,
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current timer state",
	RunE:  runTimerStatus,
}

func init() {
	timerCmd.AddCommand(timerStatusCmd)
	for _, action := range []string{"start", "pause", "reset", "skip", "snooze"} {
		timerCmd.AddCommand(timerActionCmd(action))
	}
	rootCmd.AddCommand(timerCmd)
}

func timerActionCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("Send a %s request to the daemon", action),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient().Post(apiURL("/api/timer/"+action), "application/json", nil)
			if err != nil {
				return fmt.Errorf("is the daemon running? %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("daemon returned %s", resp.Status)
			}
			fmt.Printf("%s: ok\n", action)
			return nil
		},
	}
}

func runTimerStatus(cmd *cobra.Command, args []string) error {
	resp, err := apiClient().Get(apiURL("/api/timer"))
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	var status api.TimerStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode timer status: %w", err)
	}

	phase := "work"
	if status.OnBreak {
		phase = "break"
	}
	running := "paused"
	if status.Running {
		running = "running"
	}

	fmt.Printf("Phase:        %s (%s)\n", phase, running)
	fmt.Printf("Remaining:    %02d:%02d\n", status.RemainingSeconds/60, status.RemainingSeconds%60)
	fmt.Printf("Cycles:       %d\n", status.CycleCount)
	fmt.Printf("Breaks taken: %d\n", status.TotalBreaksTaken)
	if status.BreakActive {
		fmt.Printf("Overlay:      showing, %ds left\n", status.BreakRemaining)
	}
	if status.PendingBreak {
		fmt.Println("Pending:      break deferred until meeting ends")
	}
	return nil
}

func apiClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func apiURL(path string) string {
	port := viper.GetInt("server_port")
	if port <= 0 {
		if configMgr, err := config.NewManager(GetConfigFile()); err == nil {
			port = configMgr.Get().ServerPort
		} else {
			port = config.DefaultConfig().ServerPort
		}
	}
	return fmt.Sprintf("http://localhost:%d%s", port, path)
}
