package main

import (
	"errors"
	"fmt"
	"time"

	"veilo/pkg/connection"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(healthCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Find the first healthy backend among the candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		backend, findErr := a.manager.FindHealthyBackend(cmd.Context())

		for _, attempt := range a.manager.Attempts() {
			if attempt.Success {
				fmt.Printf("  ok    %s (%s)\n", attempt.URL, attempt.Latency.Round(time.Millisecond))
				continue
			}
			fmt.Printf("  fail  %s: %s\n", attempt.URL, attempt.Error)
		}

		stats := a.manager.Stats()
		fmt.Printf("\nsuccess rate %.0f%%, average latency %s\n",
			stats.SuccessRate*100, stats.AverageLatency.Round(time.Millisecond))

		if errors.Is(findErr, connection.ErrAllBackendsOffline) {
			fmt.Println("all backends are offline")
			return findErr
		}
		if findErr != nil {
			return findErr
		}

		fmt.Printf("pinned %s\n", backend)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the configured backend once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		status := a.monitor.Check(cmd.Context())
		fmt.Printf("%s %s (%s)\n", a.state.BaseURL(), status.Status, status.Latency.Round(time.Millisecond))
		if status.Error != "" {
			fmt.Printf("  %s\n", status.Error)
		}
		if !status.IsHealthy {
			return fmt.Errorf("backend is %s", status.Status)
		}
		return nil
	},
}
