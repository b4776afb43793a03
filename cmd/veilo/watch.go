package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"veilo/pkg/log"

	"github.com/spf13/cobra"
)

var (
	statusAddr string
	noServer   bool
)

func init() {
	watchCmd.Flags().StringVar(&statusAddr, "status-addr", "", "Status server listen address (overrides status_addr)")
	watchCmd.Flags().BoolVar(&noServer, "no-server", false, "Do not start the status server")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor backend health, fail over and serve status until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusAddr != "" {
			cfg.StatusAddr = statusAddr
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a.watchFailover(ctx)

		if !noServer {
			if err := a.server.Start(cfg.StatusAddr); err != nil {
				return err
			}
			defer func() {
				if err := a.server.Shutdown(); err != nil {
					log.Warn().Err(err).Msg("Status server shutdown failed")
				}
			}()
		}

		a.monitor.Start()
		defer a.monitor.Stop()

		log.Info().
			Str("backend", a.state.BaseURL()).
			Strs("candidates", a.manager.Candidates()).
			Int("offline_posts", a.store.Count(ctx)).
			Msg("Watching backend")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case <-quit:
		case <-ctx.Done():
		}
		log.Info().Msg("Shutting down...")
		return nil
	},
}
