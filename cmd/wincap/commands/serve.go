package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bryanchriswhite/wincap/internal/api"
	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wincap HTTP API",
	Long: `Start the HTTP API exposing window enumeration, thumbnails, icons,
display pairs and WebSocket encoder sessions.

The configuration file is watched; log level and window rules are applied
without a restart.`,
	Example: `  # Start server on default port (8080)
  wincap serve

  # Start server on custom port
  wincap serve --port 9090

  # Listen on every interface (default is 127.0.0.1)
  wincap serve --host 0.0.0.0

  # Start with debug logging
  wincap serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "server port (default is server_port from the config)")
	serveCmd.Flags().String("host", "", "listen address (default is server_host from the config)")
	viper.BindPFlag("server_port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server_host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	surface, configMgr, err := openSurface()
	if err != nil {
		return err
	}
	defer surface.Close()

	// Override port from flag if provided
	if port := viper.GetInt("server_port"); port > 0 {
		if err := configMgr.SetPort(port); err != nil {
			return fmt.Errorf("invalid port: %w", err)
		}
	}

	cfg := configMgr.Get()
	if host := viper.GetString("server_host"); host != "" {
		cfg.ServerHost = host
	}
	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Str("backend", cfg.Windows.Backend).
		Msg("Configuration loaded")

	configMgr.OnConfigChange(func(c *config.Config) {
		if viper.GetString("log_level") == "" {
			logger.SetLevel(c.LogLevel)
		}
	})
	if err := configMgr.Watch(); err != nil {
		log.Warn().Err(err).Msg("Config hot reload disabled")
	}
	defer configMgr.StopWatching()

	server := api.NewServer(surface, configMgr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ServerHost, cfg.ServerPort)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Info().
		Str("api", fmt.Sprintf("http://%s/api", net.JoinHostPort(cfg.ServerHost, strconv.Itoa(cfg.ServerPort)))).
		Msg("wincap is running, press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigChan:
	}

	log.Info().Msg("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
