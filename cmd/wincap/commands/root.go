package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/wincap/internal/binding"
	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "wincap",
		Short: "wincap - window enumeration, thumbnails and H.264 recording",
		Long: `wincap lists application windows, captures thumbnails, finds
application icons and encodes raw frames to MP4.

The same operations are available to other programs through the libwincap
shared library and the HTTP API started by "wincap serve".`,
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/wincap/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "human-readable log output")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("pretty", rootCmd.PersistentFlags().Lookup("pretty"))
}

func initConfig() {
	viper.SetEnvPrefix("WINCAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}
}

// initLogging applies the flag or env level, falling back to the config file
func initLogging(cmd *cobra.Command, args []string) error {
	level := viper.GetString("log_level")
	if level == "" {
		if m, err := config.NewManager(GetConfigFile()); err == nil {
			level = m.Get().LogLevel
		}
	}
	if level != "" && !logger.ValidLevel(level) {
		return fmt.Errorf("invalid log level: %s", level)
	}
	logger.Init(level, viper.GetBool("pretty"))
	return nil
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

// openSurface loads the configuration and connects the window services
func openSurface() (*binding.Surface, *config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	surface, err := binding.Open(configMgr)
	if err != nil {
		return nil, nil, err
	}
	return surface, configMgr, nil
}
