package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the wincap config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults have been applied, so keys
missing from the file show the value wincap will actually use.`,
	Example: `  wincap config show
  wincap config show --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configMgr, err := loadConfig()
		if err != nil {
			return err
		}
		return writeValue(cmd.OutOrStdout(), configFormat, configMgr.Get())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one value by dotted key",
	Example: `  wincap config get thumbnails.format
  wincap config get encoder --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configMgr, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := configMgr.GetValue(args[0])
		if err != nil {
			return err
		}
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return writeValue(cmd.OutOrStdout(), configFormat, v)
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one value by dotted key",
	Long: `VALUE is parsed as YAML, so numbers, booleans and flow lists keep their
types. The whole file is validated before it is written.`,
	Example: `  wincap config set encoder.fps 60
  wincap config set windows.excluded_classes "[Plasmashell, Conky]"
  wincap config set log_level debug`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		configMgr, err := loadConfig()
		if err != nil {
			return err
		}
		key := args[0]
		if err := configMgr.SetValue(key, args[1]); err != nil {
			return err
		}
		stored, err := configMgr.GetValue(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %v (%s)\n", key, stored, configMgr.GetConfigPath())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configMgr, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), configMgr.GetConfigPath())
		return nil
	},
}

var configFormat string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd, configPathCmd)

	for _, c := range []*cobra.Command{configShowCmd, configGetCmd} {
		c.Flags().StringVarP(&configFormat, "format", "f", "yaml", "output format: yaml or json")
	}
}

func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return configMgr, nil
}

func writeValue(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported format %q, use yaml or json", format)
	}
}
