package commands

import (
	"fmt"

	"github.com/bryanchriswhite/wincap/internal/appinfo"
	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/spf13/cobra"
)

var iconCmd = &cobra.Command{
	Use:   "icon BUNDLE",
	Short: "Print the icon file of an application",
	Long: `Print the path of the icon for a desktop entry id such as
org.mozilla.firefox. Exits with an error when no icon is installed.`,
	Example: `  wincap icon org.mozilla.firefox`,
	Args:    cobra.ExactArgs(1),
	RunE:    runIcon,
}

func init() {
	rootCmd.AddCommand(iconCmd)
}

// Icon lookup needs no display connection, so the registry is built directly
func runIcon(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path := appinfo.NewRegistry(configMgr.Get().Icons).IconPath(args[0])
	if path == "" {
		return fmt.Errorf("no icon found for %s", args[0])
	}
	fmt.Println(path)
	return nil
}
