package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/wincap/internal/binding"
	"github.com/bryanchriswhite/wincap/internal/window"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List application windows",
	Long: `List the application windows of the current session.

Windows belonging to wincap itself, tiny windows and configured
excluded classes are always left out.`,
	Example: `  # List every window in table format (default)
  wincap list

  # Only on-screen, titled windows
  wincap list --filter

  # JSON including base64 thumbnails
  wincap list --capture --format json`,
	RunE: runList,
}

var (
	listFormat  string
	listFilter  bool
	listCapture bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	listCmd.Flags().BoolVar(&listFilter, "filter", false, "only on-screen windows with a title")
	listCmd.Flags().BoolVar(&listCapture, "capture", false, "capture a thumbnail of each window")
}

func runList(cmd *cobra.Command, args []string) error {
	if listFormat != "table" && listFormat != "json" {
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", listFormat)
	}

	surface, _, err := openSurface()
	if err != nil {
		return err
	}
	defer surface.Close()

	windows, err := surface.Windows(cmd.Context(), window.Options{Filter: listFilter, Capture: listCapture})
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	if listFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(windows)
	}
	return printWindowsTable(windows)
}

func printWindowsTable(windows []binding.WindowInfoV2) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tAPP\tBUNDLE\tON SCREEN\tTHUMBNAIL\tTITLE")
	fmt.Fprintln(w, "--\t---\t------\t---------\t---------\t-----")

	for _, win := range windows {
		onScreen := "No"
		if win.IsOnScreen {
			onScreen = "Yes"
		}
		thumb := "-"
		if len(win.Thumbnail) > 0 {
			thumb = fmt.Sprintf("%d B", len(win.Thumbnail))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", win.ID, win.AppName, win.BundleID, onScreen, thumb, win.Title)
	}

	return nil
}
