package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "List which on-screen windows appear on which display",
	RunE:  runPairs,
}

var pairsFormat string

func init() {
	rootCmd.AddCommand(pairsCmd)

	pairsCmd.Flags().StringVarP(&pairsFormat, "format", "f", "table", "output format (table or json)")
}

func runPairs(cmd *cobra.Command, args []string) error {
	surface, _, err := openSurface()
	if err != nil {
		return err
	}
	defer surface.Close()

	pairs, err := surface.Pairs(cmd.Context())
	if err != nil {
		return err
	}

	switch pairsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(pairs)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "DISPLAY\tWINDOW")
		for _, p := range pairs {
			fmt.Fprintf(w, "%d\t%d\n", p.First, p.Second)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", pairsFormat)
	}
}
