package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuchen-w/fangnote/internal/models"
)

var (
	exportPublishedOnly bool
	exportOutput        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export extracted listings as JSON",
	Long: `Export extracted listings (templates excluded) as a JSON array.

Examples:
  fangnote export
  fangnote export --published-only -o listings.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportPublishedOnly, "published-only", false, "export only published listings")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	mgr, err := getManager(context.Background(), false)
	if err != nil {
		return err
	}

	var listings []models.Listing
	for _, t := range mgr.Tabs().Log {
		if t.Status != models.StatusSuccess || t.Result == nil {
			continue
		}
		if exportPublishedOnly && !t.IsPublished() {
			continue
		}
		listings = append(listings, t.Result.Listing)
	}

	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal listings: %w", err)
	}
	data = append(data, '\n')

	if exportOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	fmt.Printf("已导出 %d 条房源到 %s\n", len(listings), exportOutput)
	return nil
}
