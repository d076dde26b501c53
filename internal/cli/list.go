package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuchen-w/fangnote/internal/models"
)

var listTab string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in one of the tabs",
	Long: `List tasks. Tabs mirror the interactive app:
  log          everything except templates (default)
  unpublished  extracted listings awaiting publication
  templates    saved templates`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listTab, "tab", "log", "tab to show (log|unpublished|templates)")
}

func runList(cmd *cobra.Command, args []string) error {
	mgr, err := getManager(context.Background(), false)
	if err != nil {
		return err
	}

	tabs := mgr.Tabs()
	var tasks []models.Task
	switch listTab {
	case "log":
		tasks = tabs.Log
	case "unpublished":
		tasks = tabs.Unpublished
	case "templates":
		tasks = tabs.Templates
	default:
		return fmt.Errorf("unknown tab %q", listTab)
	}

	if len(tasks) == 0 {
		fmt.Println("（暂无记录）")
		return nil
	}

	for _, t := range tasks {
		fmt.Println(formatTaskLine(t))
	}
	return nil
}

func formatTaskLine(t models.Task) string {
	var glyph, badge string
	switch t.Status {
	case models.StatusProcessing:
		glyph, badge = "…", "识别中"
	case models.StatusSuccess:
		glyph = "✓"
		switch {
		case t.IsTemplate():
			badge = "模版"
		case t.IsPublished():
			badge = "已发布"
		default:
			badge = "待发布"
		}
	case models.StatusFailed:
		glyph, badge = "✗", "失败"
	}
	return fmt.Sprintf("%s %-8s %s  %-6s %s",
		glyph, shortID(t.ID), t.Timestamp.Format("01-02 15:04"), badge, t.Description)
}
