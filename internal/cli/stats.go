package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuchen-w/fangnote/internal/metrics"
	"github.com/yuchen-w/fangnote/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task log statistics",
	Long: `Show counts over the persisted task log plus the store timings of
this invocation. Extraction timings are only gathered while a process is
extracting, so they appear after 'add'/'retry' and in the interactive app.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	mgr, err := getManager(context.Background(), false)
	if err != nil {
		return err
	}

	var success, failed, published, templates int
	for _, t := range mgr.Snapshot() {
		switch t.Status {
		case models.StatusSuccess:
			success++
			if t.IsPublished() {
				published++
			}
			if t.IsTemplate() {
				templates++
			}
		case models.StatusFailed:
			failed++
		}
	}

	fmt.Printf("房源任务: %d 条识别成功（已发布 %d，模版 %d），%d 条失败\n",
		success, published, templates, failed)

	snap := collector.Snapshot()
	printOpStats("读取存储", snap.StoreLoad)
	printOpStats("写入存储", snap.StoreSave)
	printOpStats("AI 识别", snap.Extract)
	return nil
}

func printOpStats(label string, op *metrics.OperationSnapshot) {
	if op == nil {
		return
	}
	line := fmt.Sprintf("%s: %d 次，平均 %.0fms（%d–%dms）",
		label, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.TotalInputTokens != nil && op.TotalOutputTokens != nil {
		line += fmt.Sprintf("，tokens %d/%d", *op.TotalInputTokens, *op.TotalOutputTokens)
	}
	fmt.Println(line)
}
