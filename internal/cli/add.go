package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuchen-w/fangnote/internal/extract"
	"github.com/yuchen-w/fangnote/internal/models"
	"github.com/yuchen-w/fangnote/internal/service"
)

var (
	addImagePath string
	addAudioPath string
)

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Submit one listing description and wait for extraction",
	Long: `Submit free-form text, an image and/or an audio clip for extraction.

Examples:
  fangnote add "天通苑两居5000，回龙观一居3000"
  fangnote add --image listing.jpg
  fangnote add "补充说明" --audio memo.ogg`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addImagePath, "image", "", "image file to attach")
	addCmd.Flags().StringVar(&addAudioPath, "audio", "", "audio file to attach")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, err := getManager(ctx, true)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(args, " "))

	var image, audio *extract.Media
	if addImagePath != "" {
		if image, err = extract.MediaFromFile(addImagePath); err != nil {
			return err
		}
	}
	if addAudioPath != "" {
		if audio, err = extract.MediaFromFile(addAudioPath); err != nil {
			return err
		}
	}

	before := taskIDSet(mgr)

	if _, err := mgr.Submit(text, image, audio); err != nil {
		return err
	}
	fmt.Println("正在识别……")

	// The extraction call has no local timeout; it resolves when the
	// service answers.
	mgr.Wait(ctx)

	printNewTasks(mgr, before)
	printExtractStats()
	return nil
}

// taskIDSet snapshots the current task ids.
func taskIDSet(mgr *service.Manager) map[string]bool {
	ids := make(map[string]bool)
	for _, t := range mgr.Snapshot() {
		ids[t.ID] = true
	}
	return ids
}

// printNewTasks prints every task that appeared since the snapshot.
func printNewTasks(mgr *service.Manager, before map[string]bool) {
	for _, t := range mgr.Snapshot() {
		if before[t.ID] {
			continue
		}
		switch t.Status {
		case models.StatusSuccess:
			fmt.Printf("✓ %s  [%s]\n", t.Description, shortID(t.ID))
		case models.StatusFailed:
			fmt.Printf("✗ %s: %s  [%s]\n", t.Description, t.Fail.Message, shortID(t.ID))
			fmt.Printf("  重试: fangnote retry %s\n", shortID(t.ID))
		}
	}
}

func printExtractStats() {
	if collector == nil {
		return
	}
	if snap := collector.Snapshot(); snap.Extract != nil {
		line := fmt.Sprintf("耗时 %dms", snap.Extract.TotalTimeMs)
		if snap.Extract.TotalInputTokens != nil && snap.Extract.TotalOutputTokens != nil {
			line += fmt.Sprintf("，tokens %d/%d", *snap.Extract.TotalInputTokens, *snap.Extract.TotalOutputTokens)
		}
		fmt.Println(line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
