package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuchen-w/fangnote/internal/models"
)

var publishAsTemplate bool

var publishCmd = &cobra.Command{
	Use:   "publish <task-id>",
	Short: "Publish an extracted listing as-is",
	Long: `Mark an extracted listing as published without editing it, or stamp
it as a reusable template with --template. For field-by-field editing use
the interactive app.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishAsTemplate, "template", false, "save as template instead of publishing")
}

func runPublish(cmd *cobra.Command, args []string) error {
	mgr, err := getManager(context.Background(), false)
	if err != nil {
		return err
	}

	id, err := resolveTaskID(mgr, args[0])
	if err != nil {
		return err
	}
	task, ok := mgr.Task(id)
	if !ok {
		return fmt.Errorf("no task with id %q", args[0])
	}
	if task.Status != models.StatusSuccess || task.Result == nil {
		return fmt.Errorf("task %s holds no extracted listing", shortID(id))
	}

	if err := mgr.EditAndSave(id, task.Result.Listing, publishAsTemplate); err != nil {
		return err
	}

	if publishAsTemplate {
		fmt.Println("已存为模版")
	} else {
		fmt.Println("房源发布成功！")
	}
	return nil
}
