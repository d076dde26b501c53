package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry <task-id>",
	Short: "Retry a failed task",
	Long: `Retry a failed task with its retained input. Media attachments only
survive within one session; after a restart the retry uses the text alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

func runRetry(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, err := getManager(ctx, true)
	if err != nil {
		return err
	}

	id, err := resolveTaskID(mgr, args[0])
	if err != nil {
		return err
	}

	before := taskIDSet(mgr)
	if _, err := mgr.Retry(id); err != nil {
		return err
	}
	delete(before, id)

	mgr.Wait(ctx)
	printNewTasks(mgr, before)
	return nil
}
