package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:   "theme [light|dark]",
	Short: "Show or set the UI theme preference",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTheme,
}

func runTheme(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 0 {
		theme, ok := taskStore.Theme(ctx)
		if !ok {
			theme = cfg.DefaultTheme
		}
		fmt.Println(theme)
		return nil
	}

	if err := taskStore.SetTheme(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("主题已设为 %s\n", args[0])
	return nil
}
