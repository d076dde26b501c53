package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuchen-w/fangnote/internal/tui"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive app",
	RunE:  runInteractive,
}

func runInteractive(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal; use 'fangnote add' instead")
	}

	mgr, err := getManager(context.Background(), true)
	if err != nil {
		return err
	}
	return tui.Run(mgr, taskStore, collector, cfg.DefaultTheme)
}
