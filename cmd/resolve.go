package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/db"
)

var forceResolve bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [item id]",
	Short: "Mark an item's mistake as learned",
	Long: `Mark an item's mistake as learned. Reviews never resolve mistakes
on their own. Resolved mistakes are left out of mistake reviews and can be
removed with ` + "`recall mistakes --clear-resolved`" + `.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()
		ctx := cmd.Context()

		item, err := a.store.ItemByID(ctx, args[0])
		if err != nil {
			fmt.Println("❌ Error fetching item:", err)
			return
		}

		if !forceResolve && !confirm(bufio.NewReader(os.Stdin), fmt.Sprintf("Mark %q as learned?", truncate(item.Prompt, 40))) {
			fmt.Println("❌ Cancelled.")
			return
		}

		err = a.store.ResolveMistake(ctx, item.ID)
		if errors.Is(err, db.ErrNotFound) {
			fmt.Println("⚠️ This item has no open mistake.")
			return
		}
		if err != nil {
			fmt.Println("❌ Error resolving mistake:", err)
			return
		}
		fmt.Println("✅ Mistake resolved.")
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVarP(&forceResolve, "force", "f", false, "Skip confirmation")
}
