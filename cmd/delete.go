package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var forceDelete bool

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an item with its history and mistakes",
	Args:  cobra.ExactArgs(1),
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

		if !forceDelete && !confirm(bufio.NewReader(os.Stdin), fmt.Sprintf("⚠️  Are you sure you want to delete %q?", truncate(item.Prompt, 40))) {
			fmt.Println("❌ Cancelled.")
			return
		}

		if err := a.store.DeleteItem(ctx, item.ID); err != nil {
			fmt.Println("❌ Error deleting item:", err)
			return
		}

		fmt.Println("✅ Item deleted.")
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation")
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(r *bufio.Reader, question string) bool {
	fmt.Printf("%s (y/N): ", question)
	input, _ := r.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}
