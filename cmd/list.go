package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/models"
)

var (
	listBase string
	listArea string
	listTag  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked items",
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()
		ctx := cmd.Context()

		var items []models.Item
		var err error
		switch {
		case listArea != "":
			area, rerr := a.store.ResolveArea(ctx, listArea)
			if rerr != nil {
				fmt.Println("❌ Error finding area:", rerr)
				return
			}
			items, err = a.store.ItemsByArea(ctx, area.ID)
		case listBase != "":
			kb, rerr := a.store.ResolveBase(ctx, listBase)
			if rerr != nil {
				fmt.Println("❌ Error finding knowledge base:", rerr)
				return
			}
			items, err = a.store.ItemsByKnowledgeBase(ctx, kb.ID)
		default:
			items, err = a.store.AllItems(ctx)
		}
		if err != nil {
			fmt.Println("❌ Error listing items:", err)
			return
		}
		if listTag != "" {
			kept := items[:0]
			for _, it := range items {
				if it.HasTag(listTag) {
					kept = append(kept, it)
				}
			}
			items = kept
		}

		if len(items) == 0 {
			fmt.Println("📭 No items yet. Add one with `recall add`.")
			return
		}
		printItems(items)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listBase, "base", "b", "", "Only items of this knowledge base")
	listCmd.Flags().StringVarP(&listArea, "area", "a", "", "Only items of this area")
	listCmd.Flags().StringVarP(&listTag, "tag", "t", "", "Only items with this tag")
}

// printItems writes the item table shared by list and due.
func printItems(items []models.Item) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPrompt\tType\tDiff\tNext Review\tAcc\tTags")
	fmt.Fprintln(w, "--\t------\t----\t----\t-----------\t---\t----")

	for _, it := range items {
		acc := "-"
		if it.ReviewCount > 0 {
			acc = fmt.Sprintf("%.0f%%", it.Accuracy()*100)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			it.ID, truncate(it.Prompt, 40), it.Variant, it.Difficulty,
			it.DueAt.Local().Format("2006-01-02 15:04"), acc, strings.Join(it.Tags, ", "))
	}
	w.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
