package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/models"
)

var (
	mistakesBase          string
	mistakesArea          string
	mistakesShowResolved  bool
	mistakesClearResolved bool
)

var mistakesCmd = &cobra.Command{
	Use:   "mistakes",
	Short: "Show the mistake book, grouped by area",
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()
		ctx := cmd.Context()

		if mistakesClearResolved {
			n, err := a.store.ClearResolved(ctx)
			if err != nil {
				fmt.Println("❌ Error clearing mistakes:", err)
				return
			}
			fmt.Printf("🧹 Cleared %d resolved mistakes.\n", n)
			return
		}

		scope := models.GlobalScope()
		switch {
		case mistakesArea != "":
			area, err := a.store.ResolveArea(ctx, mistakesArea)
			if err != nil {
				fmt.Println("❌ Error finding area:", err)
				return
			}
			scope = models.AreaScope(area.ID)
		case mistakesBase != "":
			kb, err := a.store.ResolveBase(ctx, mistakesBase)
			if err != nil {
				fmt.Println("❌ Error finding knowledge base:", err)
				return
			}
			scope = models.BaseScope(kb.ID)
		}

		records, err := a.store.Mistakes(ctx, scope)
		if err != nil {
			fmt.Println("❌ Error listing mistakes:", err)
			return
		}
		bases, err := a.store.ListBases(ctx)
		if err != nil {
			fmt.Println("❌ Error listing knowledge bases:", err)
			return
		}
		areaNames := make(map[string]string)
		for _, kb := range bases {
			for _, area := range kb.Areas {
				areaNames[area.ID] = kb.Name + " / " + area.Name
			}
		}

		type row struct {
			rec  models.MistakeRecord
			item models.Item
		}
		groups := make(map[string][]row)
		var order []string
		for _, rec := range records {
			if rec.Resolved && !mistakesShowResolved {
				continue
			}
			item, err := a.store.ItemByID(ctx, rec.ItemID)
			if err != nil {
				fmt.Println("❌ Error fetching item:", err)
				return
			}
			if _, seen := groups[item.AreaID]; !seen {
				order = append(order, item.AreaID)
			}
			groups[item.AreaID] = append(groups[item.AreaID], row{rec, item})
		}

		if len(order) == 0 {
			fmt.Println("✅ No open mistakes. Nice.")
			return
		}

		for _, areaID := range order {
			fmt.Printf("\n📕 %s\n", areaNames[areaID])
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Item\tPrompt\tTimes\tLast\tLast Reason")
			fmt.Fprintln(w, "----\t------\t-----\t----\t-----------")
			for _, r := range groups[areaID] {
				reason := ""
				if n := len(r.rec.Reasons); n > 0 {
					reason = r.rec.Reasons[n-1]
				}
				prompt := truncate(r.item.Prompt, 40)
				if r.rec.Resolved {
					prompt = "✔ " + prompt
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					r.item.ID, prompt, r.rec.Count,
					r.rec.LastMistakeAt.Local().Format("2006-01-02"), truncate(reason, 30))
			}
			w.Flush()
		}
		fmt.Println("\nReview them with `recall review --mistakes`; mark one learned with `recall resolve <item>`.")
	},
}

func init() {
	rootCmd.AddCommand(mistakesCmd)

	mistakesCmd.Flags().StringVarP(&mistakesBase, "base", "b", "", "Only mistakes in this knowledge base")
	mistakesCmd.Flags().StringVarP(&mistakesArea, "area", "a", "", "Only mistakes in this area")
	mistakesCmd.Flags().BoolVar(&mistakesShowResolved, "resolved", false, "Include resolved mistakes")
	mistakesCmd.Flags().BoolVar(&mistakesClearResolved, "clear-resolved", false, "Delete resolved mistakes")
	mistakesCmd.MarkFlagsMutuallyExclusive("base", "area")
}
