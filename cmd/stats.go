package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/models"
)

var statsHistory int

var statsCmd = &cobra.Command{
	Use:   "stats [item id]",
	Short: "Show item statistics",
	Long: `Show how tracked items are distributed over their review intervals.
With an item id, show that item's scheduling state and recent reviews.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()
		ctx := cmd.Context()

		if len(args) == 1 {
			item, err := a.store.ItemByID(ctx, args[0])
			if err != nil {
				fmt.Println("❌ Error fetching item:", err)
				return
			}
			history, err := a.store.History(ctx, item.ID, statsHistory)
			if err != nil {
				fmt.Println("❌ Error fetching history:", err)
				return
			}
			printItemStats(item, history)
			return
		}

		items, err := a.store.AllItems(ctx)
		if err != nil {
			fmt.Println("❌ Error fetching items:", err)
			return
		}

		now := time.Now()
		due, learning, mastered, fresh := 0, 0, 0, 0
		for _, it := range items {
			if it.IsDue(now) {
				due++
			}
			switch {
			case it.ReviewCount == 0:
				fresh++
			case it.Interval > 30:
				mastered++
			case it.Interval < 7:
				learning++
			}
		}

		fmt.Println("📊 Statistics")
		fmt.Println("-------------")
		fmt.Printf("Total Items:     %d\n", len(items))
		fmt.Printf("Due Now:         %d\n", due)
		fmt.Printf("New:             %d\n", fresh)
		fmt.Printf("Learning (<7d):  %d\n", learning)
		fmt.Printf("Mastered (>30d): %d\n", mastered)
		fmt.Printf("In Progress:     %d\n", len(items)-fresh-learning-mastered)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsHistory, "history", 10, "Number of recent reviews to show for an item")
}

func printItemStats(it models.Item, history []models.ReviewEntry) {
	fmt.Println("📊", it.Prompt)
	fmt.Println("-------------")
	fmt.Printf("Type:        %s\n", it.Variant)
	fmt.Printf("Ease:        %.2f\n", it.Ease)
	fmt.Printf("Interval:    %d days\n", it.Interval)
	fmt.Printf("Next Review: %s\n", it.DueAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Reviews:     %d (%.0f%% correct)\n", it.ReviewCount, it.Accuracy()*100)

	if len(history) == 0 {
		fmt.Println("\nNo reviews yet.")
		return
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "When\tGrade\tTime\tAnswer")
	fmt.Fprintln(w, "----\t-----\t----\t------")
	for _, r := range history {
		mark := "✅"
		if !r.Correct {
			mark = "❌"
		}
		fmt.Fprintf(w, "%s\t%s %d\t%s\t%s\n",
			r.ReviewedAt.Local().Format("2006-01-02 15:04"), mark, r.Quality,
			r.TimeSpent.Round(time.Second), truncate(r.Answer, 30))
	}
	w.Flush()
}
