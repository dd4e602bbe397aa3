package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/models"
	"github.com/LavenderBridge/recall/internal/pipeline"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show overview of progress and stats",
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()

		ctx := cmd.Context()
		now := time.Now()

		stats, err := a.store.ReviewStats(ctx, now)
		if err != nil {
			fmt.Println("❌ Error fetching stats:", err)
			return
		}

		fmt.Println("\n📊 Performance Overview")
		fmt.Println("=======================")
		fmt.Printf("Total Items:        %d\n", stats.TotalItems)
		fmt.Printf("Due Now:            %d\n", stats.Due)
		fmt.Printf("Mastered:           %d\n", stats.Mastered)
		fmt.Printf("Open Mistakes:      %d\n", stats.OpenMistakes)
		fmt.Println()
		fmt.Printf("Total Reviews:      %d\n", stats.TotalReviews)
		fmt.Printf("Reviews Today:      %d\n", stats.ReviewsToday)
		fmt.Printf("Reviews Last 7D:    %d\n", stats.ReviewsLast7Days)
		fmt.Printf("Correct Rate:       %.1f%%\n", stats.CorrectRate)
		fmt.Printf("Average Quality:    %.2f\n", stats.AverageQuality)

		fmt.Println("\n📈 Items by Type")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Type\tCount")
		fmt.Fprintln(w, "----\t-----")
		for _, v := range []models.Variant{models.VariantOpen, models.VariantChoice} {
			count := stats.CountByVariant[v]
			fmt.Fprintf(w, "%s\t%d\t%s\n", v, count, strings.Repeat("█", count))
		}
		w.Flush()

		bases, err := a.store.ListBases(ctx)
		if err != nil {
			fmt.Println("❌ Error fetching knowledge bases:", err)
			return
		}
		if len(bases) > 0 {
			fmt.Println("\n📚 Knowledge Bases")
			if err := printBaseLoad(ctx, os.Stdout, a.store, bases, now); err != nil {
				fmt.Println("❌ Error fetching items:", err)
				return
			}
		}
		fmt.Println()
	},
}

// printBaseLoad prints item, due and weak counts for each base.
func printBaseLoad(ctx context.Context, out io.Writer, r pipeline.Reader, bases []models.KnowledgeBase, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Base\tAreas\tItems\tDue\tBelow 60%")
	fmt.Fprintln(w, "----\t-----\t-----\t---\t---------")
	for _, kb := range bases {
		items, err := r.ItemsByKnowledgeBase(ctx, kb.ID)
		if err != nil {
			return err
		}
		var due, weak int
		for _, it := range items {
			if it.IsDue(now) {
				due++
			}
			if it.ReviewCount > 0 && it.Accuracy() < 0.6 {
				weak++
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", kb.Name, len(kb.Areas), len(items), due, weak)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(overviewCmd)
}
