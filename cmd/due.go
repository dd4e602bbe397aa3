package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/pipeline"
)

var dueBase string

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "Show items due for review",
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()
		ctx := cmd.Context()

		cfg := pipeline.SessionConfig{
			Source:  pipeline.StageSpec{Name: pipeline.SourceAllKnowledge},
			Filters: []pipeline.StageSpec{{Name: pipeline.FilterDueForReview}},
			Sorter:  pipeline.StageSpec{Name: pipeline.SorterByDueTime},
		}
		if dueBase != "" {
			kb, err := a.store.ResolveBase(ctx, dueBase)
			if err != nil {
				fmt.Println("❌ Error finding knowledge base:", err)
				return
			}
			cfg.Source = pipeline.StageSpec{Name: pipeline.SourceKnowledgeBase, Params: pipeline.Params{"baseId": kb.ID}}
		}

		items, err := a.generator().Generate(ctx, cfg)
		if err != nil {
			fmt.Println("❌ Error listing due items:", err)
			return
		}

		if len(items) == 0 {
			fmt.Println("✅ Nothing due right now! Good job.")
			return
		}

		fmt.Printf("🔥 %d items due:\n\n", len(items))
		printItems(items)
	},
}

func init() {
	rootCmd.AddCommand(dueCmd)
	dueCmd.Flags().StringVarP(&dueBase, "base", "b", "", "Only items of this knowledge base")
}
