package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/models"
)

var (
	addArea        string
	addAnswer      string
	addExplanation string
	addNote        string
	addTags        string
	addDifficulty  int
	addOptions     []string
	addCorrect     string
	addMultiple    bool
)

var addCmd = &cobra.Command{
	Use:   "add [prompt]",
	Short: "Add a new item to an area",
	Long: `Add a new item to an area.
Open items take --answer; choice items take two or more --option flags
and the correct labels:

  recall add "2 + 2?" --area arithmetic --option A=3 --option B=4 --correct B`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if addDifficulty < 1 || addDifficulty > 5 {
			fmt.Println("❌ Difficulty must be between 1 and 5")
			return
		}
		opts, err := parseOptions(addOptions)
		if err != nil {
			fmt.Println("❌", err)
			return
		}

		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()
		ctx := cmd.Context()

		area, err := a.store.ResolveArea(ctx, addArea)
		if err != nil {
			fmt.Println("❌ Error finding area:", err)
			return
		}

		item := models.Item{
			AreaID:      area.ID,
			Prompt:      args[0],
			Variant:     models.VariantOpen,
			Answer:      addAnswer,
			Explanation: addExplanation,
			Note:        addNote,
			Tags:        splitTags(addTags),
			Difficulty:  addDifficulty,
		}
		if len(opts) > 0 {
			item.Variant = models.VariantChoice
			item.Options = opts
			item.CorrectLabels = models.SplitLabels(addCorrect)
			item.Selection = models.SelectSingle
			if addMultiple || len(item.CorrectLabels) > 1 {
				item.Selection = models.SelectMultiple
			}
		}

		// Initialize SM-2 values
		item = a.sched.InitItem(item, time.Now())

		item, err = a.store.AddItem(ctx, item)
		if err != nil {
			fmt.Println("❌ Error adding item:", err)
			return
		}

		fmt.Printf("✅ Added %s item %s to %s (due now)\n", item.Variant, item.ID, area.Name)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVarP(&addArea, "area", "a", "", "Area to add to (id or name)")
	addCmd.Flags().StringVar(&addAnswer, "answer", "", "Answer of an open item")
	addCmd.Flags().StringVar(&addExplanation, "explanation", "", "Explanation shown with the answer")
	addCmd.Flags().StringVarP(&addNote, "note", "n", "", "Personal note")
	addCmd.Flags().StringVarP(&addTags, "tags", "t", "", "Comma-separated tags (e.g. array,dp)")
	addCmd.Flags().IntVarP(&addDifficulty, "difficulty", "d", 3, "Difficulty (1-5)")
	addCmd.Flags().StringArrayVarP(&addOptions, "option", "o", nil, "Choice option as LABEL=text (repeatable)")
	addCmd.Flags().StringVarP(&addCorrect, "correct", "c", "", "Correct option labels (e.g. A,C)")
	addCmd.Flags().BoolVar(&addMultiple, "multiple", false, "Allow several correct labels")
	addCmd.MarkFlagRequired("area")
}

// parseOptions reads LABEL=text pairs.
func parseOptions(raw []string) ([]models.Option, error) {
	var out []models.Option
	seen := make(map[string]bool)
	for _, r := range raw {
		label, text, ok := strings.Cut(r, "=")
		label = strings.ToUpper(strings.TrimSpace(label))
		if !ok || label == "" {
			return nil, fmt.Errorf("option %q must look like LABEL=text", r)
		}
		if seen[label] {
			return nil, fmt.Errorf("option label %s is used twice", label)
		}
		seen[label] = true
		out = append(out, models.Option{Label: label, Text: strings.TrimSpace(text)})
	}
	return out, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
