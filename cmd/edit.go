package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/db"
	"github.com/LavenderBridge/recall/internal/models"
)

var (
	editPrompt      string
	editAnswer      string
	editExplanation string
	editNote        string
	editTags        string
	editDifficulty  int
	editOptions     []string
	editCorrect     string
)

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit an item's content",
	Long: `Edit an item's content. Only the flags given are changed;
scheduling state and review history are kept.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()
		ctx := cmd.Context()

		target, err := a.store.ItemByID(ctx, args[0])
		if errors.Is(err, db.ErrNotFound) {
			fmt.Println("❌ Item not found with ID:", args[0])
			return
		}
		if err != nil {
			fmt.Println("❌ Error fetching item:", err)
			return
		}

		// Apply updates
		flags := cmd.Flags()
		if flags.Changed("prompt") {
			target.Prompt = editPrompt
		}
		if flags.Changed("answer") {
			target.Answer = editAnswer
		}
		if flags.Changed("explanation") {
			target.Explanation = editExplanation
		}
		if flags.Changed("note") {
			target.Note = editNote
		}
		if flags.Changed("difficulty") {
			if editDifficulty < 1 || editDifficulty > 5 {
				fmt.Println("❌ Difficulty must be between 1 and 5")
				return
			}
			target.Difficulty = editDifficulty
		}
		if flags.Changed("tags") {
			target.Tags = splitTags(editTags)
		}
		if flags.Changed("option") {
			opts, err := parseOptions(editOptions)
			if err != nil {
				fmt.Println("❌", err)
				return
			}
			target.Options = opts
		}
		if flags.Changed("correct") {
			target.CorrectLabels = models.SplitLabels(editCorrect)
			if len(target.CorrectLabels) > 1 {
				target.Selection = models.SelectMultiple
			}
		}

		if err := a.store.UpdateItemDetails(ctx, target); err != nil {
			fmt.Println("❌ Error updating item:", err)
			return
		}

		fmt.Println("✅ Item updated successfully!")
	},
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringVar(&editPrompt, "prompt", "", "New prompt")
	editCmd.Flags().StringVar(&editAnswer, "answer", "", "New answer")
	editCmd.Flags().StringVar(&editExplanation, "explanation", "", "New explanation")
	editCmd.Flags().StringVar(&editNote, "note", "", "New note")
	editCmd.Flags().IntVar(&editDifficulty, "difficulty", 0, "New difficulty (1-5)")
	editCmd.Flags().StringVar(&editTags, "tags", "", "Comma-separated tags (replaces existing)")
	editCmd.Flags().StringArrayVar(&editOptions, "option", nil, "Choice option as LABEL=text (replaces all options)")
	editCmd.Flags().StringVar(&editCorrect, "correct", "", "Correct option labels (e.g. A,C)")
}
