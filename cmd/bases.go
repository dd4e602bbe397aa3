package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var baseDescription string

var basesCmd = &cobra.Command{
	Use:   "bases",
	Short: "List knowledge bases and their areas",
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()

		bases, err := a.store.ListBases(cmd.Context())
		if err != nil {
			fmt.Println("❌ Error listing knowledge bases:", err)
			return
		}
		if len(bases) == 0 {
			fmt.Println("📭 No knowledge bases yet. Create one with `recall bases add`.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tName\tDescription")
		fmt.Fprintln(w, "--\t----\t-----------")
		for _, kb := range bases {
			fmt.Fprintf(w, "%s\t📚 %s\t%s\n", kb.ID, kb.Name, kb.Description)
			for _, area := range kb.Areas {
				fmt.Fprintf(w, "%s\t   └ %s\t\n", area.ID, area.Name)
			}
		}
		w.Flush()
	},
}

var addBaseCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a knowledge base",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()

		kb, err := a.store.AddKnowledgeBase(cmd.Context(), args[0], baseDescription)
		if err != nil {
			fmt.Println("❌ Error adding knowledge base:", err)
			return
		}
		fmt.Printf("✅ Added knowledge base '%s' (%s)\n", kb.Name, kb.ID)
	},
}

var addAreaCmd = &cobra.Command{
	Use:   "add-area [base] [name]",
	Short: "Create an area inside a knowledge base",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()
		ctx := cmd.Context()

		kb, err := a.store.ResolveBase(ctx, args[0])
		if err != nil {
			fmt.Println("❌ Error finding knowledge base:", err)
			return
		}
		area, err := a.store.AddArea(ctx, kb.ID, args[1])
		if err != nil {
			fmt.Println("❌ Error adding area:", err)
			return
		}
		fmt.Printf("✅ Added area '%s' to '%s' (%s)\n", area.Name, kb.Name, area.ID)
	},
}

func init() {
	rootCmd.AddCommand(basesCmd)
	basesCmd.AddCommand(addBaseCmd, addAreaCmd)

	addBaseCmd.Flags().StringVarP(&baseDescription, "description", "d", "", "What the knowledge base covers")
}
