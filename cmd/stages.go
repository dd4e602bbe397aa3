package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/config"
	"github.com/LavenderBridge/recall/internal/pipeline"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List pipeline stages and configured presets",
	Long: `List the stage names usable in config.yaml presets, grouped by kind,
followed by the presets found in the current configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		printStages(os.Stdout, pipeline.DefaultRegistry())

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Println("⚠️ Could not load config:", err)
			return
		}
		printPresets(os.Stdout, cfg)
	},
}

func init() {
	rootCmd.AddCommand(stagesCmd)
}

func printStages(w io.Writer, r *pipeline.Registry) {
	for _, kind := range []pipeline.StageKind{pipeline.KindSource, pipeline.KindFilter, pipeline.KindSorter, pipeline.KindLimiter} {
		names := r.Names(kind)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = string(n)
		}
		fmt.Fprintf(w, "%-8s %s\n", kind.String()+":", strings.Join(parts, ", "))
	}
}

func printPresets(w io.Writer, cfg *config.Config) {
	names := cfg.PresetNames()
	if len(names) == 0 {
		fmt.Fprintln(w, "\nNo presets configured.")
		return
	}
	fmt.Fprintln(w, "\nPresets:")
	for _, name := range names {
		p, _ := cfg.Preset(name)
		fmt.Fprintf(w, "  %s (source %s)\n", name, p.Source.Name)
	}
}
