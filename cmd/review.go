package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/LavenderBridge/recall/internal/algorithm"
	"github.com/LavenderBridge/recall/internal/models"
	"github.com/LavenderBridge/recall/internal/pipeline"
	"github.com/LavenderBridge/recall/internal/session"
)

var (
	reviewBase       string
	reviewArea       string
	reviewItem       string
	reviewIDs        []string
	reviewPreset     string
	reviewMistakes   bool
	reviewWeak       bool
	reviewSmart      bool
	reviewRandom     bool
	reviewSequential bool
	reviewDue        bool
	reviewLimit      int
	reviewNoTTYCheck bool
)

var reviewCmd = &cobra.Command{
	Use:   "review [item id]",
	Short: "Start a review session",
	Long: `Start a review session.
If an item id is given, review that item only.
With no selection flags, review everything that is due (or all items when
nothing is due).

Keys during review:
  n / p    next / previous item
  r        regenerate the list from the start
  q        abandon the session
  1 2 3    grade an open item after its answer is shown
  A,C      answer a choice item with its option labels`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !reviewNoTTYCheck && !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Println("❌ review needs an interactive terminal (use --no-tty-check to read answers from a pipe)")
			return
		}
		if len(args) == 1 {
			reviewItem = args[0]
		}

		a, ok := startApp()
		if !ok {
			return
		}
		defer a.Close()

		ctx := cmd.Context()
		limit := a.cfg.Review.DefaultLimit
		if cmd.Flags().Changed("limit") {
			limit = reviewLimit
		}

		plan, err := planReview(ctx, a, pipeline.TemplateOptions{OnlyDue: reviewDue, Random: reviewRandom, Limit: limit})
		if err != nil {
			fmt.Println("❌", err)
			return
		}

		pres := &terminalPresenter{out: os.Stdout}
		ctrl := session.NewController(a.generator(), a.store, a.sched, pres, session.Options{
			Logger:   a.log,
			Recorder: a.metrics,
		})
		if err := plan.start(ctx, ctrl); err != nil {
			// already shown by the presenter
			return
		}
		runReview(ctx, ctrl, a.sched, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	f := reviewCmd.Flags()
	f.StringVarP(&reviewBase, "base", "b", "", "Review a knowledge base (id or name)")
	f.StringVarP(&reviewArea, "area", "a", "", "Review an area (id or name)")
	f.StringVar(&reviewItem, "item", "", "Review a single item")
	f.StringSliceVar(&reviewIDs, "ids", nil, "Review these item ids, in this order")
	f.StringVar(&reviewPreset, "preset", "", "Review with a session preset from the config file")
	f.BoolVarP(&reviewMistakes, "mistakes", "m", false, "Review the mistake book (narrow with --base or --area)")
	f.BoolVar(&reviewWeak, "weak", false, "Review items with low accuracy (narrow with --base)")
	f.BoolVar(&reviewSmart, "smart", false, "Review due items by priority, sized by your accuracy (narrow with --base)")
	f.BoolVarP(&reviewRandom, "random", "r", false, "Shuffle the review order")
	f.BoolVarP(&reviewSequential, "sequential", "s", false, "Earliest due first (skips the area prompt)")
	f.BoolVarP(&reviewDue, "due", "d", false, "Only items that are due")
	f.IntVarP(&reviewLimit, "limit", "n", 0, "Review at most this many items")
	f.BoolVar(&reviewNoTTYCheck, "no-tty-check", false, "Allow answers from a pipe")

	reviewCmd.MarkFlagsMutuallyExclusive("item", "ids", "preset", "mistakes", "weak", "smart")
	reviewCmd.MarkFlagsMutuallyExclusive("base", "area")
	reviewCmd.MarkFlagsMutuallyExclusive("random", "sequential")
}

// reviewPlan is either a ready config or an area waiting for its order.
type reviewPlan struct {
	cfg         pipeline.SessionConfig
	mode        session.Mode
	pendingArea string
	opts        pipeline.TemplateOptions
}

func (p reviewPlan) start(ctx context.Context, ctrl *session.Controller) error {
	if p.pendingArea != "" {
		return ctrl.RequestAreaReview(ctx, p.pendingArea, p.opts)
	}
	_, err := ctrl.Start(ctx, p.cfg, p.mode)
	return err
}

// planReview turns the review flags into a session config.
func planReview(ctx context.Context, a *app, opts pipeline.TemplateOptions) (reviewPlan, error) {
	var baseID, areaID string
	if reviewBase != "" {
		kb, err := a.store.ResolveBase(ctx, reviewBase)
		if err != nil {
			return reviewPlan{}, err
		}
		baseID = kb.ID
	}
	if reviewArea != "" {
		area, err := a.store.ResolveArea(ctx, reviewArea)
		if err != nil {
			return reviewPlan{}, err
		}
		areaID = area.ID
	}

	switch {
	case reviewItem != "":
		return reviewPlan{cfg: pipeline.Single(reviewItem), mode: session.Mode{Kind: session.ModeSingle, ID: reviewItem}}, nil

	case len(reviewIDs) > 0:
		return reviewPlan{cfg: pipeline.CustomList(reviewIDs, opts), mode: session.Mode{Kind: session.ModeCustom}}, nil

	case reviewPreset != "":
		cfg, ok := a.cfg.Preset(reviewPreset)
		if !ok {
			names := a.cfg.PresetNames()
			if len(names) == 0 {
				return reviewPlan{}, fmt.Errorf("unknown preset %q (no presets configured)", reviewPreset)
			}
			return reviewPlan{}, fmt.Errorf("unknown preset %q (have: %s)", reviewPreset, strings.Join(names, ", "))
		}
		return reviewPlan{cfg: cfg, mode: session.Mode{Kind: session.ModeCustom, ID: reviewPreset}}, nil

	case reviewMistakes:
		scope := models.GlobalScope()
		switch {
		case areaID != "":
			scope = models.AreaScope(areaID)
		case baseID != "":
			scope = models.BaseScope(baseID)
		}
		return reviewPlan{cfg: pipeline.MistakesReview(scope, opts), mode: session.Mode{Kind: session.ModeMistakes, Scope: scope}}, nil

	case reviewWeak:
		opts.BaseID = baseID
		return reviewPlan{cfg: pipeline.WeaknessReview(opts), mode: session.Mode{Kind: session.ModeWeakness}}, nil

	case reviewSmart:
		opts.BaseID = baseID
		return reviewPlan{cfg: pipeline.SmartReview(opts), mode: session.Mode{Kind: session.ModeSmart}}, nil

	case areaID != "":
		if !reviewRandom && !reviewSequential {
			return reviewPlan{pendingArea: areaID, opts: opts}, nil
		}
		return reviewPlan{cfg: pipeline.AreaReview(areaID, opts), mode: session.Mode{Kind: session.ModeArea, ID: areaID}}, nil

	case baseID != "":
		return reviewPlan{cfg: pipeline.KnowledgeBaseReview(baseID, opts), mode: session.Mode{Kind: session.ModeKnowledgeBase, ID: baseID}}, nil

	case reviewRandom:
		return reviewPlan{cfg: pipeline.RandomAll(opts), mode: session.Mode{Kind: session.ModeRandom}}, nil
	}
	return reviewPlan{cfg: pipeline.Scheduled(opts), mode: session.Mode{Kind: session.ModeSequential}}, nil
}

// runReview drives the controller from line input until the session ends.
// Running out of input abandons the session.
func runReview(ctx context.Context, ctrl *session.Controller, sched *algorithm.Scheduler, in io.Reader, out io.Writer) {
	r := &lineReader{in: bufio.NewReader(in), out: out}

	for {
		info := ctrl.Info()
		switch info.State {
		case session.StateAreaModePending:
			line, ok := r.prompt("Review order? [s]equential / [r]andom / [q]uit: ")
			if !ok {
				ctrl.Abandon()
				return
			}
			switch strings.ToLower(line) {
			case "", "s":
				ctrl.ChooseAreaMode(ctx, false)
			case "r":
				ctrl.ChooseAreaMode(ctx, true)
			case "q":
				ctrl.Abandon()
				return
			default:
				fmt.Fprintln(out, "⚠️ Please answer s, r or q.")
			}

		case session.StateActive:
			if !reviewCurrent(ctx, ctrl, sched, info, r) {
				ctrl.Abandon()
				return
			}

		default:
			return
		}
	}
}

// reviewCurrent handles one round of input for the current item. It
// returns false when input is exhausted.
func reviewCurrent(ctx context.Context, ctrl *session.Controller, sched *algorithm.Scheduler, info session.Info, r *lineReader) bool {
	it := info.Current
	if it == nil {
		return true
	}

	question := "Type your answer or press Enter to reveal (n/p/r/q): "
	if it.Variant == models.VariantChoice {
		question = "Answer with option labels, e.g. A,C (n/p/r/q): "
	}
	line, ok := r.prompt(question)
	if !ok {
		return false
	}
	if navigate(ctx, ctrl, line, r.out) {
		return true
	}

	if it.Variant == models.VariantChoice {
		labels := models.SplitLabels(line)
		if len(labels) == 0 {
			fmt.Fprintln(r.out, "⚠️ Enter at least one option label.")
			return true
		}
		res, err := ctrl.SubmitChoice(ctx, labels)
		if err != nil {
			return true
		}
		if res.Correct {
			fmt.Fprintln(r.out, "✅ Correct!")
		} else {
			fmt.Fprintf(r.out, "❌ Incorrect. Answer: %s\n", strings.Join(it.CorrectLabels, ","))
		}
		printSchedule(r.out, res)
		return true
	}

	answer := line
	fmt.Fprintln(r.out, "\nAnswer:", it.Answer)
	if it.Explanation != "" {
		fmt.Fprintln(r.out, "Explanation:", it.Explanation)
	}
	if it.Note != "" {
		fmt.Fprintln(r.out, "Note:", it.Note)
	}
	printPreview(r.out, sched.Preview(it.Ease, it.Interval, time.Now()))

	for {
		line, ok := r.prompt("Rate recall (1: incorrect, 2: uncertain, 3: correct): ")
		if !ok {
			return false
		}
		q, err := algorithm.ParseQuality(line)
		if err != nil {
			fmt.Fprintln(r.out, "⚠️ Invalid input, enter 1, 2 or 3.")
			continue
		}
		res, err := ctrl.SubmitGrade(ctx, session.Grade{Quality: q, Answer: answer})
		if err != nil {
			return true
		}
		printSchedule(r.out, res)
		return true
	}
}

// navigate runs n/p/r/q and reports whether line was one of them.
func navigate(ctx context.Context, ctrl *session.Controller, line string, out io.Writer) bool {
	switch line {
	case "n":
		if !ctrl.Next() {
			fmt.Fprintln(out, "⚠️ Already at the last item.")
		}
	case "p":
		if !ctrl.Previous() {
			fmt.Fprintln(out, "⚠️ Already at the first item.")
		}
	case "r":
		ctrl.Refresh(ctx)
	case "q":
		ctrl.Abandon()
	default:
		return false
	}
	return true
}

func printPreview(out io.Writer, preview map[algorithm.Quality]algorithm.Result) {
	fmt.Fprintln(out)
	for _, q := range []algorithm.Quality{algorithm.Incorrect, algorithm.Uncertain, algorithm.Correct} {
		fmt.Fprintf(out, "  %d %-9s → %s\n", int(q), q, untilDue(preview[q].DueAt))
	}
}

func printSchedule(out io.Writer, res session.GradeResult) {
	if res.Discarded {
		return
	}
	fmt.Fprintf(out, "Next review %s.\n", untilDue(res.Schedule.DueAt))
}

// untilDue renders a due time relative to now.
func untilDue(due time.Time) string {
	d := time.Until(due)
	if d < 24*time.Hour {
		return fmt.Sprintf("in %d hours", max(int(d.Round(time.Hour)/time.Hour), 1))
	}
	return fmt.Sprintf("in %d days (%s)", int(d.Round(24*time.Hour)/(24*time.Hour)), due.Local().Format("2006-01-02"))
}

type lineReader struct {
	in  *bufio.Reader
	out io.Writer
}

// prompt prints question and reads one trimmed line. It reports false at
// end of input.
func (l *lineReader) prompt(question string) (string, bool) {
	fmt.Fprint(l.out, question)
	line, err := l.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		fmt.Fprintln(l.out)
		return "", false
	}
	return strings.TrimSpace(line), true
}
