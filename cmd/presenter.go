package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LavenderBridge/recall/internal/models"
	"github.com/LavenderBridge/recall/internal/session"
)

const rule = "========================================"

// terminalPresenter prints review output as plain text.
type terminalPresenter struct {
	out io.Writer
}

var _ session.Presenter = (*terminalPresenter)(nil)

func (t *terminalPresenter) RenderItem(it models.Item, p session.Progress) {
	fmt.Fprintln(t.out, "\n"+rule)
	fmt.Fprintf(t.out, "Reviewing [%d/%d] %s\n", p.Position(), p.Total, p.Mode)
	fmt.Fprintln(t.out, rule)
	fmt.Fprintln(t.out, it.Prompt)

	if it.Variant == models.VariantChoice {
		fmt.Fprintln(t.out)
		for _, o := range it.Options {
			fmt.Fprintf(t.out, "  %s. %s\n", o.Label, o.Text)
		}
		if it.Selection == models.SelectMultiple {
			fmt.Fprintln(t.out, "  (select all that apply)")
		}
	}
	if len(it.Tags) > 0 {
		fmt.Fprintf(t.out, "Tags: %s\n", strings.Join(it.Tags, ", "))
	}
	if it.ReviewCount > 0 {
		fmt.Fprintf(t.out, "Seen %d times, %.0f%% correct\n", it.ReviewCount, it.Accuracy()*100)
	}
}

func (t *terminalPresenter) NoItemsAvailable(reason string) {
	fmt.Fprintf(t.out, "✅ Nothing to review: %s\n", reason)
}

func (t *terminalPresenter) SessionCompleted(s session.Summary, d session.Destination) {
	if s.Abandoned {
		fmt.Fprintln(t.out, "\n🛑 Review session abandoned.")
	} else {
		fmt.Fprintln(t.out, "\n🎉 Review session complete!")
	}
	fmt.Fprintf(t.out, "Graded %d of %d: %d correct, %d uncertain, %d incorrect\n",
		s.Graded, s.Count, s.Correct, s.Uncertain, s.Incorrect)
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		fmt.Fprintf(t.out, "Time: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(t.out, "Next: %s\n", destinationHint(d))
}

func (t *terminalPresenter) Error(err error) {
	fmt.Fprintln(t.out, "❌", err)
}

// destinationHint names the command that shows the destination view.
func destinationHint(d session.Destination) string {
	switch d.Kind {
	case session.DestMistakes:
		return "recall mistakes"
	case session.DestKnowledgeBase:
		return "recall list --base " + d.ID
	case session.DestKnowledgeArea:
		return "recall list --area " + d.ID
	}
	return "recall review --help"
}
