package pipeline

import (
	"math/rand"
	"strings"

	"github.com/LavenderBridge/recall/internal/models"
)

// ShuffleChoices shuffles the options of a choice item and relabels them
// A, B, C... so position cannot be memorized. Correct labels are remapped by
// option text. Items that cannot be remapped safely are returned unchanged.
func ShuffleChoices(it models.Item, rng *rand.Rand) models.Item {
	if it.Variant != models.VariantChoice || len(it.Options) <= 1 || len(it.Options) > 26 {
		return it
	}

	var correctTexts []string
	for _, label := range it.CorrectLabels {
		text, ok := it.OptionText(strings.TrimSpace(label))
		if !ok {
			return it
		}
		correctTexts = append(correctTexts, text)
	}

	shuffled := Shuffle(it.Options, rng)
	out := it.Clone()
	out.Options = make([]models.Option, len(shuffled))
	textToLabel := make(map[string]string, len(shuffled))
	for i, o := range shuffled {
		label := string(rune('A' + i))
		out.Options[i] = models.Option{Label: label, Text: o.Text}
		if _, dup := textToLabel[o.Text]; dup {
			// Duplicate option texts make the remap ambiguous.
			return it
		}
		textToLabel[o.Text] = label
	}

	out.CorrectLabels = make([]string, 0, len(correctTexts))
	for _, text := range correctTexts {
		out.CorrectLabels = append(out.CorrectLabels, textToLabel[text])
	}
	return out
}
