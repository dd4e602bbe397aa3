package models

import (
	"sort"
	"strings"
	"time"
)

// Variant distinguishes open-answer items from choice items.
type Variant string

const (
	VariantOpen   Variant = "open"
	VariantChoice Variant = "choice"
)

// SelectionMode says whether a choice item expects one or several labels.
type SelectionMode string

const (
	SelectSingle   SelectionMode = "single"
	SelectMultiple SelectionMode = "multiple"
)

// Option is one labeled answer of a choice item.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// Item represents a single reviewable flashcard.
type Item struct {
	ID              string  `json:"id"`
	KnowledgeBaseID string  `json:"knowledge_base_id"`
	AreaID          string  `json:"area_id"`
	Prompt          string  `json:"prompt"`
	Variant         Variant `json:"variant"`

	// Open-answer fields
	Answer      string `json:"answer,omitempty"`
	Explanation string `json:"explanation,omitempty"`

	// Choice fields
	Options       []Option      `json:"options,omitempty"`
	CorrectLabels []string      `json:"correct_labels,omitempty"`
	Selection     SelectionMode `json:"selection,omitempty"`

	Note       string   `json:"note,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Difficulty int      `json:"difficulty"` // 1-5, 3 when unset

	// Scheduling state, mutated only by graded review
	Ease         float64    `json:"ease"`
	Interval     int        `json:"interval"` // Days until next review
	DueAt        time.Time  `json:"due_at"`
	ReviewCount  int        `json:"review_count"`
	CorrectCount int        `json:"correct_count"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Accuracy is CorrectCount/ReviewCount, or 0 for an item never reviewed.
func (it Item) Accuracy() float64 {
	if it.ReviewCount <= 0 {
		return 0
	}
	return float64(it.CorrectCount) / float64(it.ReviewCount)
}

// IsDue reports whether the item is due at now.
func (it Item) IsDue(now time.Time) bool {
	return !it.DueAt.After(now)
}

// HasTag reports whether the item carries tag.
func (it Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with it.
func (it Item) Clone() Item {
	out := it
	if it.Options != nil {
		out.Options = append([]Option(nil), it.Options...)
	}
	if it.CorrectLabels != nil {
		out.CorrectLabels = append([]string(nil), it.CorrectLabels...)
	}
	if it.Tags != nil {
		out.Tags = append([]string(nil), it.Tags...)
	}
	if it.LastReviewed != nil {
		v := *it.LastReviewed
		out.LastReviewed = &v
	}
	return out
}

// CheckChoice reports whether selected names exactly the correct labels.
// Comparison ignores case, surrounding space and order.
func (it Item) CheckChoice(selected []string) bool {
	if it.Variant != VariantChoice {
		return false
	}
	got := normalizeLabels(selected)
	want := normalizeLabels(it.CorrectLabels)
	if len(got) == 0 || len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// OptionText returns the text of the option with the given label.
func (it Item) OptionText(label string) (string, bool) {
	for _, o := range it.Options {
		if strings.EqualFold(o.Label, label) {
			return o.Text, true
		}
	}
	return "", false
}

// SplitLabels parses "A, c" style input into labels.
func SplitLabels(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, l := range labels {
		l = strings.ToUpper(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// KnowledgeBase groups areas of related items.
type KnowledgeBase struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Areas       []Area    `json:"areas,omitempty"`
}

// Area is a subdivision of a knowledge base.
type Area struct {
	ID              string    `json:"id"`
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
}

// MistakeRecord aggregates the incorrect gradings of one item.
type MistakeRecord struct {
	ID             string     `json:"id"`
	ItemID         string     `json:"item_id"`
	Count          int        `json:"count"`
	FirstMistakeAt time.Time  `json:"first_mistake_at"`
	LastMistakeAt  time.Time  `json:"last_mistake_at"`
	Reasons        []string   `json:"reasons"`
	Resolved       bool       `json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// ReviewEntry represents a single grading event. Entries are append-only.
type ReviewEntry struct {
	ID         string        `json:"id"`
	ItemID     string        `json:"item_id"`
	ReviewedAt time.Time     `json:"reviewed_at"`
	Correct    bool          `json:"correct"`
	Quality    int           `json:"quality"`
	TimeSpent  time.Duration `json:"time_spent"`
	Answer     string        `json:"answer"`
	Variant    Variant       `json:"variant"`
}

// SchedulingUpdate carries the fields a graded review writes back.
type SchedulingUpdate struct {
	Ease         float64
	Interval     int
	DueAt        time.Time
	ReviewCount  int
	CorrectCount int
	ReviewedAt   time.Time
}

// ReviewTotals is the all-time grading tally.
type ReviewTotals struct {
	Total   int
	Correct int
}

type ReviewStats struct {
	TotalItems       int
	TotalReviews     int
	ReviewsToday     int
	ReviewsLast7Days int
	CorrectRate      float64 // percent
	AverageQuality   float64
	OpenMistakes     int
	Mastered         int
	Due              int
	CountByVariant   map[Variant]int
}
