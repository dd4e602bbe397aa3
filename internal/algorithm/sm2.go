package algorithm

import (
	"fmt"
	"math"
	"time"

	"github.com/LavenderBridge/recall/internal/models"
)

// Default settings for new items
const (
	InitialInterval   = 1
	InitialEaseFactor = 2.5
)

// Policy holds the tunable constants of the scheduler. The defaults are
// empirically tuned; change them only deliberately.
type Policy struct {
	InitialEase      float64       `yaml:"initial_ease"`
	MinEase          float64       `yaml:"min_ease"`
	MaxEase          float64       `yaml:"max_ease"`
	IncorrectPenalty float64       `yaml:"incorrect_penalty"`
	UncertainPenalty float64       `yaml:"uncertain_penalty"`
	CorrectBonus     float64       `yaml:"correct_bonus"`
	UncertainFactor  float64       `yaml:"uncertain_factor"` // interval multiplier on Uncertain
	RelearnDelay     time.Duration `yaml:"relearn_delay"`    // due offset on Incorrect
	FirstStep        int           `yaml:"first_step"`       // days after the first success
	SecondStep       int           `yaml:"second_step"`      // days after the second success
}

// DefaultPolicy returns the stock modified SM-2 constants.
func DefaultPolicy() Policy {
	return Policy{
		InitialEase:      InitialEaseFactor,
		MinEase:          1.3,
		MaxEase:          3.0,
		IncorrectPenalty: 0.3,
		UncertainPenalty: 0.1,
		CorrectBonus:     0.15,
		UncertainFactor:  0.6,
		RelearnDelay:     6 * time.Hour,
		FirstStep:        3,
		SecondStep:       6,
	}
}

// Validate checks that the policy can keep ease and interval in bounds.
func (p Policy) Validate() error {
	switch {
	case p.MinEase <= 0:
		return fmt.Errorf("%w: min ease %v must be positive", ErrInvalidPolicy, p.MinEase)
	case p.MinEase > p.MaxEase:
		return fmt.Errorf("%w: min ease %v above max ease %v", ErrInvalidPolicy, p.MinEase, p.MaxEase)
	case p.InitialEase < p.MinEase || p.InitialEase > p.MaxEase:
		return fmt.Errorf("%w: initial ease %v outside [%v, %v]", ErrInvalidPolicy, p.InitialEase, p.MinEase, p.MaxEase)
	case p.IncorrectPenalty < 0 || p.UncertainPenalty < 0 || p.CorrectBonus < 0:
		return fmt.Errorf("%w: ease adjustments must not be negative", ErrInvalidPolicy)
	case p.UncertainFactor <= 0 || p.UncertainFactor > 1:
		return fmt.Errorf("%w: uncertain factor %v outside (0, 1]", ErrInvalidPolicy, p.UncertainFactor)
	case p.RelearnDelay <= 0:
		return fmt.Errorf("%w: relearn delay must be positive", ErrInvalidPolicy)
	case p.FirstStep < 1 || p.SecondStep < p.FirstStep:
		return fmt.Errorf("%w: graduation steps %d, %d", ErrInvalidPolicy, p.FirstStep, p.SecondStep)
	}
	return nil
}

// Result is the scheduling state after one grading.
type Result struct {
	Ease     float64
	Interval int
	DueAt    time.Time
}

// Scheduler applies the modified SM-2 policy. It is stateless apart from its
// policy and safe for concurrent use.
type Scheduler struct {
	policy Policy
}

// NewScheduler validates p and returns a Scheduler using it.
func NewScheduler(p Policy) (*Scheduler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{policy: p}, nil
}

// Default returns a Scheduler with DefaultPolicy.
func Default() *Scheduler {
	return &Scheduler{policy: DefaultPolicy()}
}

// Policy returns the constants the scheduler runs with.
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// Schedule computes the next ease, interval and due time for an item with the
// given state graded q at now.
//
//	Incorrect: interval 1, ease - 0.3, due in 6 hours
//	Uncertain: interval * 0.6 (at least 1), ease - 0.1, due in interval days
//	Correct:   ease + 0.15, interval 3 then 6 then interval * ease, due in interval days
func (s *Scheduler) Schedule(ease float64, interval int, q Quality, now time.Time) (Result, error) {
	if !q.IsValid() {
		return Result{}, fmt.Errorf("%w: quality %d", ErrInvalidGrade, int(q))
	}
	p := s.policy
	ease = s.clampEase(ease)
	if interval < 1 {
		interval = 1
	}

	switch q {
	case Incorrect:
		return Result{
			Ease:     s.clampEase(ease - p.IncorrectPenalty),
			Interval: 1,
			DueAt:    now.Add(p.RelearnDelay),
		}, nil

	case Uncertain:
		next := int(math.Round(float64(interval) * p.UncertainFactor))
		if next < 1 {
			next = 1
		}
		return Result{
			Ease:     s.clampEase(ease - p.UncertainPenalty),
			Interval: next,
			DueAt:    now.Add(days(next)),
		}, nil

	default:
		newEase := s.clampEase(ease + p.CorrectBonus)
		var next int
		switch {
		case interval == 1:
			next = p.FirstStep
		case interval < p.SecondStep:
			next = p.SecondStep
		default:
			next = int(math.Round(float64(interval) * newEase))
		}
		if next < 1 {
			next = 1
		}
		return Result{
			Ease:     newEase,
			Interval: next,
			DueAt:    now.Add(days(next)),
		}, nil
	}
}

// Preview returns the outcome of each possible grade without committing any.
func (s *Scheduler) Preview(ease float64, interval int, now time.Time) map[Quality]Result {
	out := make(map[Quality]Result, 3)
	for _, q := range []Quality{Incorrect, Uncertain, Correct} {
		r, _ := s.Schedule(ease, interval, q, now)
		out[q] = r
	}
	return out
}

// InitItem sets default scheduling values for a newly authored item.
// New items are due immediately.
func (s *Scheduler) InitItem(it models.Item, now time.Time) models.Item {
	it.Ease = s.policy.InitialEase
	it.Interval = InitialInterval
	it.DueAt = now
	it.ReviewCount = 0
	it.CorrectCount = 0
	it.LastReviewed = nil
	if it.Difficulty == 0 {
		it.Difficulty = 3
	}
	return it
}

func (s *Scheduler) clampEase(e float64) float64 {
	if e < s.policy.MinEase {
		return s.policy.MinEase
	}
	if e > s.policy.MaxEase {
		return s.policy.MaxEase
	}
	return e
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
