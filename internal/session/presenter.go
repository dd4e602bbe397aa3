package session

import (
	"time"

	"github.com/LavenderBridge/recall/internal/algorithm"
	"github.com/LavenderBridge/recall/internal/models"
)

// Presenter shows controller output to the user. Calls are made without
// the controller lock held, so a Presenter may call back into the
// controller (e.g. Info).
type Presenter interface {
	RenderItem(item models.Item, p Progress)
	NoItemsAvailable(reason string)
	SessionCompleted(s Summary, d Destination)
	Error(err error)
}

// Progress locates the rendered item in its session.
type Progress struct {
	Mode  Mode
	Index int // zero-based
	Total int
}

// Position is the one-based index shown to users.
func (p Progress) Position() int { return p.Index + 1 }

// Summary describes a finished or abandoned session.
type Summary struct {
	Mode       Mode
	Count      int // list length
	Graded     int
	Correct    int
	Uncertain  int
	Incorrect  int
	StartedAt  time.Time
	FinishedAt time.Time
	Abandoned  bool
}

func (s *Summary) tally(q algorithm.Quality) {
	s.Graded++
	switch q {
	case algorithm.Correct:
		s.Correct++
	case algorithm.Uncertain:
		s.Uncertain++
	case algorithm.Incorrect:
		s.Incorrect++
	}
}

// Recorder observes graded reviews, e.g. for metrics.
type Recorder interface {
	SessionStarted(mode Mode, size int)
	ItemGraded(q algorithm.Quality, spent time.Duration)
	SessionFinished(s Summary)
}
