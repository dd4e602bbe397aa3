// Package session runs review sessions: it walks a generated item list,
// grades answers and writes the rescheduled state back to the store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LavenderBridge/recall/internal/algorithm"
	"github.com/LavenderBridge/recall/internal/logging"
	"github.com/LavenderBridge/recall/internal/models"
	"github.com/LavenderBridge/recall/internal/pipeline"
)

// State is the controller's position in its state machine.
type State int

const (
	StateIdle State = iota
	StateAreaModePending
	StateActive
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAreaModePending:
		return "area-mode-pending"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Generator builds item lists from session configs.
type Generator interface {
	Generate(ctx context.Context, cfg pipeline.SessionConfig) ([]models.Item, error)
}

// Store is the knowledge store side the controller writes to.
type Store interface {
	ItemByID(ctx context.Context, id string) (models.Item, error)
	UpdateItemScheduling(ctx context.Context, id string, u models.SchedulingUpdate) error
	AppendReviewHistory(ctx context.Context, e models.ReviewEntry) error
	UpsertMistake(ctx context.Context, itemID, reason string) error
}

// Options tune a Controller. Zero values get defaults.
type Options struct {
	Now      func() time.Time
	NewID    func() string
	Logger   *slog.Logger
	Recorder Recorder
}

// Grade is a self-assessed answer to the current item.
type Grade struct {
	Quality algorithm.Quality
	Answer  string
}

// GradeResult reports what a graded advance did.
type GradeResult struct {
	ItemID    string
	Quality   algorithm.Quality
	Correct   bool
	Schedule  algorithm.Result
	Completed bool
	// Discarded is set when the session was abandoned while the grade was
	// being saved. The writes happened; the session state ignored them.
	Discarded bool
	Summary   *Summary
}

// Info is a snapshot of the controller.
type Info struct {
	State     State
	Mode      Mode
	Total     int
	Cursor    int
	Remaining int
	Percent   int
	StartedAt time.Time
	Current   *models.Item
	Config    *pipeline.SessionConfig
	AreaID    string // set while a mode choice is pending
}

// Controller is the review session state machine. It is safe for
// concurrent use; at most one grade is saved at a time.
type Controller struct {
	gen       Generator
	store     Store
	scheduler *algorithm.Scheduler
	presenter Presenter
	now       func() time.Time
	newID     func() string
	log       *slog.Logger
	recorder  Recorder

	mu         sync.Mutex
	state      State
	mode       Mode
	cfg        pipeline.SessionConfig
	items      []models.Item
	cursor     int
	startedAt  time.Time
	shownAt    time.Time
	summary    Summary
	generation uint64
	grading    bool
	attempts   map[string]*gradeAttempt

	pendingArea string
	pendingOpts pipeline.TemplateOptions
}

// gradeAttempt is a grade whose writes have not all gone through. Retries
// continue it from the state loaded before its first write, so one grade
// is applied once however many tries it takes.
type gradeAttempt struct {
	base     models.Item
	at       time.Time
	entryID  string
	quality  algorithm.Quality
	answer   string
	spent    time.Duration
	logged   bool
	mistaken bool
}

// NewController wires a controller. sched may be nil for the default policy.
func NewController(gen Generator, store Store, sched *algorithm.Scheduler, p Presenter, opts Options) *Controller {
	c := &Controller{
		gen:       gen,
		store:     store,
		scheduler: sched,
		presenter: p,
		now:       opts.Now,
		newID:     opts.NewID,
		log:       logging.OrDiscard(opts.Logger),
		recorder:  opts.Recorder,
	}
	if c.scheduler == nil {
		c.scheduler = algorithm.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Start generates the list for cfg and renders its first item. It returns
// false with a nil error when nothing matched; the presenter has then been
// told and the controller state is unchanged.
func (c *Controller) Start(ctx context.Context, cfg pipeline.SessionConfig, mode Mode) (bool, error) {
	c.mu.Lock()
	if c.state == StateActive {
		c.mu.Unlock()
		return false, c.fail(ErrSessionActive)
	}
	c.mu.Unlock()

	items, err := c.gen.Generate(ctx, cfg)
	if err != nil {
		return false, c.fail(err)
	}
	if len(items) == 0 {
		c.presenter.NoItemsAvailable(noItemsReason(mode))
		return false, nil
	}

	c.mu.Lock()
	if c.state == StateActive {
		c.mu.Unlock()
		return false, c.fail(ErrSessionActive)
	}
	now := c.now()
	c.reset()
	c.state = StateActive
	c.mode = mode
	c.cfg = cfg.Clone()
	c.items = items
	c.startedAt = now
	c.shownAt = now
	c.summary = Summary{Mode: mode, Count: len(items), StartedAt: now}
	first, progress := c.current()
	c.mu.Unlock()

	c.log.Info("review session started", "mode", mode.String(), "items", len(items))
	if c.recorder != nil {
		c.recorder.SessionStarted(mode, len(items))
	}
	c.presenter.RenderItem(first, progress)
	return true, nil
}

// StartSingle reviews one item.
func (c *Controller) StartSingle(ctx context.Context, itemID string) (bool, error) {
	return c.Start(ctx, pipeline.Single(itemID), Mode{Kind: ModeSingle, ID: itemID})
}

// RequestAreaReview holds an area until ChooseAreaMode says how to order it.
// An area with no items is reported and nothing is held.
func (c *Controller) RequestAreaReview(ctx context.Context, areaID string, opts pipeline.TemplateOptions) error {
	c.mu.Lock()
	if c.state == StateActive {
		c.mu.Unlock()
		return c.fail(ErrSessionActive)
	}
	c.mu.Unlock()

	items, err := c.gen.Generate(ctx, pipeline.AreaReview(areaID, pipeline.TemplateOptions{}))
	if err != nil {
		return c.fail(err)
	}
	if len(items) == 0 {
		c.presenter.NoItemsAvailable("this area has no items")
		return nil
	}

	c.mu.Lock()
	if c.state == StateActive {
		c.mu.Unlock()
		return c.fail(ErrSessionActive)
	}
	c.reset()
	c.state = StateAreaModePending
	c.pendingArea = areaID
	c.pendingOpts = opts
	c.mu.Unlock()

	c.log.Info("area review pending mode choice", "area", areaID)
	return nil
}

// ChooseAreaMode starts the pending area review, in random order or in
// creation order.
func (c *Controller) ChooseAreaMode(ctx context.Context, random bool) (bool, error) {
	c.mu.Lock()
	if c.state != StateAreaModePending {
		c.mu.Unlock()
		return false, c.fail(ErrNotPending)
	}
	areaID, opts := c.pendingArea, c.pendingOpts
	c.reset()
	c.mu.Unlock()

	opts.Random = random
	return c.Start(ctx, pipeline.AreaReview(areaID, opts), Mode{Kind: ModeArea, ID: areaID})
}

// Next moves to the following item. It reports whether the cursor moved.
func (c *Controller) Next() bool {
	return c.move(1)
}

// Previous moves to the preceding item.
func (c *Controller) Previous() bool {
	return c.move(-1)
}

func (c *Controller) move(delta int) bool {
	c.mu.Lock()
	if c.state != StateActive || c.grading {
		c.mu.Unlock()
		return false
	}
	to := c.cursor + delta
	if to < 0 || to >= len(c.items) {
		c.mu.Unlock()
		return false
	}
	c.cursor = to
	c.shownAt = c.now()
	it, progress := c.current()
	c.mu.Unlock()

	c.presenter.RenderItem(it, progress)
	return true
}

// SubmitGrade grades the current item, reschedules it, records the review
// (and a mistake for an incorrect answer) and advances. A store failure
// leaves the cursor where it was; the next SubmitGrade for that item
// finishes the failed grade. Once its review entry is saved the failed
// grade's quality and answer are kept and g is ignored.
func (c *Controller) SubmitGrade(ctx context.Context, g Grade) (GradeResult, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return GradeResult{}, c.fail(ErrNoSession)
	}
	if c.grading {
		c.mu.Unlock()
		return GradeResult{}, c.fail(ErrGradeInFlight)
	}
	if !g.Quality.IsValid() {
		c.mu.Unlock()
		return GradeResult{}, c.fail(fmt.Errorf("%w: %d", algorithm.ErrInvalidGrade, int(g.Quality)))
	}
	c.grading = true
	generation := c.generation
	index := c.cursor
	itemID := c.items[index].ID
	a := c.attempts[itemID]
	if a == nil {
		a = &gradeAttempt{}
		if c.attempts == nil {
			c.attempts = make(map[string]*gradeAttempt)
		}
		c.attempts[itemID] = a
	}
	if !a.logged {
		a.quality, a.answer = g.Quality, g.Answer
		a.spent = c.now().Sub(c.shownAt)
	}
	c.mu.Unlock()

	res, update, err := c.persist(ctx, itemID, a)

	c.mu.Lock()
	c.grading = false
	if err != nil {
		c.mu.Unlock()
		return GradeResult{}, c.fail(err)
	}
	q, spent := a.quality, a.spent
	out := GradeResult{
		ItemID:   itemID,
		Quality:  q,
		Correct:  q == algorithm.Correct,
		Schedule: res,
	}
	if generation != c.generation {
		c.mu.Unlock()
		c.log.Info("grade saved after session ended", "item", itemID)
		out.Discarded = true
		return out, nil
	}
	delete(c.attempts, itemID)

	// Only scheduling changes; the entry keeps the options as shown.
	li := &c.items[index]
	li.Ease, li.Interval, li.DueAt = update.Ease, update.Interval, update.DueAt
	li.ReviewCount, li.CorrectCount = update.ReviewCount, update.CorrectCount
	reviewed := update.ReviewedAt
	li.LastReviewed = &reviewed
	c.summary.tally(q)
	c.cursor = index + 1

	if c.cursor < len(c.items) {
		c.shownAt = c.now()
		next, progress := c.current()
		c.mu.Unlock()

		if c.recorder != nil {
			c.recorder.ItemGraded(q, spent)
		}
		c.presenter.RenderItem(next, progress)
		return out, nil
	}

	c.state = StateCompleted
	summary := c.summary
	summary.FinishedAt = c.now()
	dest := c.mode.Destination()
	c.mu.Unlock()

	out.Completed = true
	out.Summary = &summary
	if c.recorder != nil {
		c.recorder.ItemGraded(q, spent)
		c.recorder.SessionFinished(summary)
	}
	c.log.Info("review session completed",
		"mode", summary.Mode.String(), "count", summary.Count, "correct", summary.Correct)
	c.presenter.SessionCompleted(summary, dest)

	c.mu.Lock()
	if c.generation == generation && c.state == StateCompleted {
		c.reset()
	}
	c.mu.Unlock()
	return out, nil
}

// persist runs the store writes of a grade in order, skipping the ones an
// earlier try already made. The scheduling write is absolute, computed from
// the pre-grade state, so repeating it is harmless.
func (c *Controller) persist(ctx context.Context, itemID string, a *gradeAttempt) (algorithm.Result, models.SchedulingUpdate, error) {
	if a.at.IsZero() {
		it, err := c.store.ItemByID(ctx, itemID)
		if err != nil {
			return algorithm.Result{}, models.SchedulingUpdate{}, &PersistenceError{Op: "load item", ItemID: itemID, Err: err}
		}
		a.base, a.at, a.entryID = it, c.now(), c.newID()
	}

	correct := a.quality == algorithm.Correct
	res, err := c.scheduler.Schedule(a.base.Ease, a.base.Interval, a.quality, a.at)
	if err != nil {
		return algorithm.Result{}, models.SchedulingUpdate{}, err
	}
	update := models.SchedulingUpdate{
		Ease:         res.Ease,
		Interval:     res.Interval,
		DueAt:        res.DueAt,
		ReviewCount:  a.base.ReviewCount + 1,
		CorrectCount: a.base.CorrectCount,
		ReviewedAt:   a.at,
	}
	if correct {
		update.CorrectCount++
	}

	if !a.logged {
		if err := c.store.UpdateItemScheduling(ctx, itemID, update); err != nil {
			return res, update, &PersistenceError{Op: "update scheduling", ItemID: itemID, Err: err}
		}
		entry := models.ReviewEntry{
			ID:         a.entryID,
			ItemID:     itemID,
			ReviewedAt: a.at,
			Correct:    correct,
			Quality:    int(a.quality),
			TimeSpent:  a.spent,
			Answer:     a.answer,
			Variant:    a.base.Variant,
		}
		if err := c.store.AppendReviewHistory(ctx, entry); err != nil {
			return res, update, &PersistenceError{Op: "append review history", ItemID: itemID, Err: err}
		}
		a.logged = true
	}

	if a.quality == algorithm.Incorrect && !a.mistaken {
		if err := c.store.UpsertMistake(ctx, itemID, mistakeReason(a.answer)); err != nil {
			return res, update, &PersistenceError{Op: "record mistake", ItemID: itemID, Err: err}
		}
		a.mistaken = true
	}

	c.log.Debug("item rescheduled",
		"item", itemID, "quality", a.quality.String(), "ease", res.Ease, "interval", res.Interval)
	return res, update, nil
}

// SubmitChoice grades a choice item from the selected labels: exactly the
// correct labels is Correct, anything else Incorrect.
func (c *Controller) SubmitChoice(ctx context.Context, labels []string) (GradeResult, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return GradeResult{}, c.fail(ErrNoSession)
	}
	it := c.items[c.cursor]
	c.mu.Unlock()

	q := algorithm.Incorrect
	if it.CheckChoice(labels) {
		q = algorithm.Correct
	}
	return c.SubmitGrade(ctx, Grade{Quality: q, Answer: strings.Join(labels, ",")})
}

// Refresh regenerates the list from the session's config and starts over
// at its first item with fresh tallies. An empty result ends the session.
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return false, c.fail(ErrNoSession)
	}
	if c.grading {
		c.mu.Unlock()
		return false, c.fail(ErrGradeInFlight)
	}
	cfg := c.cfg.Clone()
	generation := c.generation
	mode := c.mode
	c.mu.Unlock()

	items, err := c.gen.Generate(ctx, cfg)
	if err != nil {
		return false, c.fail(err)
	}

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return false, nil
	}
	if len(items) == 0 {
		c.reset()
		c.mu.Unlock()
		c.log.Info("review session emptied by refresh", "mode", mode.String())
		c.presenter.NoItemsAvailable(noItemsReason(mode))
		return false, nil
	}
	c.items = items
	c.cursor = 0
	c.shownAt = c.now()
	c.summary = Summary{Mode: mode, Count: len(items), StartedAt: c.startedAt}
	first, progress := c.current()
	c.mu.Unlock()

	c.presenter.RenderItem(first, progress)
	return true, nil
}

// Abandon ends the session without further writes. A grade still being
// saved completes but its result is ignored. It reports whether there was
// anything to abandon.
func (c *Controller) Abandon() bool {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return false
	case StateAreaModePending, StateCompleted:
		c.reset()
		c.mu.Unlock()
		return true
	}
	summary := c.summary
	summary.FinishedAt = c.now()
	summary.Abandoned = true
	dest := c.mode.Destination()
	c.reset()
	c.mu.Unlock()

	c.log.Info("review session abandoned", "mode", summary.Mode.String(), "graded", summary.Graded)
	if c.recorder != nil {
		c.recorder.SessionFinished(summary)
	}
	c.presenter.SessionCompleted(summary, dest)
	return true
}

// Info returns a snapshot of the controller state.
func (c *Controller) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := Info{
		State:     c.state,
		Mode:      c.mode,
		Total:     len(c.items),
		Cursor:    c.cursor,
		StartedAt: c.startedAt,
		AreaID:    c.pendingArea,
	}
	if c.state == StateActive || c.state == StateCompleted {
		info.Remaining = info.Total - info.Cursor
		if info.Total > 0 {
			info.Percent = info.Cursor * 100 / info.Total
		}
		cfg := c.cfg.Clone()
		info.Config = &cfg
		if c.cursor < len(c.items) {
			it := c.items[c.cursor].Clone()
			info.Current = &it
		}
	}
	return info
}

// current returns the item under the cursor. Callers hold mu.
func (c *Controller) current() (models.Item, Progress) {
	return c.items[c.cursor].Clone(), Progress{Mode: c.mode, Index: c.cursor, Total: len(c.items)}
}

// reset clears every session field and invalidates in-flight grades.
// Callers hold mu.
func (c *Controller) reset() {
	c.state = StateIdle
	c.mode = Mode{}
	c.cfg = pipeline.SessionConfig{}
	c.items = nil
	c.cursor = 0
	c.startedAt = time.Time{}
	c.shownAt = time.Time{}
	c.summary = Summary{}
	c.pendingArea = ""
	c.pendingOpts = pipeline.TemplateOptions{}
	c.attempts = nil
	c.generation++
}

// fail reports err to the presenter and returns it.
func (c *Controller) fail(err error) error {
	c.presenter.Error(err)
	return err
}

func mistakeReason(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "(blank)"
	}
	return "user answer: " + answer
}

func noItemsReason(m Mode) string {
	switch m.Kind {
	case ModeMistakes:
		return "no unresolved mistakes to review"
	case ModeKnowledgeBase:
		return "this knowledge base has no matching items"
	case ModeArea:
		return "this area has no matching items"
	case ModeWeakness:
		return "no weak items yet; review more to find them"
	}
	return "no items match this review"
}
