package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LavenderBridge/recall/internal/algorithm"
	"github.com/LavenderBridge/recall/internal/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory knowledge store for controller tests.
type memStore struct {
	mu       sync.Mutex
	items    []models.Item
	reviews  []models.ReviewEntry
	mistakes map[string]*models.MistakeRecord
	updates  int

	failOn string // "load", "update", "history" or "mistake"

	// When gate is set, UpdateItemScheduling signals entered and waits.
	gate    chan struct{}
	entered chan struct{}
}

func newMemStore(items ...models.Item) *memStore {
	return &memStore{items: items, mistakes: make(map[string]*models.MistakeRecord)}
}

func (s *memStore) add(it models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, it)
}

func (s *memStore) AllItems(context.Context) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Item(nil), s.items...), nil
}

func (s *memStore) ItemsByKnowledgeBase(_ context.Context, id string) ([]models.Item, error) {
	return s.where(func(it models.Item) bool { return it.KnowledgeBaseID == id }), nil
}

func (s *memStore) ItemsByArea(_ context.Context, id string) ([]models.Item, error) {
	return s.where(func(it models.Item) bool { return it.AreaID == id }), nil
}

func (s *memStore) where(pred func(models.Item) bool) []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Item
	for _, it := range s.items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

func (s *memStore) ItemByID(_ context.Context, id string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "load" {
		return models.Item{}, errDiskFull
	}
	for _, it := range s.items {
		if it.ID == id {
			return it.Clone(), nil
		}
	}
	return models.Item{}, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
}

func (s *memStore) Mistakes(_ context.Context, scope models.MistakeScope) ([]models.MistakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MistakeRecord
	for _, it := range s.items {
		if m, ok := s.mistakes[it.ID]; ok && scope.Contains(it) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) ReviewTotals(context.Context) (models.ReviewTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t models.ReviewTotals
	for _, r := range s.reviews {
		t.Total++
		if r.Correct {
			t.Correct++
		}
	}
	return t, nil
}

func (s *memStore) UpdateItemScheduling(_ context.Context, id string, u models.SchedulingUpdate) error {
	if s.gate != nil {
		s.entered <- struct{}{}
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "update" {
		return errDiskFull
	}
	for i := range s.items {
		if s.items[i].ID == id {
			it := &s.items[i]
			it.Ease, it.Interval, it.DueAt = u.Ease, u.Interval, u.DueAt
			it.ReviewCount, it.CorrectCount = u.ReviewCount, u.CorrectCount
			reviewed := u.ReviewedAt
			it.LastReviewed = &reviewed
			s.updates++
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *memStore) AppendReviewHistory(_ context.Context, e models.ReviewEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "history" {
		return errDiskFull
	}
	s.reviews = append(s.reviews, e)
	return nil
}

func (s *memStore) UpsertMistake(_ context.Context, itemID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "mistake" {
		return errDiskFull
	}
	m, ok := s.mistakes[itemID]
	if !ok {
		m = &models.MistakeRecord{ID: "m-" + itemID, ItemID: itemID, FirstMistakeAt: t0}
		s.mistakes[itemID] = m
	}
	m.Count++
	m.LastMistakeAt = t0
	m.Reasons = append(m.Reasons, reason)
	return nil
}

func (s *memStore) reviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

func (s *memStore) mistake(id string) (models.MistakeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mistakes[id]
	if !ok {
		return models.MistakeRecord{}, false
	}
	return *m, true
}

func (s *memStore) item(id string) models.Item {
	it, _ := s.ItemByID(context.Background(), id)
	return it
}

// recorder captures presenter calls.
type recorder struct {
	mu        sync.Mutex
	rendered  []string
	progress  []Progress
	noItems   []string
	completed []Summary
	dests     []Destination
	errs      []error

	// peek, when set, is called from SessionCompleted.
	peek     func() Info
	atFinish []Info
}

func (r *recorder) RenderItem(it models.Item, p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, it.ID)
	r.progress = append(r.progress, p)
}

func (r *recorder) NoItemsAvailable(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noItems = append(r.noItems, reason)
}

func (r *recorder) SessionCompleted(s Summary, d Destination) {
	var info Info
	if r.peek != nil {
		info = r.peek()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, s)
	r.dests = append(r.dests, d)
	if r.peek != nil {
		r.atFinish = append(r.atFinish, info)
	}
}

func (r *recorder) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) lastRendered() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rendered) == 0 {
		return ""
	}
	return r.rendered[len(r.rendered)-1]
}

// countingRecorder counts metric hook calls.
type countingRecorder struct {
	started, graded, finished int
}

func (c *countingRecorder) SessionStarted(Mode, int) { c.started++ }
func (c *countingRecorder) ItemGraded(algorithm.Quality, time.Duration) { c.graded++ }
func (c *countingRecorder) SessionFinished(Summary) { c.finished++ }
