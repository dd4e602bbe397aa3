// Package pipeline builds ordered review lists from a declarative
// source → filters → sorter → limiter configuration.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/LavenderBridge/recall/internal/models"
)

// StageKind identifies one of the four pipeline stage kinds.
type StageKind int

const (
	KindSource StageKind = iota + 1
	KindFilter
	KindSorter
	KindLimiter
)

func (k StageKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindFilter:
		return "filter"
	case KindSorter:
		return "sorter"
	case KindLimiter:
		return "limiter"
	}
	return fmt.Sprintf("StageKind(%d)", int(k))
}

// StageName is the registry key of a stage implementation.
type StageName string

// Reader is the read side of the knowledge store used by stages.
type Reader interface {
	AllItems(ctx context.Context) ([]models.Item, error)
	ItemsByKnowledgeBase(ctx context.Context, baseID string) ([]models.Item, error)
	ItemsByArea(ctx context.Context, areaID string) ([]models.Item, error)
	ItemByID(ctx context.Context, id string) (models.Item, error)
	Mistakes(ctx context.Context, scope models.MistakeScope) ([]models.MistakeRecord, error)
	ReviewTotals(ctx context.Context) (models.ReviewTotals, error)
}

// Env carries the clock and random source stages may consult.
type Env struct {
	Now  time.Time
	Rand *rand.Rand
}

type (
	// SourceFunc produces a deduplicated candidate set. Empty is valid.
	SourceFunc func(ctx context.Context, r Reader, p Params) ([]models.Item, error)
	// FilterFunc narrows its input. It must not reorder.
	FilterFunc func(items []models.Item, p Params, env Env) ([]models.Item, error)
	// SorterFunc returns a total ordering of its input.
	SorterFunc func(items []models.Item, p Params, env Env) ([]models.Item, error)
	// LimiterFunc truncates the sorted list.
	LimiterFunc func(ctx context.Context, r Reader, items []models.Item, p Params) ([]models.Item, error)
)

// Registry maps stage names to implementations, one table per kind.
// Registration happens at start-up; lookups may then run concurrently.
type Registry struct {
	sources  map[StageName]SourceFunc
	filters  map[StageName]FilterFunc
	sorters  map[StageName]SorterFunc
	limiters map[StageName]LimiterFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:  make(map[StageName]SourceFunc),
		filters:  make(map[StageName]FilterFunc),
		sorters:  make(map[StageName]SorterFunc),
		limiters: make(map[StageName]LimiterFunc),
	}
}

// DefaultRegistry returns a registry holding every built-in stage.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerSources(r)
	registerFilters(r)
	registerSorters(r)
	registerLimiters(r)
	return r
}

func (r *Registry) RegisterSource(name StageName, fn SourceFunc) {
	mustBeNew(KindSource, name, r.sources[name] != nil)
	r.sources[name] = fn
}

func (r *Registry) RegisterFilter(name StageName, fn FilterFunc) {
	mustBeNew(KindFilter, name, r.filters[name] != nil)
	r.filters[name] = fn
}

func (r *Registry) RegisterSorter(name StageName, fn SorterFunc) {
	mustBeNew(KindSorter, name, r.sorters[name] != nil)
	r.sorters[name] = fn
}

func (r *Registry) RegisterLimiter(name StageName, fn LimiterFunc) {
	mustBeNew(KindLimiter, name, r.limiters[name] != nil)
	r.limiters[name] = fn
}

func mustBeNew(kind StageKind, name StageName, exists bool) {
	if name == "" {
		panic(fmt.Sprintf("pipeline: empty %s name", kind))
	}
	if exists {
		panic(fmt.Sprintf("pipeline: %s %q registered twice", kind, name))
	}
}

func (r *Registry) Source(name StageName) (SourceFunc, error) {
	if fn, ok := r.sources[name]; ok {
		return fn, nil
	}
	return nil, unknownStage(KindSource, name)
}

func (r *Registry) Filter(name StageName) (FilterFunc, error) {
	if fn, ok := r.filters[name]; ok {
		return fn, nil
	}
	return nil, unknownStage(KindFilter, name)
}

func (r *Registry) Sorter(name StageName) (SorterFunc, error) {
	if fn, ok := r.sorters[name]; ok {
		return fn, nil
	}
	return nil, unknownStage(KindSorter, name)
}

func (r *Registry) Limiter(name StageName) (LimiterFunc, error) {
	if fn, ok := r.limiters[name]; ok {
		return fn, nil
	}
	return nil, unknownStage(KindLimiter, name)
}

// Names lists the registered names of a kind in sorted order.
func (r *Registry) Names(kind StageKind) []StageName {
	var names []StageName
	switch kind {
	case KindSource:
		names = keys(r.sources)
	case KindFilter:
		names = keys(r.filters)
	case KindSorter:
		names = keys(r.sorters)
	case KindLimiter:
		names = keys(r.limiters)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func keys[V any](m map[StageName]V) []StageName {
	out := make([]StageName, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Check resolves every stage named by cfg without running anything.
func (r *Registry) Check(cfg SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := r.Source(cfg.Source.Name); err != nil {
		return err
	}
	for _, f := range cfg.Filters {
		if _, err := r.Filter(f.Name); err != nil {
			return err
		}
	}
	if _, err := r.Sorter(cfg.SorterName()); err != nil {
		return err
	}
	if cfg.Limiter != nil {
		if _, err := r.Limiter(cfg.Limiter.Name); err != nil {
			return err
		}
	}
	return nil
}
