package pipeline

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/LavenderBridge/recall/internal/logging"
	"github.com/LavenderBridge/recall/internal/models"
)

// Options tune a Generator. Zero values get defaults.
type Options struct {
	ShuffleChoices bool
	Now            func() time.Time // nil → time.Now
	Rand           *rand.Rand       // nil → seeded from the clock
	Logger         *slog.Logger     // nil → discard
}

// Generator turns a SessionConfig into an ordered item list. It only reads
// from the store. A Generator is not safe for concurrent use because its
// random source is not.
type Generator struct {
	registry *Registry
	reader   Reader
	shuffle  bool
	now      func() time.Time
	rng      *rand.Rand
	log      *slog.Logger
}

// NewGenerator wires a registry to a store reader.
func NewGenerator(reg *Registry, r Reader, opts Options) *Generator {
	g := &Generator{
		registry: reg,
		reader:   r,
		shuffle:  opts.ShuffleChoices,
		now:      opts.Now,
		rng:      opts.Rand,
		log:      logging.OrDiscard(opts.Logger),
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g
}

// Registry exposes the stage registry, e.g. to list capabilities.
func (g *Generator) Registry() *Registry {
	return g.registry
}

// Generate resolves the source, applies filters in declared order, sorts,
// then truncates. An empty result is returned as an empty slice and no error.
func (g *Generator) Generate(ctx context.Context, cfg SessionConfig) ([]models.Item, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Resolve every stage up front so an unknown name fails before any read.
	source, err := g.registry.Source(cfg.Source.Name)
	if err != nil {
		return nil, err
	}
	filters := make([]FilterFunc, len(cfg.Filters))
	for i, f := range cfg.Filters {
		if filters[i], err = g.registry.Filter(f.Name); err != nil {
			return nil, err
		}
	}
	sorterName := cfg.SorterName()
	sorter, err := g.registry.Sorter(sorterName)
	if err != nil {
		return nil, err
	}
	var limiter LimiterFunc
	if cfg.Limiter != nil {
		if limiter, err = g.registry.Limiter(cfg.Limiter.Name); err != nil {
			return nil, err
		}
	}

	env := Env{Now: g.now(), Rand: g.rng}

	items, err := source(ctx, g.reader, cfg.Source.Params)
	if err != nil {
		return nil, withStage(err, KindSource, cfg.Source.Name)
	}
	candidates := len(items)
	items = cloneAll(items)

	for i, f := range filters {
		before := len(items)
		items, err = f(items, cfg.Filters[i].Params, env)
		if err != nil {
			return nil, withStage(err, KindFilter, cfg.Filters[i].Name)
		}
		g.log.Debug("filter applied", "filter", cfg.Filters[i].Name, "before", before, "after", len(items))
	}

	items, err = sorter(items, cfg.Sorter.Params, env)
	if err != nil {
		return nil, withStage(err, KindSorter, sorterName)
	}

	if limiter != nil {
		items, err = limiter(ctx, g.reader, items, cfg.Limiter.Params)
		if err != nil {
			return nil, withStage(err, KindLimiter, cfg.Limiter.Name)
		}
	}

	if g.shuffle {
		for i := range items {
			items[i] = ShuffleChoices(items[i], g.rng)
		}
	}

	g.log.Debug("question list generated",
		"source", cfg.Source.Name,
		"candidates", candidates,
		"sorter", sorterName,
		"count", len(items))

	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

// cloneAll copies items so no stage can alias slices owned by the store.
func cloneAll(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
