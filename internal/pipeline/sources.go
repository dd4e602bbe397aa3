package pipeline

import (
	"context"
	"errors"

	"github.com/LavenderBridge/recall/internal/models"
)

// Built-in sources.
const (
	SourceAllKnowledge   StageName = "all-knowledge"
	SourceKnowledgeBase  StageName = "knowledge-base"
	SourceKnowledgeArea  StageName = "knowledge-area"
	SourceAllMistakes    StageName = "all-mistakes"
	SourceMistakesByBase StageName = "mistakes-by-base"
	SourceMistakesByArea StageName = "mistakes-by-area"
	SourceCustomList     StageName = "custom-list"
)

func registerSources(r *Registry) {
	r.RegisterSource(SourceAllKnowledge, func(ctx context.Context, rd Reader, _ Params) ([]models.Item, error) {
		items, err := rd.AllItems(ctx)
		if err != nil {
			return nil, err
		}
		return dedupe(items), nil
	})

	r.RegisterSource(SourceKnowledgeBase, func(ctx context.Context, rd Reader, p Params) ([]models.Item, error) {
		baseID, err := p.RequireString("baseId")
		if err != nil {
			return nil, err
		}
		items, err := rd.ItemsByKnowledgeBase(ctx, baseID)
		if err != nil {
			return nil, err
		}
		// Items whose stored base id disagrees are not part of the base.
		return keep(dedupe(items), func(it models.Item) bool {
			return it.KnowledgeBaseID == baseID
		}), nil
	})

	r.RegisterSource(SourceKnowledgeArea, func(ctx context.Context, rd Reader, p Params) ([]models.Item, error) {
		areaID, err := p.RequireString("areaId")
		if err != nil {
			return nil, err
		}
		items, err := rd.ItemsByArea(ctx, areaID)
		if err != nil {
			return nil, err
		}
		return keep(dedupe(items), func(it models.Item) bool {
			return it.AreaID == areaID
		}), nil
	})

	r.RegisterSource(SourceAllMistakes, func(ctx context.Context, rd Reader, _ Params) ([]models.Item, error) {
		return mistakeItems(ctx, rd, models.GlobalScope())
	})

	r.RegisterSource(SourceMistakesByBase, func(ctx context.Context, rd Reader, p Params) ([]models.Item, error) {
		baseID, err := p.RequireString("baseId")
		if err != nil {
			return nil, err
		}
		return mistakeItems(ctx, rd, models.BaseScope(baseID))
	})

	r.RegisterSource(SourceMistakesByArea, func(ctx context.Context, rd Reader, p Params) ([]models.Item, error) {
		areaID, err := p.RequireString("areaId")
		if err != nil {
			return nil, err
		}
		return mistakeItems(ctx, rd, models.AreaScope(areaID))
	})

	r.RegisterSource(SourceCustomList, func(ctx context.Context, rd Reader, p Params) ([]models.Item, error) {
		ids, ok, err := p.Strings("ids")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid("parameter %q is required", "ids")
		}
		items := make([]models.Item, 0, len(ids))
		for _, id := range ids {
			it, err := lookup(ctx, rd, id)
			if err != nil {
				return nil, err
			}
			if it != nil {
				items = append(items, *it)
			}
		}
		return dedupe(items), nil
	})
}

// mistakeItems resolves the unresolved mistakes in scope to their items.
func mistakeItems(ctx context.Context, rd Reader, scope models.MistakeScope) ([]models.Item, error) {
	mistakes, err := rd.Mistakes(ctx, scope)
	if err != nil {
		return nil, err
	}
	var items []models.Item
	for _, m := range mistakes {
		if m.Resolved {
			continue
		}
		it, err := lookup(ctx, rd, m.ItemID)
		if err != nil {
			return nil, err
		}
		if it != nil && scope.Contains(*it) {
			items = append(items, *it)
		}
	}
	return dedupe(items), nil
}

// lookup fetches an item, treating a missing one as absent rather than failing.
func lookup(ctx context.Context, rd Reader, id string) (*models.Item, error) {
	it, err := rd.ItemByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(items []models.Item) []models.Item {
	seen := make(map[string]bool, len(items))
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

func keep(items []models.Item, pred func(models.Item) bool) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}
