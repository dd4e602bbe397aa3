package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavenderBridge/recall/internal/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// memReader is an in-memory Reader. Items keep insertion order.
type memReader struct {
	items    []models.Item
	mistakes []models.MistakeRecord
	totals   models.ReviewTotals
	err      error
	reads    int
}

func (m *memReader) AllItems(context.Context) ([]models.Item, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.Item(nil), m.items...), nil
}

func (m *memReader) ItemsByKnowledgeBase(_ context.Context, id string) ([]models.Item, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return keep(m.items, func(it models.Item) bool { return it.KnowledgeBaseID == id }), nil
}

func (m *memReader) ItemsByArea(_ context.Context, id string) ([]models.Item, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return keep(m.items, func(it models.Item) bool { return it.AreaID == id }), nil
}

func (m *memReader) ItemByID(_ context.Context, id string) (models.Item, error) {
	m.reads++
	if m.err != nil {
		return models.Item{}, m.err
	}
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return models.Item{}, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
}

func (m *memReader) Mistakes(context.Context, models.MistakeScope) ([]models.MistakeRecord, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.MistakeRecord(nil), m.mistakes...), nil
}

func (m *memReader) ReviewTotals(context.Context) (models.ReviewTotals, error) {
	if m.err != nil {
		return models.ReviewTotals{}, m.err
	}
	return m.totals, nil
}

var errStoreDown = errors.New("store down")

// item builds an item created i minutes after t0 and due at t0 + dueIn.
func item(id string, i int, dueIn time.Duration) models.Item {
	return models.Item{
		ID:              id,
		KnowledgeBaseID: "kb1",
		AreaID:          "a1",
		Prompt:          "prompt " + id,
		Variant:         models.VariantOpen,
		Answer:          "answer " + id,
		Difficulty:      3,
		Ease:            2.5,
		Interval:        1,
		DueAt:           t0.Add(dueIn),
		CreatedAt:       t0.Add(time.Duration(i) * time.Minute),
	}
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
