package pipeline

import "github.com/LavenderBridge/recall/internal/models"

// TemplateOptions adjust the preset configs built below.
type TemplateOptions struct {
	OnlyDue bool   // keep only items whose due time has passed
	Random  bool   // random order instead of the template's default
	Limit   int    // 0 means no limit
	BaseID  string // narrows smart and weakness reviews to one knowledge base
}

func (o TemplateOptions) apply(cfg SessionConfig, defaultSorter StageName) SessionConfig {
	if o.OnlyDue {
		cfg.Filters = append(cfg.Filters, StageSpec{Name: FilterDueForReview})
	}
	cfg.Sorter = StageSpec{Name: defaultSorter}
	if o.Random {
		cfg.Sorter = StageSpec{Name: SorterRandom}
	}
	if o.Limit > 0 {
		cfg.Limiter = &StageSpec{Name: LimiterFixedCount, Params: Params{"count": o.Limit}}
	}
	return cfg
}

// ascending sets order=asc on a non-random sorter.
func (o TemplateOptions) ascending(cfg SessionConfig) SessionConfig {
	if !o.Random {
		cfg.Sorter.Params = Params{"order": "asc"}
	}
	return cfg
}

func (o TemplateOptions) source() StageSpec {
	if o.BaseID != "" {
		return StageSpec{Name: SourceKnowledgeBase, Params: Params{"baseId": o.BaseID}}
	}
	return StageSpec{Name: SourceAllKnowledge}
}

// KnowledgeBaseReview reviews every item of one knowledge base, most
// urgent and weakest first.
func KnowledgeBaseReview(baseID string, o TemplateOptions) SessionConfig {
	return o.apply(SessionConfig{
		Source: StageSpec{Name: SourceKnowledgeBase, Params: Params{"baseId": baseID}},
	}, SorterSmart)
}

// AreaReview reviews one area, earliest due first.
func AreaReview(areaID string, o TemplateOptions) SessionConfig {
	return o.apply(SessionConfig{
		Source: StageSpec{Name: SourceKnowledgeArea, Params: Params{"areaId": areaID}},
	}, SorterByReviewTime)
}

// SmartReview takes the due items, orders them by urgency, weakness and
// difficulty and sizes the session from o.Limit (20 when unset), growing
// it for users who answer poorly, to at most twice that.
func SmartReview(o TemplateOptions) SessionConfig {
	count := o.Limit
	if count <= 0 {
		count = 20
	}
	return SessionConfig{
		Source:  o.source(),
		Filters: []StageSpec{{Name: FilterDueForReview}},
		Sorter:  StageSpec{Name: SorterSmart},
		Limiter: &StageSpec{Name: LimiterSmart, Params: Params{"baseCount": count, "maxCount": count * 2}},
	}
}

// MistakesReview reviews unresolved mistakes in scope.
func MistakesReview(scope models.MistakeScope, o TemplateOptions) SessionConfig {
	switch scope.Kind {
	case models.ScopeKnowledgeBase:
		return MistakesByBase(scope.ID, o)
	case models.ScopeArea:
		return MistakesByArea(scope.ID, o)
	default:
		return AllMistakes(o)
	}
}

// MistakesByBase and its siblings put the lowest accuracy first.
func MistakesByBase(baseID string, o TemplateOptions) SessionConfig {
	return o.ascending(o.apply(SessionConfig{
		Source: StageSpec{Name: SourceMistakesByBase, Params: Params{"baseId": baseID}},
	}, SorterByAccuracy))
}

func MistakesByArea(areaID string, o TemplateOptions) SessionConfig {
	return o.ascending(o.apply(SessionConfig{
		Source: StageSpec{Name: SourceMistakesByArea, Params: Params{"areaId": areaID}},
	}, SorterByAccuracy))
}

func AllMistakes(o TemplateOptions) SessionConfig {
	return o.ascending(o.apply(SessionConfig{
		Source: StageSpec{Name: SourceAllMistakes},
	}, SorterByAccuracy))
}

// WeaknessReview picks items reviewed at least twice with accuracy at or
// below 70%, weakest first, 15 at most unless o.Limit says otherwise.
func WeaknessReview(o TemplateOptions) SessionConfig {
	cfg := SessionConfig{
		Source: o.source(),
		Filters: []StageSpec{
			{Name: FilterByReviewCount, Params: Params{"min": 2}},
			{Name: FilterByAccuracy, Params: Params{"max": 0.7}},
		},
	}
	if o.Limit == 0 {
		o.Limit = 15
	}
	return o.ascending(o.apply(cfg, SorterByAccuracy))
}

// CustomList reviews the given ids in the given order.
func CustomList(ids []string, o TemplateOptions) SessionConfig {
	return o.apply(SessionConfig{
		Source: StageSpec{Name: SourceCustomList, Params: Params{"ids": append([]string(nil), ids...)}},
	}, SorterSequential)
}

// Scheduled reviews what is due, or everything when nothing is.
func Scheduled(o TemplateOptions) SessionConfig {
	o.OnlyDue = false
	cfg := o.apply(SessionConfig{
		Source:  StageSpec{Name: SourceAllKnowledge},
		Filters: []StageSpec{{Name: FilterDueForReview, Params: Params{"fallbackAll": true}}},
	}, SorterSequential)
	return cfg
}

// RandomAll reviews every item in random order.
func RandomAll(o TemplateOptions) SessionConfig {
	o.Random = true
	return o.apply(SessionConfig{Source: StageSpec{Name: SourceAllKnowledge}}, SorterRandom)
}

// Single reviews one item.
func Single(itemID string) SessionConfig {
	return SessionConfig{
		Source: StageSpec{Name: SourceCustomList, Params: Params{"ids": []string{itemID}}},
		Sorter: StageSpec{Name: SorterSequential},
	}
}
