package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ScopeKind selects which mistakes a query covers.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeKnowledgeBase
	ScopeArea
)

// MistakeScope narrows mistake queries to a knowledge base or an area.
type MistakeScope struct {
	Kind ScopeKind
	ID   string
}

func GlobalScope() MistakeScope        { return MistakeScope{Kind: ScopeGlobal} }
func BaseScope(id string) MistakeScope { return MistakeScope{Kind: ScopeKnowledgeBase, ID: id} }
func AreaScope(id string) MistakeScope { return MistakeScope{Kind: ScopeArea, ID: id} }

// Contains reports whether it falls inside the scope.
func (s MistakeScope) Contains(it Item) bool {
	switch s.Kind {
	case ScopeKnowledgeBase:
		return it.KnowledgeBaseID == s.ID
	case ScopeArea:
		return it.AreaID == s.ID
	default:
		return true
	}
}

func (s MistakeScope) String() string {
	switch s.Kind {
	case ScopeKnowledgeBase:
		return fmt.Sprintf("base:%s", s.ID)
	case ScopeArea:
		return fmt.Sprintf("area:%s", s.ID)
	default:
		return "global"
	}
}
