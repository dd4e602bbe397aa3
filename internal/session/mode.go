package session

import (
	"fmt"

	"github.com/LavenderBridge/recall/internal/models"
)

// ModeKind is what a session was started for.
type ModeKind int

const (
	ModeSequential ModeKind = iota + 1
	ModeRandom
	ModeSingle
	ModeKnowledgeBase
	ModeArea
	ModeMistakes
	ModeSmart
	ModeWeakness
	ModeCustom
)

func (k ModeKind) String() string {
	switch k {
	case ModeSequential:
		return "sequential"
	case ModeRandom:
		return "random"
	case ModeSingle:
		return "single"
	case ModeKnowledgeBase:
		return "knowledge-base"
	case ModeArea:
		return "area"
	case ModeMistakes:
		return "mistakes"
	case ModeSmart:
		return "smart"
	case ModeWeakness:
		return "weakness"
	case ModeCustom:
		return "custom"
	}
	return fmt.Sprintf("ModeKind(%d)", int(k))
}

// Mode labels a session. ID is the knowledge base, area or item id for the
// scoped kinds; Scope is only meaningful for ModeMistakes.
type Mode struct {
	Kind  ModeKind
	ID    string
	Scope models.MistakeScope
}

func (m Mode) String() string {
	switch m.Kind {
	case ModeMistakes:
		return "mistakes(" + m.Scope.String() + ")"
	case ModeKnowledgeBase, ModeArea, ModeSingle:
		return m.Kind.String() + "(" + m.ID + ")"
	}
	return m.Kind.String()
}

// DestKind is the view the user returns to after a session.
type DestKind int

const (
	DestModeSelection DestKind = iota
	DestMistakes
	DestKnowledgeBase
	DestKnowledgeArea
)

func (k DestKind) String() string {
	switch k {
	case DestMistakes:
		return "mistakes"
	case DestKnowledgeBase:
		return "knowledge-base"
	case DestKnowledgeArea:
		return "knowledge-area"
	}
	return "mode-selection"
}

// Destination is where to route after a session ends.
type Destination struct {
	Kind DestKind
	ID   string
}

// Destination picks the follow-up view for the mode.
func (m Mode) Destination() Destination {
	switch m.Kind {
	case ModeMistakes:
		return Destination{Kind: DestMistakes}
	case ModeKnowledgeBase:
		return Destination{Kind: DestKnowledgeBase, ID: m.ID}
	case ModeArea:
		return Destination{Kind: DestKnowledgeArea, ID: m.ID}
	case ModeSequential, ModeRandom, ModeSingle, ModeSmart, ModeWeakness, ModeCustom:
		return Destination{Kind: DestModeSelection}
	}
	return Destination{Kind: DestModeSelection}
}
