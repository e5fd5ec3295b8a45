package model

import (
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"
)

// LinkType classifies a directed relationship between two holons.
type LinkType string

const (
	LinkParent   LinkType = "parent"
	LinkDepends  LinkType = "depends"
	LinkInspired LinkType = "inspired"
	LinkChild    LinkType = "child"
)

// TrustContext tags the interaction that produced a trust event.
type TrustContext string

const (
	ContextDiscussion    TrustContext = "discussion"
	ContextCollaboration TrustContext = "collaboration"
	ContextAssist        TrustContext = "assist"
	ContextVote          TrustContext = "vote"
	ContextSystem        TrustContext = "system"
)

// ValidContext reports whether c is one of the known trust contexts.
func ValidContext(c TrustContext) bool {
	switch c {
	case ContextDiscussion, ContextCollaboration, ContextAssist, ContextVote, ContextSystem:
		return true
	}
	return false
}

// TrustSignature is a holon's reputation state.
//
// Reputation stays in [-1, 1] and Confidence in [0, 1]; both are clamped
// after every mutation. Sources only grows: a contributor is never removed,
// only incremented.
type TrustSignature struct {
	Reputation float64            `json:"reputation"`
	Confidence float64            `json:"confidence"`
	LastUpdate timex.Time         `json:"lastUpdate"`
	Sources    map[string]float64 `json:"sources"`
}

// Clone returns a deep copy including the sources map.
func (s TrustSignature) Clone() TrustSignature {
	sources := make(map[string]float64, len(s.Sources))
	for k, v := range s.Sources {
		sources[k] = v
	}
	return TrustSignature{
		Reputation: s.Reputation,
		Confidence: s.Confidence,
		LastUpdate: s.LastUpdate,
		Sources:    sources,
	}
}

// Holon is a graph node with its own trust signature.
// The id is globally unique and immutable after creation.
type Holon struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	CreatedAt timex.Time     `json:"createdAt"`
	Trust     TrustSignature `json:"trust"`
}

// Link is a typed directed edge between two holons. Links are never
// mutated after creation.
type Link struct {
	ID     string   `json:"id"`
	FromID string   `json:"fromId"`
	ToID   string   `json:"toId"`
	Type   LinkType `json:"type"`
	Label  string   `json:"label,omitempty"`
}

// TrustEvent is an immutable signed contribution from one holon toward
// another's reputation. Events form an append-only log; they are never
// mutated or deleted once recorded.
type TrustEvent struct {
	FromID    string       `json:"fromId"`
	ToID      string       `json:"toId"`
	Context   TrustContext `json:"context"`
	Delta     float64      `json:"delta"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp timex.Time   `json:"timestamp"`
}
