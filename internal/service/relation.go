package service

import (
	"strings"

	"github.com/haierkeys/holarchy-browser-service/internal/model"
)

var dependsWords = []string{"support", "base", "foundation", "server", "client", "infra", "core"}

var inspiredWords = []string{"idea", "vision", "design", "concept", "art", "avatar"}

// Classify infers the relation type between two holons from their
// names, case-insensitive. Substring containment wins, then the
// dependency vocabulary, then the inspiration vocabulary; anything
// else is a plain child link.
func Classify(a, b string) model.LinkType {
	an := strings.ToLower(a)
	bn := strings.ToLower(b)
	if strings.Contains(an, bn) || strings.Contains(bn, an) {
		return model.LinkParent
	}
	for _, w := range dependsWords {
		if strings.Contains(an, w) || strings.Contains(bn, w) {
			return model.LinkDepends
		}
	}
	for _, w := range inspiredWords {
		if strings.Contains(an, w) || strings.Contains(bn, w) {
			return model.LinkInspired
		}
	}
	return model.LinkChild
}
