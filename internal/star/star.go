// Package star classifies modules into constellation stars using an ordered
// rule table loaded from star_rules.json.
package star

import (
	"fmt"
	"strings"
)

// Star is a categorical domain label assigned to a module.
type Star string

// Star values.
const (
	Flow       Star = "Flow"
	Trail      Star = "Trail"
	Horizon    Star = "Horizon"
	Anchor     Star = "Anchor"
	Watch      Star = "Watch"
	Oracle     Star = "Oracle"
	Supporting Star = "Supporting"
	Unknown    Star = "Unknown"
)

// All returns every star in canonical order.
func All() []Star {
	return []Star{Flow, Trail, Horizon, Anchor, Watch, Oracle, Supporting, Unknown}
}

// Parse converts s to a Star, ignoring case.
func Parse(s string) (Star, error) {
	for _, st := range All() {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStar, s)
}

// Valid reports whether s is one of the enumerated stars in canonical spelling.
func (s Star) Valid() bool {
	for _, st := range All() {
		if s == st {
			return true
		}
	}
	return false
}

// Domain returns the capability area a star stands for.
func (s Star) Domain() string {
	switch s {
	case Flow:
		return "consciousness"
	case Trail:
		return "memory"
	case Horizon:
		return "vision"
	case Anchor:
		return "identity"
	case Watch:
		return "guardian"
	case Oracle:
		return "prediction"
	case Supporting:
		return "infrastructure"
	default:
		return "unclassified"
	}
}

// Reason explains how an assignment was reached.
type Reason string

// Reason values.
const (
	ReasonRule     Reason = "rule"
	ReasonDefault  Reason = "default"
	ReasonArchived Reason = "archived"
)

// Assignment is the classifier's verdict for one module.
type Assignment struct {
	Star       Star    `json:"star"`
	Confidence float64 `json:"confidence"`
	Rule       string  `json:"rule,omitempty"` // name of the matching rule, empty for fallbacks
	Reason     Reason  `json:"reason"`
}
