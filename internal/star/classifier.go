package star

import "github.com/papapumpkin/constellation/internal/inventory"

// Classifier assigns stars from a compiled rule table. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	rules *RuleSet
}

// NewClassifier returns a classifier over rs. rs must come from ParseRules,
// LoadRules or DefaultRules.
func NewClassifier(rs *RuleSet) *Classifier {
	return &Classifier{rules: rs}
}

// Rules returns the classifier's rule table.
func (c *Classifier) Rules() *RuleSet {
	return c.rules
}

// Classify returns the star assignment for m. Archived modules get the
// archived star with zero confidence. Otherwise the first matching rule
// wins; with no match the default star and confidence apply.
func (c *Classifier) Classify(m inventory.Module) Assignment {
	if m.Archived {
		return Assignment{Star: c.rules.ArchivedStar, Confidence: 0, Reason: ReasonArchived}
	}
	for i := range c.rules.Rules {
		r := &c.rules.Rules[i]
		if r.matches(m) {
			return Assignment{
				Star:       r.Star,
				Confidence: r.Confidence,
				Rule:       r.Name,
				Reason:     ReasonRule,
			}
		}
	}
	return Assignment{
		Star:       c.rules.DefaultStar,
		Confidence: *c.rules.DefaultConfidence,
		Reason:     ReasonDefault,
	}
}

// Owner returns the owner from the first owner rule matching path, or "".
func (c *Classifier) Owner(path string) string {
	for _, o := range c.rules.Owners {
		if o.re != nil && o.re.MatchString(path) {
			return o.Owner
		}
	}
	return ""
}
