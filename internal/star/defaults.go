package star

// defaultRulesJSON seeds a new repository's star_rules.json.
const defaultRulesJSON = `{
  "version": 1,
  "default_star": "Supporting",
  "default_confidence": 0.3,
  "archived_star": "Unknown",
  "rules": [
    {"name": "consciousness", "path": "(^|/)(consciousness|awareness|dream)(/|$)", "star": "Flow", "confidence": 0.9},
    {"name": "memory", "path": "(^|/)(memory|fold|recall)(/|$)", "star": "Trail", "confidence": 0.9},
    {"name": "vision", "path": "(^|/)(vision|perception|visual)(/|$)", "star": "Horizon", "confidence": 0.85},
    {"name": "identity", "path": "(^|/)(identity|auth|lambda_id)(/|$)", "star": "Anchor", "confidence": 0.9},
    {"name": "guardian", "path": "(^|/)(guardian|ethics|governance|safety)(/|$)", "star": "Watch", "confidence": 0.9},
    {"name": "oracle", "path": "(^|/)(oracle|prediction|quantum)(/|$)", "star": "Oracle", "confidence": 0.8},
    {"name": "consciousness-signals", "keywords": ["consciousness", "awareness"], "star": "Flow", "confidence": 0.6},
    {"name": "memory-signals", "keywords": ["memory_fold", "episodic"], "star": "Trail", "confidence": 0.6},
    {"name": "guardian-signals", "keywords": ["drift_score", "guardian"], "star": "Watch", "confidence": 0.6}
  ],
  "owners": []
}`

// DefaultRules returns the built-in rule table.
func DefaultRules() *RuleSet {
	rs, err := ParseRules([]byte(defaultRulesJSON))
	if err != nil {
		panic("star: built-in rules do not compile: " + err.Error())
	}
	return rs
}
