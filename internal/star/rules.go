package star

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/papapumpkin/constellation/internal/inventory"
)

// DefaultPath is the conventional location of the rule table.
const DefaultPath = "configs/star_rules.json"

// DefaultConfidence is the confidence given to fallback assignments when the
// rule table does not set one.
const DefaultConfidence = 0.3

// RuleSet is the parsed star_rules.json. Rules are evaluated in order.
type RuleSet struct {
	Version           int         `json:"version"`
	DefaultStar       Star        `json:"default_star,omitempty"`
	DefaultConfidence *float64    `json:"default_confidence,omitempty"`
	ArchivedStar      Star        `json:"archived_star,omitempty"`
	Rules             []Rule      `json:"rules"`
	Owners            []OwnerRule `json:"owners,omitempty"`
}

// Rule maps a module path pattern and/or content keywords to a star.
// When both Path and Keywords are set, both must match.
type Rule struct {
	Name       string   `json:"name"`
	Path       string   `json:"path,omitempty"`     // regular expression over the module path
	Keywords   []string `json:"keywords,omitempty"` // any one present in the module's signals
	Lanes      []string `json:"lanes,omitempty"`    // restricts the rule to these lanes
	Star       Star     `json:"star"`
	Confidence float64  `json:"confidence"`

	re    *regexp.Regexp
	lanes map[inventory.Lane]bool
}

// OwnerRule assigns a default owner to modules whose path matches.
type OwnerRule struct {
	Path  string `json:"path"`
	Owner string `json:"owner"`

	re *regexp.Regexp
}

// LoadRules reads and compiles a rule table from path.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rs, nil
}

// ParseRules decodes and compiles a rule table. Every problem in the table is
// reported; a table with any problem is rejected as a whole.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// compile normalizes stars, applies defaults and compiles patterns.
func (rs *RuleSet) compile() error {
	var errs []error

	var err error
	if rs.DefaultStar == "" {
		rs.DefaultStar = Supporting
	} else if rs.DefaultStar, err = Parse(string(rs.DefaultStar)); err != nil {
		errs = append(errs, fmt.Errorf("default_star: %w", err))
	}
	if rs.ArchivedStar == "" {
		rs.ArchivedStar = Unknown
	} else if rs.ArchivedStar, err = Parse(string(rs.ArchivedStar)); err != nil {
		errs = append(errs, fmt.Errorf("archived_star: %w", err))
	}
	if rs.DefaultConfidence == nil {
		c := DefaultConfidence
		rs.DefaultConfidence = &c
	} else if !inRange(*rs.DefaultConfidence) {
		errs = append(errs, fmt.Errorf("default_confidence: %w: %v", ErrConfidenceRange, *rs.DefaultConfidence))
	}

	for i := range rs.Rules {
		if err := rs.Rules[i].compile(); err != nil {
			errs = append(errs, fmt.Errorf("rule %d (%s): %w", i, rs.Rules[i].Name, err))
		}
	}
	for i := range rs.Owners {
		o := &rs.Owners[i]
		if o.Owner == "" {
			errs = append(errs, fmt.Errorf("owner rule %d: %w: empty owner", i, ErrInvalidRule))
			continue
		}
		if o.re, err = regexp.Compile(o.Path); err != nil {
			errs = append(errs, fmt.Errorf("owner rule %d: %w: %v", i, ErrInvalidRule, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Rule) compile() error {
	var errs []error
	if r.Path == "" && len(r.Keywords) == 0 {
		errs = append(errs, fmt.Errorf("%w: needs a path pattern or keywords", ErrInvalidRule))
	}
	if r.Path != "" {
		re, err := regexp.Compile(r.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidRule, err))
		}
		r.re = re
	}
	for i, k := range r.Keywords {
		r.Keywords[i] = strings.ToLower(strings.TrimSpace(k))
	}
	if len(r.Lanes) > 0 {
		r.lanes = make(map[inventory.Lane]bool, len(r.Lanes))
		for _, l := range r.Lanes {
			lane, err := inventory.ParseLane(l)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			r.lanes[lane] = true
		}
	}
	st, err := Parse(string(r.Star))
	if err != nil {
		errs = append(errs, err)
	}
	r.Star = st
	if !inRange(r.Confidence) {
		errs = append(errs, fmt.Errorf("%w: %v", ErrConfidenceRange, r.Confidence))
	}
	return errors.Join(errs...)
}

// matches reports whether the rule applies to m.
func (r *Rule) matches(m inventory.Module) bool {
	if r.lanes != nil && !r.lanes[m.Lane] {
		return false
	}
	if r.re != nil && !r.re.MatchString(m.Path) {
		return false
	}
	if len(r.Keywords) > 0 {
		for _, k := range r.Keywords {
			if m.HasSignal(k) {
				return true
			}
		}
		return false
	}
	return true
}

// Keywords returns every keyword referenced by any rule, deduplicated. The
// inventory scanner records these as module signals.
func (rs *RuleSet) Keywords() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rs.Rules {
		for _, k := range r.Keywords {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// Fingerprint returns a stable hash of the compiled rule table. Two tables
// with the same fingerprint classify every module identically.
func (rs *RuleSet) Fingerprint() string {
	data, _ := json.Marshal(rs)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Save writes the rule table as indented JSON.
func (rs *RuleSet) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func inRange(c float64) bool {
	return c >= 0 && c <= 1
}
