package validate

import (
	"errors"

	"github.com/papapumpkin/constellation/internal/inventory"
)

// Sentinel errors wrapped by every Violation.
var (
	// ErrSchema indicates a manifest that does not conform to the manifest schema.
	ErrSchema = errors.New("manifest does not match schema")
	// ErrMissingOwner indicates a T1 manifest without an owner.
	ErrMissingOwner = errors.New("T1 module has no owner")
	// ErrConfidenceRange indicates a confidence outside [0,1].
	ErrConfidenceRange = errors.New("confidence out of range [0,1]")
	// ErrUnresolvedContract indicates a contract reference that names no known contract.
	ErrUnresolvedContract = errors.New("contract reference does not resolve")
	// ErrUnknownDependency indicates a depends_on entry naming no module in the lane or core.
	ErrUnknownDependency = errors.New("depends on unknown module")
	// ErrDependencyCycle indicates modules that depend on each other in a cycle.
	ErrDependencyCycle = errors.New("circular dependency")
	// ErrDuplicateManifest indicates two manifests for the same lane and path.
	ErrDuplicateManifest = errors.New("duplicate manifest")
)

// Category classifies a violation for programmatic handling.
type Category string

// Violation categories.
const (
	CatSchema     Category = "schema"
	CatOwner      Category = "owner"
	CatConfidence Category = "confidence"
	CatContract   Category = "contract"
	CatDependency Category = "dependency"
	CatCycle      Category = "cycle"
	CatDuplicate  Category = "duplicate"
)

// Categories returns every category in reporting order.
func Categories() []Category {
	return []Category{CatSchema, CatOwner, CatConfidence, CatContract, CatDependency, CatCycle, CatDuplicate}
}

// Violation records one validation problem with its module context.
type Violation struct {
	Category Category
	Lane     inventory.Lane
	Module   string // module path within the lane
	Field    string
	Err      error
}

// Error returns a human-readable string including lane and module.
func (v *Violation) Error() string {
	if v.Field != "" {
		return string(v.Lane) + ":" + v.Module + ": " + v.Field + ": " + v.Err.Error()
	}
	return string(v.Lane) + ":" + v.Module + ": " + v.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (v *Violation) Unwrap() error {
	return v.Err
}
