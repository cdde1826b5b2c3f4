package validate

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/papapumpkin/constellation/internal/manifest"
)

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

// ManifestSchema returns the JSON Schema every manifest must satisfy.
func ManifestSchema() []byte {
	return append([]byte(nil), manifestSchemaJSON...)
}

// SchemaChecker validates manifests against the manifest JSON Schema.
type SchemaChecker struct {
	resolved *jsonschema.Resolved
}

// NewSchemaChecker compiles the embedded manifest schema.
func NewSchemaChecker() (*SchemaChecker, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(manifestSchemaJSON, &s); err != nil {
		return nil, fmt.Errorf("parsing manifest schema: %w", err)
	}
	rs, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest schema: %w", err)
	}
	return &SchemaChecker{resolved: rs}, nil
}

// Check validates the JSON encoding of m. The instance is the decoded
// document rather than the struct so field names follow the JSON tags.
func (c *SchemaChecker) Check(m manifest.Manifest) error {
	data, err := manifest.Encode(m, manifest.FormatJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return c.CheckDocument(data)
}

// CheckDocument validates a raw JSON manifest document.
func (c *SchemaChecker) CheckDocument(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := c.resolved.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
