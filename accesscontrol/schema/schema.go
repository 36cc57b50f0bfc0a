// Package schema validates contract registration metadata before capability
// detection runs. Some ecosystems require a registration document describing
// the contract; validating it up front keeps malformed records out of the
// store entirely.
package schema

import (
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultRegistrationSchema is the built-in JSON schema for contract
// registration metadata.
const DefaultRegistrationSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {
			"type": "string",
			"minLength": 1,
			"maxLength": 128
		},
		"description": {
			"type": "string",
			"maxLength": 1024
		},
		"tags": {
			"type": "array",
			"items": { "type": "string", "minLength": 1 }
		},
		"ecosystem": {
			"type": "string",
			"minLength": 1
		}
	},
	"additionalProperties": true
}`

// Validator validates contract registration metadata documents against a
// JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// New creates a Validator from a JSON schema string.
func New(schemaJSON string) (*Validator, error) {
	if schemaJSON == "" {
		return nil, errors.New("schema string is empty")
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: compiled}, nil
}

// Default creates a Validator using DefaultRegistrationSchema.
func Default() *Validator {
	v, err := New(DefaultRegistrationSchema)
	if err != nil {
		// The built-in schema is a constant; failing to compile it is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return v
}

// Validate checks a metadata document against the schema.
//
// Returns nil if the document is valid, or an error listing every violation.
func (v *Validator) Validate(doc []byte) error {
	if len(doc) == 0 {
		return errors.New("metadata document is empty")
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		return fmt.Errorf("metadata is invalid: %v", result.Errors())
	}

	return nil
}
