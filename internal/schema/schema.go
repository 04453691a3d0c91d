// Package schema validates source JSON files against embedded JSON Schemas.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrSchemaValidation is wrapped by every validation failure.
var ErrSchemaValidation = errors.New("schema validation failed")

// Issue is a single validation failure.
type Issue struct {
	Location string
	Message  string
}

// ValidationError lists the issues found in one document.
type ValidationError struct {
	Issues []Issue
	Cause  error
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ErrSchemaValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := issue.Location
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrSchemaValidation }

// Validator checks raw JSON against one compiled schema.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// MustCompile compiles a draft 2020-12 schema and panics on error. It is
// meant for package-level schemas.
func MustCompile(name, source string) *Validator {
	v, err := Compile(name, source)
	if err != nil {
		panic(err)
	}
	return v
}

// Compile compiles a draft 2020-12 schema.
func Compile(name, source string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Validator{name: name, schema: compiled}, nil
}

// Validate decodes data and checks it against the schema. Syntax errors are
// returned as is; schema violations as *ValidationError.
func (v *Validator) Validate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode %s: %w", v.name, err)
	}
	if dec.More() {
		return fmt.Errorf("decode %s: trailing data", v.name)
	}
	if err := v.schema.Validate(doc); err != nil {
		return &ValidationError{Issues: issues(err), Cause: err}
	}
	return nil
}

// Decode validates data and then unmarshals it into out.
func (v *Validator) Decode(data []byte, out any) error {
	if err := v.Validate(data); err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func issues(err error) []Issue {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []Issue{{Message: err.Error()}}
	}
	var out []Issue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			out = append(out, Issue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(validationErr)
	return out
}
