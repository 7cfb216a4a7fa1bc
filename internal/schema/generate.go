// Package schema generates the JSON Schema for strata config files, so
// TOML-aware editors can validate and complete them.
package schema

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/strata-install/strata/pkg/config"
)

const (
	schemaURI   = "https://json-schema.org/draft/2020-12/schema"
	schemaID    = "https://raw.githubusercontent.com/strata-install/strata/main/schema/strata.schema.json"
	title       = "strata configuration"
	description = "Configuration for the strata installation engine and its plugins."

	// Filename is the schema file name written by schema-gen.
	Filename = "strata.schema.json"
)

// Generate reflects the config.Config struct into a JSON Schema.
func Generate() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
	}

	s := r.Reflect(&config.Config{})
	s.Version = schemaURI
	s.ID = schemaID
	s.Title = title
	s.Description = description

	return s
}

// GenerateJSON renders the schema as bytes with a trailing newline, ready
// to write to a file. When indent is true, the output is pretty-printed.
func GenerateJSON(indent bool) ([]byte, error) {
	s := Generate()

	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = json.Marshal(s)
	}

	if err != nil {
		return nil, errors.Wrap(err, "marshaling schema to JSON")
	}

	return append(data, '\n'), nil
}
