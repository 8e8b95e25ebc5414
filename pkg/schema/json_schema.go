// Package schema renders configuration structs as JSON schema documents.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// DraftVersion is the JSON schema dialect every document declares.
const DraftVersion = "http://json-schema.org/draft-07/schema#"

// Reflect builds a self-contained schema for config. Nested structs are
// inlined and unknown properties are refused.
func Reflect[T any](title string, config T) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}

	doc := reflector.Reflect(config)
	doc.Version = DraftVersion
	doc.Title = title

	return doc
}

// ToJSONSchema renders the schema of config as a JSON string under title.
func ToJSONSchema[T any](title string, config T) (string, error) {
	raw, err := json.Marshal(Reflect(title, config))
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to encode %s schema", title)
	}

	return string(raw), nil
}
