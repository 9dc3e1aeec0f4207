package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const progressSchema = `{
	"type": "object",
	"required": ["code", "unit", "topic"],
	"properties": {
		"code":  {"type": "string", "minLength": 1},
		"unit":  {"type": "integer", "minimum": 1},
		"topic": {"type": "integer", "minimum": 0}
	},
	"additionalProperties": false
}`

const querySchema = `{
	"type": "object",
	"required": ["topic"],
	"properties": {
		"topic":            {"type": "string", "minLength": 1},
		"knowledgeLevel":   {"type": "string", "enum": ["R", "U", "AP", "AN", "E", "C"]},
		"subject":          {"type": "string"},
		"reference":        {"type": "string"},
		"includeResources": {"type": "boolean"},
		"hasImage":         {"type": "boolean"}
	},
	"additionalProperties": false
}`

var (
	progressValidator = gojsonschema.NewStringLoader(progressSchema)
	queryValidator    = gojsonschema.NewStringLoader(querySchema)
)

// validateJSON checks a request body against a schema and returns a single
// client-facing message listing the violations.
func validateJSON(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(msgs, "; "))
}
