package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
)

var ErrInvalidConfig = errors.New("invalid workspace config")

var configSchemaRaw = `
{
	"type": "object",
	"properties": {
		"type": {
			"type": "string",
			"enum": [ "jupyter", "restful", "cron", "proxy", "rstudio", "custom" ]
		},
		"command": { "type": "string" },
		"function": { "type": "string" },
		"script": { "type": "string" }
	},
	"required": [ "type" ],
	"allOf": [
		{
			"if": { "properties": { "type": { "const": "custom" } } },
			"then": { "required": [ "command" ], "properties": { "command": { "minLength": 1 } } }
		},
		{
			"if": { "properties": { "type": { "const": "restful" } } },
			"then": { "required": [ "function" ] }
		},
		{
			"if": { "properties": { "type": { "const": "cron" } } },
			"then": { "required": [ "script" ] }
		}
	]
}
`

var configSchema = mustParseSchema(configSchemaRaw)

func mustParseSchema(raw string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	err := json.Unmarshal([]byte(raw), rs)
	if err != nil {
		panic(fmt.Sprintf("invalid config schema: %s", err))
	}
	return rs
}

func keyError(errs []jsonschema.KeyError) error {
	s := strings.Builder{}
	for _, e := range errs {
		s.WriteString(fmt.Sprintf("%s\n", e.Error()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.TrimSpace(s.String()))
}

// ValidateConfig checks a workspace config against the config schema.
func ValidateConfig(cfg Config) error {
	marshaled, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	keyErrs, err := configSchema.ValidateBytes(context.Background(), marshaled)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if len(keyErrs) != 0 {
		return keyError(keyErrs)
	}
	return nil
}
