package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"gopkg.in/yaml.v3"
)

// definitionSchema is the JSON schema the parsed twx.yaml must satisfy.
// Environments must carry an account id and auth id; certificate id and key
// path are optional because they can arrive via environment overrides.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["environments"],
  "properties": {
    "version": {"type": "integer"},
    "projectDir": {"type": "string"},
    "build": {"type": "string"},
    "credentialStore": {"type": "string"},
    "keyDir": {"type": "string"},
    "metricsTextfile": {"type": "string"},
    "projectFiles": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "environments": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["accountId", "authId"],
        "properties": {
          "accountId": {"type": "string", "minLength": 1},
          "authId": {"type": "string", "minLength": 1},
          "certificateId": {"type": "string"},
          "privateKeyPath": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// validateSchema checks the raw YAML document against definitionSchema.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return twxerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return twxerrors.UserError{
			Message: "Failed to validate configuration schema",
			Details: err.Error(),
			Err:     err,
		}
	}

	if !result.Valid() {
		first := result.Errors()[0]
		return twxerrors.ConfigError{
			Field:      first.Field(),
			Message:    first.Description(),
			Suggestion: fmt.Sprintf("Fix the '%s' entry in your twx.yaml (%d problem(s) found)", first.Field(), len(result.Errors())),
		}
	}

	return nil
}
