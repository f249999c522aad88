package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// documentSchema describes the structure of a YAML contract document.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "description": {"type": "string"},
    "label": {"type": "string"},
    "priority": {"type": "integer"},
    "ignored": {"type": "boolean"},
    "inProgress": {"type": "boolean"},
    "metadata": {"type": "object"},
    "request": {
      "type": "object",
      "required": ["method"],
      "properties": {
        "method": {"type": "string"},
        "url": {"type": "string"},
        "urlPath": {"type": "string"},
        "queryParameters": {"type": "object"},
        "headers": {"type": "object"},
        "cookies": {"type": "object"},
        "bodyFromFile": {"type": "string"},
        "bodyFromFileAsBytes": {"type": "string"},
        "matchers": {
          "type": "object",
          "properties": {
            "url": {"$ref": "#/$defs/keyValueMatcher"},
            "body": {"type": "array", "items": {"$ref": "#/$defs/bodyMatcher"}},
            "headers": {"type": "array", "items": {"$ref": "#/$defs/keyValueMatcher"}},
            "cookies": {"type": "array", "items": {"$ref": "#/$defs/keyValueMatcher"}},
            "queryParameters": {"type": "array"}
          }
        }
      }
    },
    "response": {
      "type": "object",
      "required": ["status"],
      "properties": {
        "status": {"type": "integer"},
        "headers": {"type": "object"},
        "cookies": {"type": "object"},
        "bodyFromFile": {"type": "string"},
        "bodyFromFileAsBytes": {"type": "string"},
        "async": {"type": "boolean"},
        "fixedDelayMilliseconds": {"type": "integer"},
        "matchers": {"$ref": "#/$defs/testMatchers"}
      }
    },
    "input": {
      "type": "object",
      "properties": {
        "messageFrom": {"type": "string"},
        "triggeredBy": {"type": "string"},
        "messageHeaders": {"type": "object"},
        "messageBodyFromFile": {"type": "string"},
        "messageBodyFromFileAsBytes": {"type": "string"},
        "assertThat": {"type": "string"},
        "matchers": {
          "type": "object",
          "properties": {
            "body": {"type": "array", "items": {"$ref": "#/$defs/bodyMatcher"}},
            "headers": {"type": "array", "items": {"$ref": "#/$defs/keyValueMatcher"}}
          }
        }
      }
    },
    "outputMessage": {
      "type": "object",
      "required": ["sentTo"],
      "properties": {
        "sentTo": {"type": "string"},
        "headers": {"type": "object"},
        "bodyFromFile": {"type": "string"},
        "bodyFromFileAsBytes": {"type": "string"},
        "assertThat": {"type": "string"},
        "matchers": {"$ref": "#/$defs/testMatchers"}
      }
    }
  },
  "$defs": {
    "bodyMatcher": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "path": {"type": "string"},
        "type": {"enum": ["by_date", "by_time", "by_timestamp", "by_regex", "by_equality", "by_type", "by_null", "by_command"]},
        "value": {"type": "string"},
        "predefined": {"type": "string"},
        "minOccurrence": {"type": "integer", "minimum": 0},
        "maxOccurrence": {"type": "integer", "minimum": 0},
        "regexType": {"type": "string"}
      }
    },
    "keyValueMatcher": {
      "type": "object",
      "properties": {
        "key": {"type": "string"},
        "regex": {"type": "string"},
        "predefined": {"type": "string"},
        "command": {"type": "string"},
        "regexType": {"type": "string"}
      }
    },
    "testMatchers": {
      "type": "object",
      "properties": {
        "body": {"type": "array", "items": {"$ref": "#/$defs/bodyMatcher"}},
        "headers": {"type": "array", "items": {"$ref": "#/$defs/keyValueMatcher"}},
        "cookies": {"type": "array", "items": {"$ref": "#/$defs/keyValueMatcher"}}
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("contract.json", strings.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile("contract.json")
})

// validateDocument checks a decoded YAML document against documentSchema.
func validateDocument(node *yaml.Node) error {
	var doc any
	if err := node.Decode(&doc); err != nil {
		return err
	}
	// Convert to JSON and back to ensure consistent types
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("document is not JSON compatible: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}

	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(generic); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return schemaError(verr)
		}
		return err
	}
	return nil
}

// schemaError flattens the innermost causes into one readable error.
func schemaError(err *jsonschema.ValidationError) error {
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(err)
	return errors.New(strings.Join(msgs, "; "))
}
