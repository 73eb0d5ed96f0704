package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// locationSchema covers the fields the dashboard reads; anything else a
// tracker sends is accepted as is.
const locationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "device_id": {"type": "string"},
    "timestamp": {"type": "string"},
    "event": {"type": "string"},
    "is_moving": {"type": "boolean"},
    "odometer": {"type": "number"},
    "coords": {
      "type": "object",
      "properties": {
        "latitude": {"type": "number", "minimum": -90, "maximum": 90},
        "longitude": {"type": "number", "minimum": -180, "maximum": 180},
        "accuracy": {"type": "number"}
      }
    },
    "battery": {
      "type": "object",
      "properties": {
        "level": {"type": "number"},
        "is_charging": {"type": "boolean"}
      }
    },
    "extras": {
      "type": "object",
      "properties": {
        "hits": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["rssi"],
            "properties": {
              "id": {"type": ["string", "integer"]},
              "name": {"type": "string"},
              "rssi": {"type": "integer"}
            }
          }
        }
      }
    }
  }
}`

func LoadSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("location.json", strings.NewReader(locationSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("location.json")
}

// ValidatePayload checks a raw result_data document against schema.
func ValidatePayload(schema *jsonschema.Schema, payload []byte) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if schema == nil {
		return nil
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
