package policyconfig

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchemaJSON describes the recognized option surface of spec.md §6.
// Unknown keys are tolerated at every level, top-level sections included
// (additionalProperties defaults to true), so that future additive fields
// don't fail validation of older configs.
const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "version": {"type": "integer"},
    "workspace_root": {"type": "string"},
    "normalization": {
      "type": "object",
      "properties": {
        "filesystem": {
          "type": "object",
          "properties": {
            "collapse_temp": {"type": "boolean"},
            "collapse_home": {"type": "boolean"},
            "ignore_globs": {"type": "array", "items": {"type": "string"}}
          }
        },
        "network": {
          "type": "object",
          "properties": {
            "normalize_hosts": {"type": "boolean"}
          }
        },
        "exec": {
          "type": "object",
          "properties": {
            "argv_mode": {"enum": ["full", "hash", "none"]},
            "mask_patterns": {"type": "array", "items": {"type": "string"}}
          }
        }
      }
    },
    "redaction": {
      "type": "object",
      "properties": {
        "redact_paths": {"type": "array", "items": {"type": "string"}},
        "redact_urls": {"type": "array", "items": {"type": "string"}},
        "hash_values": {"type": "boolean"}
      }
    },
    "policy": {
      "type": "object",
      "properties": {
        "filesystem": {
          "type": "object",
          "properties": {
            "allow_writes": {"type": "array", "items": {"type": "string"}},
            "block_writes": {"type": "array", "items": {"type": "string"}},
            "enforce_allowlist": {"type": "boolean"}
          }
        },
        "network": {
          "type": "object",
          "properties": {
            "allow_hosts": {"type": "array", "items": {"type": "string"}},
            "allow_etld_plus_1": {"type": "array", "items": {"type": "string"}},
            "block_protocols": {"type": "array", "items": {"type": "string"}},
            "allow_protocols": {"type": "array", "items": {"type": "string"}},
            "allow_ports": {"type": "array", "items": {"type": "integer"}},
            "block_ports": {"type": "array", "items": {"type": "integer"}},
            "enforce_allowlist": {"type": "boolean"}
          }
        },
        "exec": {
          "type": "object",
          "properties": {
            "allow_commands": {"type": "array", "items": {"type": "string"}},
            "block_commands": {"type": "array", "items": {"type": "string"}},
            "enforce_allowlist": {"type": "boolean"}
          }
        },
        "sensitive": {
          "type": "object",
          "properties": {
            "block_env": {"type": "array", "items": {"type": "string"}},
            "block_file_globs": {"type": "array", "items": {"type": "string"}}
          }
        },
        "custom_rules": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "id": {"type": "string"},
              "expression": {"type": "string"},
              "message": {"type": "string"}
            },
            "required": ["expression"]
          }
        }
      }
    }
  }
}`

const configSchemaURL = "https://agentci.dev/schema/policy-config.schema.json"

var compiledSchema *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(configSchemaURL, strings.NewReader(configSchemaJSON)); err != nil {
		panic("policyconfig: invalid embedded schema: " + err.Error())
	}
	compiledSchema = c.MustCompile(configSchemaURL)
}

// validateSchema validates a generic (JSON-compatible) document against the
// embedded policy config schema.
func validateSchema(doc interface{}) error {
	return compiledSchema.Validate(doc)
}
