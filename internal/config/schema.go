package config

// configSchema structurally validates ticketrot.yaml before the
// semantic checks in Validate run. Keeping the structural rules in a
// JSON schema gives editors and CI a machine-readable contract.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ticketrot configuration",
  "type": "object",
  "required": ["servers"],
  "additionalProperties": false,
  "properties": {
    "version": {
      "type": "integer",
      "minimum": 0,
      "maximum": 0
    },
    "storage_root": {
      "type": "string",
      "minLength": 1
    },
    "generations": {
      "type": "integer",
      "minimum": 1,
      "maximum": 16
    },
    "key_bytes": {
      "type": "integer",
      "minimum": 16,
      "maximum": 512
    },
    "rotation_interval": {
      "type": "string",
      "minLength": 2
    },
    "reload_interval": {
      "type": "string",
      "minLength": 2
    },
    "reload_command": {
      "type": "string"
    },
    "server_binary": {
      "type": "string"
    },
    "min_server_version": {
      "type": "string",
      "pattern": "^[0-9]+(\\.[0-9]+)*$"
    },
    "metrics_textfile": {
      "type": "string"
    },
    "servers": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "string",
        "pattern": "^[A-Za-z0-9][A-Za-z0-9._-]*$"
      }
    }
  }
}`
