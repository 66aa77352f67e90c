package descriptor

// schemaJSON is a structural pre-validation schema for the descriptor
// format"). It checks shape only — the
// semantic checks (mutual exclusion, phase-dependent key/nonce/id
// presence, key whitelisting) are the rules engine's job (package rules),
// run after this passes.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["nodes", "modules", "connections", "periodic-events"],
  "properties": {
    "manager": {
      "type": "object",
      "required": ["host", "port"],
      "properties": {
        "host": {"type": "string"},
        "port": {"type": "integer"}
      }
    },
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "ip_address", "reactive_port", "deploy_port", "backend"],
        "properties": {
          "name": {"type": "string"},
          "ip_address": {"type": "string"},
          "reactive_port": {"type": "integer"},
          "deploy_port": {"type": "integer"},
          "backend": {"type": "string", "enum": ["sancus", "sgx", "nosgx", "trustzone"]}
        }
      }
    },
    "modules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "node", "backend"],
        "properties": {
          "name": {"type": "string"},
          "node": {"type": "string"},
          "backend": {"type": "string", "enum": ["sancus", "sgx", "nosgx", "trustzone"]}
        }
      }
    },
    "connections_current_id": {"type": "integer"},
    "connections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "to_module"],
        "properties": {
          "id": {"type": "integer"},
          "name": {"type": "string"},
          "to_module": {"type": "string"}
        }
      }
    },
    "events_current_id": {"type": "integer"},
    "periodic-events": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "module", "entry", "frequency_ms"],
        "properties": {
          "id": {"type": "integer"},
          "name": {"type": "string"},
          "module": {"type": "string"},
          "entry": {"type": "string"},
          "frequency_ms": {"type": "integer"}
        }
      }
    }
  }
}`
