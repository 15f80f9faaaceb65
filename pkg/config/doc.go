// Package config provides configuration management for the auditor.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. A loaded *Config is passed
// explicitly to every component that needs it; there is no package-level
// configuration state.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("auditor.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("auditor.yaml")
//
// References of the form ${NAME} anywhere in the file are replaced with the
// value of the environment variable NAME before parsing. Write $$ for a
// literal dollar sign, for example in a redaction replacement.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AUDITOR_SECTION_FIELD.
// For example:
//
//   - AUDITOR_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - AUDITOR_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//   - AUDITOR_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation errors include field paths and are reported together:
//
//	configuration validation failed with 2 errors:
//	  - policy.http.url: URL is required when source is 'http'
//	  - review.provider: provider "openai" is not configured
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8090"
//	  cors:
//	    allowed_origins: ["https://acme.zendesk.com"]
//
//	ticket:
//	  base_url: "https://acme.zendesk.com"
//	  email: "auditor@acme.com"
//	  api_token: "${ZENDESK_TOKEN}"
//	  fields:
//	    experience_type: 360001234567
//	    booking_ref: 360007654321
//
//	policy:
//	  source: "git"
//	  watch: true
//	  git:
//	    repository: "https://github.com/acme/dss-grid.git"
//	    path: "grid.json"
//
//	verdicts:
//	  backend: "sqlite"
//
//	sinks:
//	  sheets:
//	    enabled: true
//	    url: "https://script.google.com/macros/s/XYZ/exec"
//	    secret: "${SHEETS_SECRET}"
package config
