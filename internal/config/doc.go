// Package config handles configuration loading for coven-link.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation; timing fields left unset fall back to the
// session defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	gateway:
//	  token: "${COVEN_TOKEN}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  handshake_timeout: "10s"
//	  heartbeat_interval: "30s"
//	  reconnect_cap: "30s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Gateway connection:
//
//	gateway:
//	  url: "wss://gateway.example/ws"
//	  token: "${COVEN_TOKEN}"
//
// Client descriptor sent during the handshake:
//
//	client:
//	  id: "workstation"
//	  mode: "interactive"
//	  scopes: ["chat", "files"]
//
// Device identity (optional; enables signed device assertions):
//
//	identity:
//	  key_path: "~/.ssh/id_ed25519"
//
// Session timing:
//
//	session:
//	  handshake_timeout: "10s"
//	  command_timeout: "30s"
//	  heartbeat_interval: "30s"
//	  heartbeat_timeout: "10s"
//	  reconnect_base: "1s"
//	  reconnect_cap: "30s"
//	  max_reconnects: 10
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/coven/link.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
