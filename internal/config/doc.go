// Package config loads epterm configuration.
//
// # Resolution
//
// The Load function follows this order:
//
//  1. Load a .env file from the working directory (ignored when absent)
//  2. Read the TOML file at the given path, or ~/.config/epterm/config.toml
//  3. Fall back to defaults for a missing file or empty fields
//  4. Let NEXT_PUBLIC_API_URL from the environment override api_url
//
// The environment variable name is shared with the ElectroPhobia web frontend so one
// .env file can drive both.
//
// # TOML Format
//
//	api_url            = "http://localhost:5000/api"
//	request_timeout    = "15s"
//	retries            = 0
//	reconnect_attempts = 5
//	reconnect_delay    = "1s"
//	session_path       = "~/.config/epterm/session.toml"
//	log_path           = "~/.local/state/epterm/epterm.log"
//
// Durations use time.ParseDuration syntax. Paths accept a leading ~.
//
// # Realtime Endpoint
//
// RealtimeURL strips a trailing /api from the API base, matching how the event
// server is mounted next to the REST API on the same host.
package config
