// Package plugin discovers feedback plugins and runs them as subprocesses
// when the net is hit.
package plugin

import (
	"encoding/json"
	"slices"
)

// ActionCollision is the action sent for every accepted collision event.
const ActionCollision = "collision"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Action    string          `json:"action"`
	SessionID string          `json:"session_id,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the plugin declares action.
func (p *Plugin) Supports(action string) bool {
	return slices.Contains(p.Manifest.Actions, action)
}
