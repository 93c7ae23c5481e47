// Package main provides a feedback plugin that plays a sound when the
// shuttle hits the net, with a different sound for each side.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action    string          `json:"action"`
	SessionID string          `json:"session_id"`
	Event     json.RawMessage `json:"event"`
	Config    json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// hit is the part of a collision event the chime cares about.
type hit struct {
	Side        string  `json:"side"`
	ImpactSpeed float64 `json:"impact_speed"`
	Synthetic   bool    `json:"synthetic"`
}

// Config selects the sound file per side.
type Config struct {
	SoundA string `json:"sound_a"`
	SoundB string `json:"sound_b"`
	// Player overrides the platform audio command.
	Player string `json:"player"`
}

var defaultSounds = map[string]Config{
	"darwin": {SoundA: "/System/Library/Sounds/Tink.aiff", SoundB: "/System/Library/Sounds/Pop.aiff", Player: "afplay"},
	"linux":  {SoundA: "/usr/share/sounds/freedesktop/stereo/bell.oga", SoundB: "/usr/share/sounds/freedesktop/stereo/complete.oga", Player: "paplay"},
}

func main() {
	resp := handle(os.Stdin, runtime.GOOS, play)
	json.NewEncoder(os.Stdout).Encode(resp)
}

// handle decodes a request from r and plays the chime for its event.
func handle(r io.Reader, goos string, player func(cmd, file string) error) Response {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}
	if req.Action != "collision" {
		return Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}

	var ev hit
	if err := json.Unmarshal(req.Event, &ev); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode event: %v", err)}
	}

	cfg := defaultSounds[goos]
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return Response{Error: fmt.Sprintf("invalid config: %v", err)}
		}
	}

	cmd, file, err := chooseSound(cfg, ev.Side)
	if err != nil {
		return Response{Error: err.Error()}
	}
	if err := player(cmd, file); err != nil {
		return Response{Error: fmt.Sprintf("play %s failed: %v", file, err)}
	}

	data, _ := json.Marshal(map[string]string{"played": file})
	return Response{Success: true, Data: data}
}

// chooseSound returns the player command and file for side.
func chooseSound(cfg Config, side string) (string, string, error) {
	if cfg.Player == "" {
		return "", "", errors.New("no audio player configured for this platform")
	}
	switch side {
	case "A":
		return cfg.Player, cfg.SoundA, nil
	case "B":
		return cfg.Player, cfg.SoundB, nil
	default:
		return "", "", fmt.Errorf("unknown side: %q", side)
	}
}

// play runs the audio command and waits for it to finish.
func play(cmd, file string) error {
	output, err := exec.Command(cmd, file).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
