// Package tray provides a system tray interface for the ARBadminton net
// collision service.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	hits       map[collision.Side]int
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuLastHit *systray.MenuItem
	menuTally   *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
		hits:    make(map[collision.Side]int),
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the debug view menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("ARBadminton")
	systray.SetTooltip("ARBadminton net collisions")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleLabel(t.enabled), "Toggle collision detection")
	systray.AddSeparator()

	t.menuLastHit = systray.AddMenuItem(lastHitLabel(nil), "Last net collision")
	t.menuLastHit.Disable()
	t.menuTally = systray.AddMenuItem(tallyLabel(t.hits), "Hits per side this run")
	t.menuTally.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Debug View...", "Open the overlay stream in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit ARBadminton")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleLabel(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleSettings handles the debug view menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// RecordHit shows ev as the last collision and counts it. Safe to call
// before Run.
func (t *Tray) RecordHit(ev collision.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.hits[ev.Side]++
	if t.menuLastHit != nil {
		t.menuLastHit.SetTitle(lastHitLabel(&ev))
		t.menuTally.SetTitle(tallyLabel(t.hits))
	}
}

// Hits returns the number of collisions recorded for side.
func (t *Tray) Hits(side collision.Side) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hits[side]
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func lastHitLabel(ev *collision.Event) string {
	if ev == nil {
		return "Last: none"
	}
	label := fmt.Sprintf("Last: side %s, %.1f m/s", ev.Side, ev.ImpactSpeed)
	if ev.Synthetic {
		label += " (estimated)"
	}
	return label
}

func tallyLabel(hits map[collision.Side]int) string {
	return fmt.Sprintf("Hits: A %d / B %d", hits[collision.SideA], hits[collision.SideB])
}
