package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/GauravRai2002/ARBadminton/internal/capture"
	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/plugin"
)

// captureLoop reads frames at the rate picked by the activity gate and
// hands them to the processing goroutine.
//
// The loop idles at a low rate until the gate sees motion, switches to the
// active rate, and drops back after the rate's IdleAfter without activity.
// Idle frames are never processed.
func (a *App) captureLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(a.rate.FPS()))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}

		mat, err := a.camera.ReadFrame()
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			continue
		}
		now := time.Now()

		activity, _ := a.gate.Detect(mat)
		if fps, changed := a.rate.Observe(activity, now); changed {
			a.camera.SetFPS(fps)
			ticker.Reset(time.Second / time.Duration(fps))
			if a.rate.Active() {
				log.Println("Switched to active mode")
			} else {
				log.Println("Switched to idle mode")
			}
		}

		if !a.rate.Active() {
			mat.Close()
			continue
		}

		img, err := capture.MatToNRGBA(*mat)
		mat.Close()
		if err != nil {
			log.Printf("Error converting frame: %v", err)
			continue
		}

		if a.frames.Offer(Frame{Image: img, Timestamp: now.Sub(a.started).Seconds()}) {
			a.droppedFrames.Add(1)
		}
	}
}

// processLoop runs the pipeline on each handed-off frame and refreshes the
// debug overlay while someone is watching.
func (a *App) processLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		frame, err := a.frames.Receive(ctx)
		if err != nil {
			return
		}

		a.pipeline.ProcessFrame(frame.Image, frame.Timestamp)

		if a.viewers.Load() == 0 {
			continue
		}
		jpeg, err := RenderOverlay(frame.Image, a.pipeline.Status())
		if err != nil {
			log.Printf("Error rendering overlay: %v", err)
			continue
		}
		a.jpegMu.Lock()
		a.latestJPEG = jpeg
		a.jpegMu.Unlock()
	}
}

// feedbackLoop delivers collision events: persistence, plugins, then
// subscribers.
func (a *App) feedbackLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		ev, err := a.events.Receive(ctx)
		if err != nil {
			return
		}
		a.deliver(ctx, ev)
	}
}

func (a *App) deliver(ctx context.Context, ev collision.Event) {
	a.mu.Lock()
	a.lastEvent = &ev
	sessionID := a.sessionID
	a.mu.Unlock()

	if a.config.Store != nil && sessionID != "" {
		if _, err := a.config.Store.Collisions().Insert(sessionID, ev); err != nil {
			log.Printf("Error saving collision %s: %v", ev.ID, err)
		}
	}

	a.runPlugins(ctx, sessionID, ev)

	a.subMu.RLock()
	subs := make([]func(collision.Event), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (a *App) runPlugins(ctx context.Context, sessionID string, ev collision.Event) {
	plugins := a.pluginMgr.ForAction(plugin.ActionCollision)
	if len(plugins) == 0 {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Error encoding collision %s: %v", ev.ID, err)
		return
	}
	req := &plugin.Request{
		Action:    plugin.ActionCollision,
		SessionID: sessionID,
		Event:     payload,
	}

	for _, p := range plugins {
		resp, err := a.pluginExec.Execute(ctx, p, req)
		switch {
		case err != nil:
			log.Printf("Plugin %s failed: %v", p.Manifest.Name, err)
		case !resp.Success:
			log.Printf("Plugin %s reported: %s", p.Manifest.Name, resp.Error)
		}
	}
}
