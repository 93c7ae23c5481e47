package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/GauravRai2002/ARBadminton/internal/app"
	"github.com/GauravRai2002/ARBadminton/internal/capture"
	"github.com/GauravRai2002/ARBadminton/internal/config"
	"github.com/GauravRai2002/ARBadminton/internal/server"
	"github.com/GauravRai2002/ARBadminton/internal/store"
	"github.com/GauravRai2002/ARBadminton/internal/tray"
)

func main() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}
	dataDir := filepath.Join(homeDir, ".arbadminton")

	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", filepath.Join(dataDir, "arbadminton.db"), "SQLite database path")
	configPath := flag.String("config", "", "tuning config JSON file (defaults when empty)")
	pluginDir := flag.String("plugins", filepath.Join(dataDir, "plugins"), "feedback plugin directory")
	device := flag.String("device", "0", "camera index or video file")
	width := flag.Int("width", capture.DefaultWidth, "capture width")
	height := flag.Int("height", capture.DefaultHeight, "capture height")
	motion := flag.Float64("motion", 0.5, "percent of changed pixels that wakes the pipeline")
	webDirFlag := flag.String("web", "", "static web directory (searched when empty)")
	showTray := flag.Bool("tray", true, "show the system tray menu")
	flag.Parse()

	fmt.Println("ARBadminton - Net Collision Detection")

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	application, err := app.New(app.Config{
		Store:     st,
		PluginDir: *pluginDir,
		Capture: capture.Config{
			Device: *device,
			Width:  *width,
			Height: *height,
			FPS:    capture.DefaultFPS,
		},
		Tuning:       tuning,
		MotionThresh: *motion,
	})
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer application.Close()

	if err := application.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	} else if n := len(application.PluginManager().List()); n > 0 {
		fmt.Printf("Loaded %d feedback plugin(s)\n", n)
	}

	webDir := *webDirFlag
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Placer:    application,
		Events:    application,
		Frames:    application,
		Stats:     application,
	})
	defer srv.Close()

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := application.Start(); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}

	if !*showTray {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		fmt.Println("Shutting down")
		return
	}

	t := tray.New()
	application.Subscribe(t.RecordHit)
	t.OnToggle(application.SetEnabled)
	t.OnSettings(func() { openBrowser(debugURL(*addr)) })
	t.OnQuit(func() { fmt.Println("Shutting down") })
	t.Run()
}

// debugURL returns the local URL of the web UI for a listen address.
func debugURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr + "/"
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.arbadminton/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".arbadminton", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
