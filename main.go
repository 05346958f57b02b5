package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vidfetch/vidfetch/internal/api"
	"github.com/vidfetch/vidfetch/internal/config"
	"github.com/vidfetch/vidfetch/internal/download"
	"github.com/vidfetch/vidfetch/internal/events"
	"github.com/vidfetch/vidfetch/internal/platform"
	"github.com/vidfetch/vidfetch/internal/session"
	"github.com/vidfetch/vidfetch/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.vidfetch.vidfetch"
	AppName = "VidFetch"

	WindowWidth  = 800
	WindowHeight = 600
)

// eventSource adapts the websocket dialer to the orchestrator's interface.
type eventSource struct {
	dialer *events.Dialer
}

func (s eventSource) Open(ctx context.Context, sessionID string) (session.EventStream, error) {
	return s.dialer.Open(ctx, sessionID)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Str("version", version).Msg("starting")

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration failed")
	}

	// Create new Fyne app
	myApp := app.NewWithID(AppID)

	// Apply compact theme
	myApp.Settings().SetTheme(ui.NewCompactTheme())

	windowTitle := fmt.Sprintf("%s v%s", AppName, version)
	myWindow := myApp.NewWindow(windowTitle)
	myWindow.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	// Initialize services
	settings := config.NewSettings(myApp)
	downloadsDir := settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(downloadsDir); err != nil {
		log.Warn().Str("dir", downloadsDir).Err(err).Msg("failed to ensure downloads dir")
	}

	client := api.NewClient(env.BackendURL)
	dialer := events.NewDialer(env.BackendURL)
	trigger := download.NewTrigger(downloadsDir)

	orch := session.NewOrchestrator(client, eventSource{dialer: dialer}, trigger)
	defer orch.Close()

	// Create and setup UI
	ui.NewRootUI(myWindow, myApp, orch, env.BackendURL)

	// Show and run
	myWindow.ShowAndRun()
}
