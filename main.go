// Package main provides the entry point for the RefBoard application.
package main

import (
	"flag"
	"fmt"
	"os"

	fyneapp "fyne.io/fyne/v2/app"

	"refboard/internal/app"
	"refboard/internal/config"
	"refboard/internal/logger"
	"refboard/internal/settings"
	"refboard/internal/version"
	"refboard/ui/mainwindow"
)

func main() {
	debugShapes := flag.Bool("debug-shapes", false, "paint the interactive handle zones")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info().
		Str("version", version.Version).
		Str("commit", version.GitCommit).
		Str("built", version.BuildTime).
		Msg("starting refboard")

	var prefs *settings.Settings
	if cfg.SettingsPath != "" {
		prefs = settings.LoadFrom(cfg.SettingsPath, log)
	} else {
		prefs = settings.Load(log)
	}

	state := app.NewState(prefs, log)

	fyneApp := fyneapp.NewWithID("io.refboard.app")
	fyneApp.Settings().SetTheme(&app.BoardTheme{})
	win := mainwindow.New(fyneApp, state, *debugShapes || cfg.DebugShapes)

	if args := flag.Args(); len(args) > 0 {
		if err := state.OpenBoard(args[0]); err != nil {
			log.Error().Err(err).Str("path", args[0]).Msg("open board failed")
		}
	}

	win.Show()
	fyneApp.Run()

	state.Runner.Wait()
	if err := prefs.Save(); err != nil {
		log.Warn().Err(err).Msg("could not save settings")
	}
}
