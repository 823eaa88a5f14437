// Command newslens is the terminal reader: browse feed categories, open an
// AI analysis of any article, ask follow-up questions, and compare two
// articles side by side.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/newslens/internal/app"
	"github.com/abelbrown/newslens/internal/config"
	"github.com/abelbrown/newslens/internal/logging"
	"github.com/abelbrown/newslens/internal/session"
	"github.com/abelbrown/newslens/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "newslens: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs always go to a file.
	if err := logging.Init(logging.Options{Level: cfg.Log.Level, Dir: cfg.LogDir()}); err != nil {
		fmt.Fprintf(os.Stderr, "newslens: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.New(ctx, cfg)
	if err != nil {
		logging.Error("startup failed", "error", err)
		fmt.Fprintf(os.Stderr, "newslens: %v\n", err)
		os.Exit(1)
	}
	defer services.Close()

	names := services.CategoryNames()
	first := ""
	if len(names) > 0 {
		first = names[0]
	}
	state := session.NewState(cfg.LanguageCode(), first)

	program := tea.NewProgram(ui.NewApp(ctx, services.Pipeline, state, names), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logging.Error("program exited", "error", err)
		fmt.Fprintf(os.Stderr, "newslens: %v\n", err)
	}
}
