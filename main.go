package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/app"
	"github.com/nhle/school-notify/internal/inbox"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/session"
	"github.com/nhle/school-notify/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "school-notify:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}
	if cfg.API.BaseURL == "" {
		return fmt.Errorf(
			"no API base URL configured; set api.base_url in %s",
			model.DefaultConfigPath(),
		)
	}

	cache, err := store.NewSQLiteStore(model.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("opening local cache: %w", err)
	}
	defer cache.Close()

	client := api.NewClient(cfg.API.BaseURL, "")
	svc := api.NewService(client)

	ib := inbox.New(svc, cache, cfg.API.PageSize)
	sent := inbox.NewSentbox(svc, cache)
	sess := session.New(client, ib, time.Duration(cfg.API.PollIntervalSec)*time.Second)

	root := app.New(client, svc, sess, ib, sent)

	p := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}
