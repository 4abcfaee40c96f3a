// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"log"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/auth"
	"github.com/jeranaias/atlas-tui/internal/chat"
	"github.com/jeranaias/atlas-tui/internal/config"
	"github.com/jeranaias/atlas-tui/internal/storage"
)

// Runtime bundles the services every command handler needs: config,
// API client, credential cache, auth controller, and the chat store
// with its optional history mirror.
type Runtime struct {
	Cfg        *config.Config
	Client     *api.Client
	Creds      *storage.CredentialStore
	Flags      *auth.TransientFlags
	Controller *auth.Controller
	History    *storage.HistoryStore
	Store      *chat.Store
}

// NewRuntime builds the service graph from the on-disk configuration.
func NewRuntime() (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API.BaseURL).WithMaxRetries(cfg.API.MaxRetries)

	creds, err := storage.NewCredentialStore(dir, cfg.Auth.EncryptCredentials)
	if err != nil {
		return nil, err
	}

	flags := auth.NewTransientFlags()
	controller := auth.NewController(client, creds, flags)

	var history *storage.HistoryStore
	if cfg.Chat.HistoryEnabled {
		history, err = storage.OpenHistory(dir)
		if err != nil {
			// The mirror is an enhancement; run without it.
			log.Printf("cli: history mirror unavailable: %v", err)
			history = nil
		}
	}

	opts := []chat.Option{
		chat.WithPayloads(
			cfg.Chat.IncludeVisualizations,
			cfg.Chat.IncludeInsights,
			cfg.Chat.IncludePolicies,
		),
	}
	if history != nil {
		opts = append(opts, chat.WithHistory(history))
	}
	store := chat.NewStore(client, opts...)

	return &Runtime{
		Cfg:        cfg,
		Client:     client,
		Creds:      creds,
		Flags:      flags,
		Controller: controller,
		History:    history,
		Store:      store,
	}, nil
}

// Close releases runtime resources.
func (r *Runtime) Close() {
	if r.History != nil {
		if err := r.History.Close(); err != nil {
			log.Printf("cli: failed to close history store: %v", err)
		}
	}
}
