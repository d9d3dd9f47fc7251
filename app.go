package main

import (
	"context"
	"fmt"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"library-client/client"
	"library-client/config"
	"library-client/library"
	"library-client/logger"
	"library-client/session"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	sess    *session.Session
	api     *client.Client
	manager *library.LibraryManager
}

func (a *app) open(ctx context.Context, configPath, apiURL string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.API.URL = apiURL
	}
	level := cfg.App.LogLevel
	if debug {
		level = "debug"
	}
	logger.Init(cfg.App.Environment, level)

	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	a.cfg = cfg
	a.sess = session.New(store)
	a.api = client.New(cfg.API.URL, cfg.API.Timeout, a.sess)
	a.manager = library.NewLibraryManager(a.api)
	log.Debug().Str("api", cfg.API.URL).Str("session", cfg.Session.Backend).Msg("client ready")
	return nil
}

func (a *app) close() error {
	if a.sess == nil {
		return nil
	}
	err := a.sess.Close()
	a.sess = nil
	return err
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}
