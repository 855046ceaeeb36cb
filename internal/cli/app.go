// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/config"
	"github.com/jeranaias/modechat/internal/identity"
	"github.com/jeranaias/modechat/internal/logging"
	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/session"
	"github.com/jeranaias/modechat/internal/storage"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logStderr  bool
	mode       string
	url        string
	user       string
	language   string
}

// App is everything a command needs, wired from configuration.
type App struct {
	Config      *config.Config
	Log         zerolog.Logger
	Identity    identity.Provider
	User        identity.User
	Store       *storage.ConversationStore
	Credentials *storage.CredentialStore
	Classifier  *router.Classifier
	Client      *cloud.Client

	closers []io.Closer
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	if opts.mode != "" {
		cfg.Session.DefaultMode = strings.ToLower(strings.TrimSpace(opts.mode))
	}
	if opts.url != "" {
		cfg.Service.URL = opts.url
	}
	if opts.user != "" {
		cfg.Identity.UserID = opts.user
	}
	if opts.language != "" {
		cfg.Session.Language = strings.ToLower(strings.TrimSpace(opts.language))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid flags: %w", errConfig, err)
	}
	return cfg, nil
}

// newApp loads configuration and opens logging, storage, the classifier and
// the service client.
func newApp(ctx context.Context, opts *globalOptions) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	logFile, err := cfg.LogFile()
	if err != nil {
		return nil, err
	}
	log, logCloser, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   logFile,
		Stderr: opts.logStderr,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	a.Log = log
	a.closers = append(a.closers, logCloser)

	a.Identity = identity.NewStaticProvider(cfg.Identity.UserID, cfg.Identity.DisplayName, cfg.Identity.Token)
	a.User, err = a.Identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	backend, err := storage.OpenBackend(cfg.Storage.Backend, path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, backend)
	a.Store = storage.NewConversationStore(backend, log)
	a.Credentials = storage.NewCredentialStore(backend, log)

	if err := a.openClassifier(); err != nil {
		return nil, err
	}

	a.Client = cloud.NewClient(cfg.Service.URL, log).
		WithTimeout(cfg.Service.Timeout.Std()).
		WithRateLimit(cfg.Service.RateLimit, cfg.Service.RateBurst).
		WithTokenSource(identity.TokenSource(a.Identity))
	a.closers = append(a.closers, a.Client)

	log.Debug().Str("user", a.User.ID).Str("backend", cfg.Storage.Backend).Str("service", cfg.Service.URL).Msg("app ready")
	ok = true
	return a, nil
}

// openClassifier uses the configured rules file, hot-reloading it when
// classifier.watch is set, or the built-in rules.
func (a *App) openClassifier() error {
	path, err := a.Config.RulesFile()
	if err != nil {
		return err
	}
	if path == "" {
		a.Classifier = router.NewDefaultClassifier()
		return nil
	}

	rs, err := router.LoadRules(path)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	a.Classifier, err = router.NewClassifier(rs)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	if !a.Config.Classifier.Watch {
		return nil
	}

	w, err := router.NewRulesWatcher(path, a.Classifier, a.Log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, w)
	return w.Watch()
}

// StartMode is the configured starting mode.
func (a *App) StartMode() router.Mode {
	m, err := router.ParseMode(a.Config.Session.DefaultMode)
	if err != nil {
		return router.ModeCode
	}
	return m
}

// NewController builds a session over the app's collaborators.
func (a *App) NewController(ctx context.Context, emitter session.Emitter) (*session.Controller, error) {
	return session.New(session.Deps{
		Classifier:  a.Classifier,
		Store:       a.Store,
		Credentials: a.Credentials,
		Dispatcher:  a.Client,
		Identity:    a.Identity,
		Emitter:     emitter,
		Log:         a.Log,
		Context:     ctx,
	}, session.Config{
		DefaultMode:   a.StartMode(),
		Language:      a.Config.Session.Language,
		SwitchTimeout: a.Config.Session.SwitchTimeout.Std(),
	})
}

// Close releases everything newApp opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
