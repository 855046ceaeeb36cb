// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// =============================================================================
// RULES WATCHER
// =============================================================================

// DefaultWatchDebounce is how long a rules file must be quiet before it is
// reloaded. Editors often write a file in several steps.
const DefaultWatchDebounce = 250 * time.Millisecond

// RulesWatcher reloads a rules file into a Classifier whenever it changes.
// An invalid file is logged and ignored; the classifier keeps its previous
// rules.
type RulesWatcher struct {
	path       string
	classifier *Classifier
	log        zerolog.Logger
	debounce   time.Duration
	onReload   func(RuleSet, error)

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	dirty   time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WatcherOption configures a RulesWatcher.
type WatcherOption func(*RulesWatcher)

// WithDebounce overrides DefaultWatchDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *RulesWatcher) { w.debounce = d }
}

// WithReloadHook registers fn to run after every reload attempt, with the
// rules that were applied or the error that stopped them.
func WithReloadHook(fn func(RuleSet, error)) WatcherOption {
	return func(w *RulesWatcher) { w.onReload = fn }
}

// NewRulesWatcher creates a watcher for the rules file at path.
func NewRulesWatcher(path string, c *Classifier, log zerolog.Logger, opts ...WatcherOption) (*RulesWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rules path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &RulesWatcher{
		path:       abs,
		classifier: c,
		log:        log.With().Str("component", "rules_watcher").Str("path", abs).Logger(),
		debounce:   DefaultWatchDebounce,
		watcher:    fw,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch starts watching. The parent directory is watched rather than the
// file so that editors which save by rename are still seen.
func (w *RulesWatcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch rules directory: %w", err)
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

func (w *RulesWatcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.dirty = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("rules watcher error")
		}
	}
}

func (w *RulesWatcher) processPending() {
	defer w.wg.Done()
	tick := w.debounce / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case now := <-ticker.C:
			w.mu.Lock()
			due := !w.dirty.IsZero() && now.Sub(w.dirty) >= w.debounce
			if due {
				w.dirty = time.Time{}
			}
			w.mu.Unlock()

			if due {
				w.reload()
			}
		}
	}
}

func (w *RulesWatcher) reload() {
	rs, err := LoadRules(w.path)
	if err == nil {
		err = w.classifier.Swap(rs)
	}
	if err != nil {
		w.log.Warn().Err(err).Msg("rules reload rejected, keeping previous rules")
	} else {
		w.log.Info().Int("groups", len(rs.Groups)).Msg("rules reloaded")
	}
	if w.onReload != nil {
		w.onReload(rs, err)
	}
}

// Close stops watching and waits for the watcher goroutines to exit.
func (w *RulesWatcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
