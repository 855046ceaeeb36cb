// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/identity"
	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Classifier picks the mode for a message.
type Classifier interface {
	Classify(text string) router.Mode
}

// Store persists chat lists per (user, mode). Load returns a usable,
// possibly empty, list even when it also returns an error.
type Store interface {
	Load(ctx context.Context, user string, mode router.Mode) (model.Conversations, error)
	Save(ctx context.Context, user string, mode router.Mode, chats model.Conversations) error
}

// Credentials persists the per-user API key override.
type Credentials interface {
	APIKey(ctx context.Context, user string) (string, error)
	SetAPIKey(ctx context.Context, user, apiKey string) error
}

// Dispatcher sends one message to the inference service.
type Dispatcher interface {
	Send(ctx context.Context, req cloud.Request) (cloud.Turn, error)
}

// Deps are the collaborators a Controller needs. Classifier, Store,
// Dispatcher and Identity are required.
type Deps struct {
	Classifier  Classifier
	Store       Store
	Credentials Credentials
	Dispatcher  Dispatcher
	Identity    identity.Provider
	Emitter     Emitter
	Log         zerolog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
	// After schedules msg after d. Defaults to tea.Tick.
	After func(d time.Duration, msg tea.Msg) tea.Cmd
	// Context bounds every store and dispatch call. Defaults to
	// context.Background.
	Context context.Context
}

// Config holds controller settings.
type Config struct {
	// DefaultMode is the mode the session opens in.
	DefaultMode router.Mode
	// Language is sent with every request.
	Language string
	// SwitchTimeout is how long a mode reload may take before the
	// watchdog loads synchronously.
	SwitchTimeout time.Duration
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		DefaultMode:   router.ModeCode,
		Language:      cloud.DefaultLanguage,
		SwitchTimeout: 2 * time.Second,
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

type switchOp struct {
	seq    uint64
	target router.Mode
}

// inflight tags an outstanding request with where its reply belongs.
type inflight struct {
	id      uint64
	mode    router.Mode
	convID  string
	viewSeq uint64
	history []model.Message
	userMsg model.Message
	req     cloud.Request
	last    *lastRequest
}

type lastRequest struct {
	req     cloud.Request
	mode    router.Mode
	convID  string
	history []model.Message
}

// Controller is the session state machine. It is not safe for concurrent
// use; all calls happen on the owner's goroutine (the Bubble Tea loop or
// Drive).
type Controller struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger
	ctx  context.Context
	user identity.User

	mode       router.Mode
	chats      model.Conversations
	activeID   string
	transcript []model.Message
	language   string
	apiKey     string
	warning    string
	draft      string

	pending   *PendingAction
	switching *switchOp
	flight    *inflight
	last      *lastRequest

	reloadSeq uint64
	viewSeq   uint64
	reqSeq    uint64
	updatedAt time.Time
}

// New builds a controller. It resolves the current user and the stored API
// key override; chats are loaded by the command Init returns.
func New(deps Deps, cfg Config) (*Controller, error) {
	if deps.Classifier == nil || deps.Store == nil || deps.Dispatcher == nil || deps.Identity == nil {
		return nil, errors.New("session: classifier, store, dispatcher and identity are required")
	}
	if deps.Emitter == nil {
		deps.Emitter = nopEmitter{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.After == nil {
		deps.After = func(d time.Duration, msg tea.Msg) tea.Cmd {
			return tea.Tick(d, func(time.Time) tea.Msg { return msg })
		}
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = router.ModeCode
	}
	if !cfg.DefaultMode.Valid() {
		return nil, fmt.Errorf("session: invalid default mode %q", cfg.DefaultMode)
	}
	if cfg.Language == "" {
		cfg.Language = cloud.DefaultLanguage
	}
	if cfg.SwitchTimeout <= 0 {
		cfg.SwitchTimeout = DefaultConfig().SwitchTimeout
	}

	u, err := deps.Identity.CurrentUser(deps.Context)
	if err != nil {
		return nil, fmt.Errorf("session: resolve user: %w", err)
	}

	c := &Controller{
		deps:     deps,
		cfg:      cfg,
		log:      deps.Log.With().Str("component", "session").Str("user", u.ID).Logger(),
		ctx:      deps.Context,
		user:     u,
		mode:     cfg.DefaultMode,
		chats:    model.Conversations{},
		language: cfg.Language,
		viewSeq:  1,
	}

	if deps.Credentials != nil {
		key, err := deps.Credentials.APIKey(c.ctx, u.ID)
		if err != nil {
			c.setWarning(err)
		}
		c.apiKey = key
	}
	c.touch()
	return c, nil
}

// Init loads the chat list for the starting mode.
func (c *Controller) Init() tea.Cmd {
	c.viewSeq++
	return c.startReload(c.mode)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State reports the controller state. A reply in flight takes precedence
// over a reload so input stays locked until it arrives.
func (c *Controller) State() State {
	switch {
	case c.flight != nil:
		return StateSending
	case c.switching != nil:
		return StateSwitching
	default:
		return StateIdle
	}
}

// Settled reports whether nothing is outstanding.
func (c *Controller) Settled() bool {
	return c.flight == nil && c.switching == nil
}

// Mode returns the active mode.
func (c *Controller) Mode() router.Mode { return c.mode }

// User returns the session user.
func (c *Controller) User() identity.User { return c.user }

// Language returns the language sent with requests.
func (c *Controller) Language() string { return c.language }

// TakeDraft returns and clears the text of a queued message that was
// dropped because the user navigated to another mode before it was sent.
func (c *Controller) TakeDraft() string {
	d := c.draft
	c.draft = ""
	return d
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:      c.State(),
		Mode:       c.mode,
		User:       c.user,
		Chats:      c.chats.Clone(),
		ActiveID:   c.activeID,
		Transcript: model.CloneMessages(c.transcript),
		InFlight:   c.flight != nil,
		Language:   c.language,
		HasAPIKey:  c.apiKey != "",
		CanRetry:   c.last != nil && c.Settled(),
		Warning:    c.warning,
		UpdatedAt:  c.updatedAt,
	}
	if c.flight != nil && c.flight.viewSeq == c.viewSeq {
		m := c.flight.userMsg
		s.Outgoing = &m
	}
	if c.pending != nil {
		p := *c.pending
		p.ChatsSnapshot = p.ChatsSnapshot.Clone()
		s.Pending = &p
	}
	return s
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Submit sends text in the mode it classifies to. If that is the active
// mode the message continues the active conversation. Otherwise the
// controller announces the switch, reloads the target mode and sends the
// message as the first turn of a new conversation there.
func (c *Controller) Submit(text string) (tea.Cmd, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if c.flight != nil {
		return nil, ErrBusy
	}

	target := c.deps.Classifier.Classify(text)
	c.log.Debug().Str("mode", target.String()).Str("state", c.State().String()).Msg("submit classified")

	if c.switching != nil {
		snapshot := c.chats.Clone()
		if c.pending != nil {
			snapshot = c.pending.ChatsSnapshot
		}
		c.pending = &PendingAction{Kind: PendingSend, Target: target, Content: text, History: []model.Message{}, ChatsSnapshot: snapshot}
		if target == c.mode {
			c.touch()
			return nil, nil
		}
		c.log.Info().Str("from", c.mode.String()).Str("to", target.String()).Msg("retargeting mode switch")
		return c.beginSwitch(target), nil
	}

	if target == c.mode {
		return c.dispatch(text, c.transcript, c.activeID, c.viewSeq), nil
	}

	c.pending = &PendingAction{Kind: PendingSend, Target: target, Content: text, History: []model.Message{}, ChatsSnapshot: c.chats.Clone()}
	c.log.Info().Str("from", c.mode.String()).Str("to", target.String()).Msg("auto switching mode")
	return c.beginSwitch(target), nil
}

// ChangeMode switches modes on the user's request. It clears the active
// conversation and reloads the mode's chats. A queued action for another
// mode is dropped; a dropped message is kept for TakeDraft.
func (c *Controller) ChangeMode(mode router.Mode) (tea.Cmd, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("session: unknown mode %q", mode)
	}
	if mode == c.mode {
		return nil, nil
	}
	if c.pending != nil && c.pending.Target != mode {
		if c.pending.Kind == PendingSend {
			c.draft = c.pending.Content
		}
		c.log.Info().Str("target", c.pending.Target.String()).Msg("dropping queued action after manual mode change")
		c.pending = nil
	}
	c.mode = mode
	c.clearView()
	return c.startReload(mode), nil
}

// SelectChat makes a conversation active. mode is the mode the conversation
// is filed under; if it differs from the active mode this behaves like an
// automatic switch that opens the chat once the mode has loaded.
func (c *Controller) SelectChat(id string, mode router.Mode) (tea.Cmd, error) {
	if mode == "" {
		mode = c.mode
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("session: unknown mode %q", mode)
	}

	if mode != c.mode || c.switching != nil {
		snapshot := c.chats.Clone()
		if c.pending != nil {
			snapshot = c.pending.ChatsSnapshot
		}
		c.pending = &PendingAction{Kind: PendingOpen, Target: mode, ChatID: id, ChatsSnapshot: snapshot}
		if mode == c.mode {
			c.touch()
			return nil, nil
		}
		return c.beginSwitch(mode), nil
	}

	conv, ok := c.chats.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChat, id)
	}
	if conv.ID != c.activeID {
		c.viewSeq++
	}
	c.activeID = conv.ID
	c.transcript = model.CloneMessages(conv.Messages)
	c.touch()
	return nil, nil
}

// NewChat creates an empty conversation in the active mode and makes it
// active.
func (c *Controller) NewChat() error {
	if c.switching != nil {
		return ErrBusy
	}
	conv := model.NewConversation(c.mode, c.deps.Clock())
	c.chats = c.chats.Upsert(conv)
	c.save(c.mode, c.chats)
	c.viewSeq++
	c.activeID = conv.ID
	c.transcript = []model.Message{}
	c.touch()
	return nil
}

// DeleteChat removes a conversation from the active mode. Deleting the
// active conversation activates the first remaining one, or leaves the
// session empty.
func (c *Controller) DeleteChat(id string) error {
	if c.switching != nil {
		return ErrBusy
	}
	chats, ok := c.chats.Remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChat, id)
	}
	c.chats = chats
	c.save(c.mode, c.chats)
	if c.last != nil && c.last.mode == c.mode && c.last.convID == id {
		c.last = nil
	}

	if id == c.activeID {
		c.viewSeq++
		if len(c.chats) > 0 {
			c.activeID = c.chats[0].ID
			c.transcript = model.CloneMessages(c.chats[0].Messages)
		} else {
			c.activeID = ""
			c.transcript = []model.Message{}
		}
	}
	c.touch()
	return nil
}

// Retry resends the last request with identical arguments.
func (c *Controller) Retry() (tea.Cmd, error) {
	if !c.Settled() {
		return nil, ErrBusy
	}
	if c.last == nil {
		return nil, ErrNothingToRetry
	}
	l := c.last
	if !c.retryTargetExists(l) {
		c.last = nil
		return nil, ErrNothingToRetry
	}
	viewSeq := uint64(0)
	if l.mode == c.mode && l.convID == c.activeID {
		viewSeq = c.viewSeq
	}
	return c.send(l.req, l.mode, l.history, l.convID, viewSeq), nil
}

// retryTargetExists reports whether the chat a request was sent into is
// still stored. A request that started a chat always has a target.
func (c *Controller) retryTargetExists(l *lastRequest) bool {
	if l.convID == "" {
		return true
	}
	chats := c.chats
	if l.mode != c.mode {
		loaded, err := c.deps.Store.Load(c.ctx, c.user.ID, l.mode)
		if err != nil {
			c.setWarning(err)
		}
		chats = loaded
	}
	_, ok := chats.Find(l.convID)
	return ok
}

// SetLanguage sets the programming language sent with requests.
func (c *Controller) SetLanguage(lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return errors.New("session: language is empty")
	}
	c.language = lang
	c.touch()
	return nil
}

// SetAPIKey stores the user's API key override. An empty key clears it.
func (c *Controller) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if c.deps.Credentials != nil {
		if err := c.deps.Credentials.SetAPIKey(c.ctx, c.user.ID, key); err != nil {
			return err
		}
	}
	c.apiKey = key
	c.log.Info().Str("key", cloud.KeyFingerprint(key)).Msg("api key updated")
	c.touch()
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// beginSwitch announces an automatic switch to target and starts the reload.
func (c *Controller) beginSwitch(target router.Mode) tea.Cmd {
	now := c.deps.Clock()
	c.mode = target
	c.clearView()
	c.deps.Emitter.Emit(Notification{Mode: target, At: now})
	return c.startReload(target)
}

func (c *Controller) clearView() {
	c.viewSeq++
	c.chats = model.Conversations{}
	c.activeID = ""
	c.transcript = []model.Message{}
	c.touch()
}

// startReload supersedes any reload in progress.
func (c *Controller) startReload(mode router.Mode) tea.Cmd {
	c.reloadSeq++
	seq := c.reloadSeq
	c.switching = &switchOp{seq: seq, target: mode}

	store, ctx, user := c.deps.Store, c.ctx, c.user.ID
	load := func() tea.Msg {
		chats, err := store.Load(ctx, user, mode)
		return ChatsLoadedMsg{Seq: seq, Mode: mode, Chats: chats, Err: err}
	}
	return tea.Batch(load, c.deps.After(c.cfg.SwitchTimeout, SwitchTimeoutMsg{Seq: seq}))
}

// dispatch sends content with history into conversation convID of the
// active mode. An empty convID starts a new conversation.
func (c *Controller) dispatch(content string, history []model.Message, convID string, viewSeq uint64) tea.Cmd {
	req := cloud.Request{
		Message:  content,
		Mode:     c.mode,
		History:  model.CloneMessages(history),
		Language: c.language,
		APIKey:   c.apiKey,
	}
	return c.send(req, c.mode, history, convID, viewSeq)
}

func (c *Controller) send(req cloud.Request, mode router.Mode, history []model.Message, convID string, viewSeq uint64) tea.Cmd {
	c.reqSeq++
	c.last = &lastRequest{req: req, mode: mode, convID: convID, history: model.CloneMessages(history)}
	f := &inflight{
		id:      c.reqSeq,
		mode:    mode,
		convID:  convID,
		viewSeq: viewSeq,
		history: model.CloneMessages(history),
		userMsg: model.NewUserMessage(req.Message, c.deps.Clock()),
		req:     req,
		last:    c.last,
	}
	c.flight = f
	c.touch()

	c.log.Info().Uint64("request", f.id).Str("mode", mode.String()).Str("chat", convID).
		Int("history", len(history)).Msg("dispatching message")

	d, ctx, id := c.deps.Dispatcher, c.ctx, f.id
	return func() tea.Msg {
		turn, err := d.Send(ctx, req)
		return DispatchResultMsg{ID: id, Turn: turn, Err: err}
	}
}

func (c *Controller) save(mode router.Mode, chats model.Conversations) {
	if err := c.deps.Store.Save(c.ctx, c.user.ID, mode, chats); err != nil {
		c.setWarning(err)
		return
	}
	c.warning = ""
}

func (c *Controller) setWarning(err error) {
	if err == nil {
		return
	}
	c.warning = err.Error()
	c.log.Warn().Err(err).Msg("storage problem")
}

func (c *Controller) touch() {
	c.updatedAt = c.deps.Clock()
}
