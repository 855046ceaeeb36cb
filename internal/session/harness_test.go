// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/identity"
	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/storage"
)

const testUser = "tester"

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeDispatcher struct {
	mu    sync.Mutex
	reqs  []cloud.Request
	reply func(req cloud.Request) (cloud.Turn, error)
}

func (d *fakeDispatcher) Send(_ context.Context, req cloud.Request) (cloud.Turn, error) {
	d.mu.Lock()
	d.reqs = append(d.reqs, req)
	reply := d.reply
	d.mu.Unlock()
	if reply != nil {
		return reply(req)
	}
	return cloud.Turn{Content: "reply to " + req.Message, Timestamp: testNow.Add(time.Minute), Language: req.Language}, nil
}

func (d *fakeDispatcher) requests() []cloud.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]cloud.Request(nil), d.reqs...)
}

type harness struct {
	t       *testing.T
	ctrl    *Controller
	store   *storage.ConversationStore
	backend *storage.MemoryBackend
	creds   *storage.CredentialStore
	disp    *fakeDispatcher
	events  *Queue
	timers  []SwitchTimeoutMsg
}

// newHarness builds a controller over in-memory storage. seed runs before
// the controller is created so tests can pre-populate chats; the initial
// load has already completed when it returns.
func newHarness(t *testing.T, mode router.Mode, seed func(h *harness)) *harness {
	t.Helper()
	backend := storage.NewMemoryBackend()
	h := &harness{
		t:       t,
		backend: backend,
		store:   storage.NewConversationStore(backend, zerolog.Nop()),
		creds:   storage.NewCredentialStore(backend, zerolog.Nop()),
		disp:    &fakeDispatcher{},
		events:  NewQueue(),
	}
	if seed != nil {
		seed(h)
	}

	tick := testNow
	ctrl, err := New(Deps{
		Classifier:  router.NewDefaultClassifier(),
		Store:       h.store,
		Credentials: h.creds,
		Dispatcher:  h.disp,
		Identity:    identity.NewStaticProvider(testUser, "", ""),
		Emitter:     h.events,
		Log:         zerolog.Nop(),
		Clock: func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		},
		After: func(_ time.Duration, msg tea.Msg) tea.Cmd {
			h.timers = append(h.timers, msg.(SwitchTimeoutMsg))
			return nil
		},
	}, Config{DefaultMode: mode})
	require.NoError(t, err)
	h.ctrl = ctrl
	h.run(ctrl.Init())
	require.Equal(t, StateIdle, ctrl.State())
	return h
}

// run executes cmd synchronously and feeds every resulting message back to
// the controller until nothing follows.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, sub := range msg {
			h.run(sub)
		}
	default:
		h.run(h.ctrl.Update(msg))
	}
}

func (h *harness) submit(text string) {
	h.t.Helper()
	cmd, err := h.ctrl.Submit(text)
	require.NoError(h.t, err)
	h.run(cmd)
}

func (h *harness) seed(mode router.Mode, chats model.Conversations) {
	h.t.Helper()
	require.NoError(h.t, h.store.Save(context.Background(), testUser, mode, chats))
}

func (h *harness) stored(mode router.Mode) model.Conversations {
	h.t.Helper()
	chats, err := h.store.Load(context.Background(), testUser, mode)
	require.NoError(h.t, err)
	return chats
}

func (h *harness) lastTimer() SwitchTimeoutMsg {
	h.t.Helper()
	require.NotEmpty(h.t, h.timers)
	return h.timers[len(h.timers)-1]
}

func sampleChat(mode router.Mode, question string) model.Conversation {
	return model.NewConversationWithMessages(mode, []model.Message{
		model.NewUserMessage(question, testNow),
		model.NewAssistantMessage("answer to "+question, testNow.Add(time.Second)),
	}, testNow.Add(time.Second))
}
