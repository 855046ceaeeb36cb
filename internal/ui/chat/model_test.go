// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/identity"
	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/session"
	"github.com/jeranaias/modechat/internal/storage"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type echoDispatcher struct {
	mu   sync.Mutex
	reqs []cloud.Request
}

func (d *echoDispatcher) Send(_ context.Context, req cloud.Request) (cloud.Turn, error) {
	d.mu.Lock()
	d.reqs = append(d.reqs, req)
	d.mu.Unlock()
	return cloud.Turn{Content: "reply to " + req.Message, Timestamp: testNow}, nil
}

func (d *echoDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reqs)
}

type tui struct {
	t      *testing.T
	m      Model
	store  *storage.ConversationStore
	disp   *echoDispatcher
	copied string
}

func newTUI(t *testing.T, seed map[router.Mode]model.Conversations) *tui {
	t.Helper()
	backend := storage.NewMemoryBackend()
	h := &tui{
		t:     t,
		store: storage.NewConversationStore(backend, zerolog.Nop()),
		disp:  &echoDispatcher{},
	}
	for mode, chats := range seed {
		require.NoError(t, h.store.Save(context.Background(), "tester", mode, chats))
	}

	events := session.NewQueue()
	ctrl, err := session.New(session.Deps{
		Classifier:  router.NewDefaultClassifier(),
		Store:       h.store,
		Credentials: storage.NewCredentialStore(backend, zerolog.Nop()),
		Dispatcher:  h.disp,
		Identity:    identity.NewStaticProvider("tester", "", ""),
		Emitter:     events,
		Log:         zerolog.Nop(),
		Clock:       func() time.Time { return testNow },
		After:       func(time.Duration, tea.Msg) tea.Cmd { return nil },
	}, session.Config{DefaultMode: router.ModeCode})
	require.NoError(t, err)

	h.m = New(ctrl, events, Options{
		Sidebar: true,
		Clock:   func() time.Time { return testNow },
		Copy: func(s string) error {
			h.copied = s
			return nil
		},
	})
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.run(h.m.Init())
	return h
}

// send delivers msg and runs whatever session work follows from it.
func (h *tui) send(msg tea.Msg) {
	h.t.Helper()
	h.run(h.update(msg))
}

// update delivers msg without running the resulting command.
func (h *tui) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

// run executes cmd and feeds session results back. Timers (spinner, blink,
// toast ticks) are dropped.
func (h *tui) run(cmd tea.Cmd) {
	h.t.Helper()
	if cmd == nil {
		return
	}
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-out:
	case <-time.After(50 * time.Millisecond):
		return
	}
	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, sub := range msg {
			h.run(sub)
		}
	case session.ChatsLoadedMsg, session.SwitchTimeoutMsg, session.DispatchResultMsg:
		h.send(msg)
	}
}

func (h *tui) typeText(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *tui) key(k tea.KeyType) {
	h.send(tea.KeyMsg{Type: k})
}

func (h *tui) alt(r rune) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true})
}

func (h *tui) snap() session.Snapshot {
	return h.m.Controller().Snapshot()
}

func (h *tui) toastTexts() []string {
	var out []string
	for _, t := range h.m.toasts.Toasts() {
		out = append(out, t.Message)
	}
	return out
}

func chatWith(mode router.Mode, question string) model.Conversation {
	return model.NewConversationWithMessages(mode, []model.Message{
		model.NewUserMessage(question, testNow),
		model.NewAssistantMessage("answer to "+question, testNow),
	}, testNow)
}

// =============================================================================
// SENDING
// =============================================================================

func TestEnterSendsInCurrentMode(t *testing.T) {
	h := newTUI(t, nil)

	h.typeText("write a function to sort a list")
	h.key(tea.KeyEnter)

	snap := h.snap()
	assert.Equal(t, router.ModeCode, snap.Mode)
	require.Len(t, snap.Transcript, 2)
	assert.Equal(t, "reply to write a function to sort a list", snap.Transcript[1].Content)
	assert.Empty(t, h.m.input.Value())
	assert.Empty(t, h.toastTexts())
	assert.Contains(t, h.m.viewport.View(), "reply to write a function")
}

func TestEnterOnEmptyInputDoesNothing(t *testing.T) {
	h := newTUI(t, nil)
	h.typeText("   ")
	h.key(tea.KeyEnter)
	assert.Zero(t, h.disp.count())
	assert.Empty(t, h.snap().Transcript)
}

func TestAutoSwitchShowsToast(t *testing.T) {
	h := newTUI(t, nil)

	h.typeText("explain recursion")
	h.key(tea.KeyEnter)

	snap := h.snap()
	assert.Equal(t, router.ModeExplain, snap.Mode)
	assert.Equal(t, session.StateIdle, snap.State)
	require.Len(t, snap.Transcript, 2)
	assert.Equal(t, []string{"Switched to Explain mode"}, h.toastTexts())
	assert.Contains(t, h.m.View(), "Switched to Explain mode")

	h.key(tea.KeyEsc)
	assert.Empty(t, h.toastTexts())
}

func TestBusyWhileWaitingForReply(t *testing.T) {
	h := newTUI(t, nil)

	h.typeText("implement a stack")
	pending := h.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, session.StateSending, h.snap().State)
	assert.Contains(t, h.m.View(), "Waiting for reply")

	h.typeText("are you there?")
	h.key(tea.KeyEnter)
	assert.Equal(t, "are you there?", h.m.input.Value())
	assert.Contains(t, h.toastTexts(), "Still waiting for the last reply")

	h.run(pending)
	assert.Equal(t, session.StateIdle, h.snap().State)
}

// =============================================================================
// MODES
// =============================================================================

func TestModeKeys(t *testing.T) {
	h := newTUI(t, nil)

	h.alt('3')
	assert.Equal(t, router.ModeExplain, h.snap().Mode)

	h.key(tea.KeyCtrlRight)
	assert.Equal(t, router.ModeRoadmap, h.snap().Mode)

	h.key(tea.KeyCtrlRight)
	assert.Equal(t, router.ModeCode, h.snap().Mode)

	h.key(tea.KeyCtrlLeft)
	assert.Equal(t, router.ModeRoadmap, h.snap().Mode)

	assert.Empty(t, h.toastTexts(), "manual changes are not announced")
}

func TestModeChangeRestoresQueuedMessage(t *testing.T) {
	h := newTUI(t, nil)

	h.typeText("explain closures")
	stalled := h.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, session.StateSwitching, h.snap().State)
	assert.Empty(t, h.m.input.Value())

	h.alt('2')
	assert.Equal(t, router.ModeChat, h.snap().Mode)
	assert.Equal(t, "explain closures", h.m.input.Value())

	h.run(stalled)
	assert.Equal(t, router.ModeChat, h.snap().Mode)
	assert.Zero(t, h.disp.count())
}

// =============================================================================
// CHAT LIST
// =============================================================================

func TestSidebarOpensChat(t *testing.T) {
	first := chatWith(router.ModeCode, "write a parser")
	second := chatWith(router.ModeCode, "implement a lexer")
	h := newTUI(t, map[router.Mode]model.Conversations{
		router.ModeCode: {first, second},
	})
	require.Empty(t, h.snap().ActiveID)
	assert.Contains(t, h.m.View(), "write a parser")

	h.key(tea.KeyTab)
	require.Equal(t, focusSidebar, h.m.focus)
	assert.Equal(t, 0, h.m.cursor)

	h.key(tea.KeyDown)
	h.key(tea.KeyDown)
	assert.Equal(t, 1, h.m.cursor)

	h.key(tea.KeyEnter)
	assert.Equal(t, second.ID, h.snap().ActiveID)
	assert.Equal(t, focusInput, h.m.focus)
	assert.Contains(t, h.m.viewport.View(), "answer to implement a lexer")
}

func TestSidebarDeletesChat(t *testing.T) {
	first := chatWith(router.ModeCode, "write a parser")
	second := chatWith(router.ModeCode, "implement a lexer")
	h := newTUI(t, map[router.Mode]model.Conversations{
		router.ModeCode: {first, second},
	})

	h.key(tea.KeyTab)
	h.key(tea.KeyDown)
	h.key(tea.KeyCtrlD)

	snap := h.snap()
	require.Len(t, snap.Chats, 1)
	assert.Equal(t, first.ID, snap.Chats[0].ID)
	assert.Equal(t, 0, h.m.cursor)
}

func TestNewChatKey(t *testing.T) {
	h := newTUI(t, map[router.Mode]model.Conversations{
		router.ModeCode: {chatWith(router.ModeCode, "write a parser")},
	})

	h.key(tea.KeyCtrlN)

	snap := h.snap()
	assert.Len(t, snap.Chats, 2)
	assert.Empty(t, snap.Transcript)
	assert.Contains(t, h.m.viewport.View(), "Code mode")
}

// =============================================================================
// REPLY ACTIONS
// =============================================================================

func TestRetryKey(t *testing.T) {
	h := newTUI(t, nil)

	h.key(tea.KeyCtrlR)
	assert.Contains(t, h.toastTexts(), "Nothing to retry")

	h.typeText("hello there")
	h.key(tea.KeyEnter)
	h.key(tea.KeyCtrlR)

	assert.Equal(t, 2, h.disp.count())
	assert.Len(t, h.snap().Transcript, 2)
}

func TestCopyLastReply(t *testing.T) {
	h := newTUI(t, nil)

	h.key(tea.KeyCtrlY)
	assert.Contains(t, h.toastTexts(), "No reply to copy")

	h.typeText("hello there")
	h.key(tea.KeyEnter)
	h.key(tea.KeyCtrlY)

	assert.Equal(t, "reply to hello there", h.copied)
	assert.Contains(t, h.toastTexts(), "Copied reply to clipboard")
}

func TestQuit(t *testing.T) {
	h := newTUI(t, nil)
	cmd := h.update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, h.m.Quitting())
	assert.Empty(t, h.m.View())
}

// =============================================================================
// RENDERING
// =============================================================================

func TestViewShowsChrome(t *testing.T) {
	h := newTUI(t, nil)
	view := h.m.View()
	for _, want := range []string{"1 Code", "2 Chat", "3 Explain", "4 Roadmap", "No chats yet", "tester"} {
		assert.Contains(t, view, want)
	}
}

func TestNarrowTerminalHidesSidebar(t *testing.T) {
	h := newTUI(t, nil)
	h.send(tea.WindowSizeMsg{Width: 50, Height: 20})
	assert.Zero(t, h.m.sidebarWidth())
	assert.NotContains(t, h.m.View(), "No chats yet")

	h.key(tea.KeyTab)
	assert.Equal(t, focusInput, h.m.focus)
}

func TestOverlayBottomRight(t *testing.T) {
	base := strings.Join([]string{"aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc"}, "\n")
	got := overlayBottomRight(base, "XY\nZW", 10)
	assert.Equal(t, []string{"aaaaaaaaaa", "bbbbbbbXY", "cccccccZW"}, strings.Split(got, "\n"))
}

func TestLastReply(t *testing.T) {
	_, ok := lastReply(nil)
	assert.False(t, ok)

	msgs := []model.Message{
		model.NewUserMessage("q1", testNow),
		model.NewAssistantMessage("a1", testNow),
		model.NewUserMessage("q2", testNow),
	}
	got, ok := lastReply(msgs)
	assert.True(t, ok)
	assert.Equal(t, "a1", got)
}
