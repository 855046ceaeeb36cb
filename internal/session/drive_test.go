// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/identity"
	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/storage"
)

func newDriven(t *testing.T, disp Dispatcher, emitter Emitter) *Controller {
	t.Helper()
	ctrl, err := New(Deps{
		Classifier: router.NewDefaultClassifier(),
		Store:      storage.NewConversationStore(storage.NewMemoryBackend(), zerolog.Nop()),
		Dispatcher: disp,
		Identity:   identity.NewStaticProvider("u", "", ""),
		Emitter:    emitter,
		Log:        zerolog.Nop(),
	}, Config{DefaultMode: router.ModeChat, SwitchTimeout: time.Minute})
	require.NoError(t, err)
	require.NoError(t, Drive(context.Background(), ctrl, ctrl.Init()))
	return ctrl
}

func TestDrive_AutoSwitchSettles(t *testing.T) {
	disp := &fakeDispatcher{}
	var got []Notification
	ctrl := newDriven(t, disp, EmitterFunc(func(n Notification) { got = append(got, n) }))

	cmd, err := ctrl.Submit("explain recursion")
	require.NoError(t, err)
	require.NoError(t, Drive(context.Background(), ctrl, cmd))

	assert.True(t, ctrl.Settled())
	assert.Equal(t, router.ModeExplain, ctrl.Mode())
	require.Len(t, got, 1)
	assert.Equal(t, "Switched to Explain mode", got[0].Text())
	assert.Len(t, disp.requests(), 1)
	assert.Len(t, ctrl.Snapshot().Transcript, 2)
}

func TestDrive_NilCommand(t *testing.T) {
	ctrl := newDriven(t, &fakeDispatcher{}, nil)
	assert.NoError(t, Drive(context.Background(), ctrl, nil))
}

func TestDrive_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	disp := &fakeDispatcher{reply: func(cloud.Request) (cloud.Turn, error) {
		<-release
		return cloud.Turn{Content: "late"}, nil
	}}
	ctrl := newDriven(t, disp, nil)

	cmd, err := ctrl.Submit("hello there")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, Drive(ctx, ctrl, cmd), context.DeadlineExceeded)
	assert.Equal(t, StateSending, ctrl.State())
}
