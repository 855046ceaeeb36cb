// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/config"
	"github.com/jeranaias/modechat/internal/storage"
)

// isolate points every config and storage path at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("MODECHAT_HOME", home)
	t.Setenv("MODECHAT_IDENTITY_USER_ID", "tester")
	t.Setenv("MODECHAT_LOG_LEVEL", "disabled")
	return home
}

// fakeService answers /api/chat with "reply to <message> in <mode>".
func fakeService(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			calls.Add(1)
			var req struct {
				Message string `json:"message"`
				Mode    string `json:"mode"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"message":   fmt.Sprintf("reply to %s in %s", req.Message, req.Mode),
				"timestamp": "2025-01-02T03:04:05",
			})
		case "/api/languages":
			w.Write([]byte(`{"languages":[{"id":"python","name":"Python"},{"id":"go","name":"Go"}]}`))
		case "/health":
			w.Write([]byte(`{"status":"healthy","service":"codementor"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// decodeData unwraps a JSONResponse envelope into v.
func decodeData(t *testing.T, raw string, v any) JSONResponse {
	t.Helper()
	var env struct {
		JSONResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &env), raw)
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return env.JSONResponse
}

func TestParseSlash(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArg  string
	}{
		{"/mode explain", "mode", "explain"},
		{"/MODE Explain", "mode", "Explain"},
		{"/new", "new", ""},
		{"  /open   1a2b3c4d  ", "open", "1a2b3c4d"},
		{"/key sk-abc def", "key", "sk-abc def"},
		{"/", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, arg := parseSlash(tt.input)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArg, arg)
		})
	}
}

func TestKeepInHistory(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"explain recursion", true},
		{"   ", false},
		{"/mode code", true},
		{"/key", true},
		{"/key clear", true},
		{"/key sk-secret-123", false},
		{"  /KEY sk-secret-123", false},
		{"/keys", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, keepInHistory(tt.input))
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Reason: "bad"}, ExitUsageError},
		{"config", fmt.Errorf("%w: broken", errConfig), ExitConfigError},
		{"validation", config.ValidationErrors{{Field: "service.url", Message: "required"}}, ExitConfigError},
		{"not found", commandErr("chats", "show", storage.ErrNotFound), ExitNotFoundError},
		{"unreachable", &cloud.DispatchError{Kind: cloud.KindUnreachable, Err: errors.New("refused")}, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestCommandErrorUnwraps(t *testing.T) {
	err := commandErr("chats", "delete", storage.ErrNotFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "chats")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "modechat dev")
}

func TestClassifyCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "classify", "--json", "explain", "recursion")
	require.NoError(t, err)

	var res classifyResult
	env := decodeData(t, out, &res)
	assert.True(t, env.Success)
	assert.Equal(t, "classify", env.Command)
	assert.EqualValues(t, "explain", res.Mode)
	assert.Equal(t, "explain recursion", res.Input)
}

func TestClassifyCommandExplain(t *testing.T) {
	isolate(t)

	out, err := execute(t, "classify", "--explain", "write a function to reverse a string")
	require.NoError(t, err)
	assert.Contains(t, out, "Code")
	assert.Contains(t, out, "Matched by")
}

func TestClassifyCommandNeedsText(t *testing.T) {
	isolate(t)

	_, err := execute(t, "classify")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestClassifyRules(t *testing.T) {
	out, err := execute(t, "classify", "--rules")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestConfigInitAndPath(t *testing.T) {
	home := isolate(t)
	want := filepath.Join(home, "config.toml")

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(out))

	_, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.True(t, config.ExistsAt(want))

	_, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigShowRedactsToken(t *testing.T) {
	isolate(t)
	t.Setenv("MODECHAT_IDENTITY_TOKEN", "super-secret")

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "super-secret")
}

func TestInvalidFlagIsConfigError(t *testing.T) {
	isolate(t)

	_, err := execute(t, "classify", "--mode", "poetry", "hello")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestAskCommand(t *testing.T) {
	isolate(t)
	srv, calls := fakeService(t)

	out, err := execute(t, "--url", srv.URL, "ask", "--json", "explain", "recursion")
	require.NoError(t, err)

	var res askResult
	decodeData(t, out, &res)
	assert.EqualValues(t, "explain", res.Mode)
	assert.True(t, res.Switched)
	assert.Equal(t, "reply to explain recursion in explain", res.Reply)
	assert.NotEmpty(t, res.ConversationID)
	assert.EqualValues(t, 1, calls.Load())

	// The reply was persisted under the explain mode.
	out, err = execute(t, "--mode", "explain", "chats", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "explain recursion")
	assert.Contains(t, out, storage.ShortID(res.ConversationID))
}

func TestAskStaysInStartingMode(t *testing.T) {
	isolate(t)
	srv, _ := fakeService(t)

	out, err := execute(t, "--url", srv.URL, "ask", "--json", "write a function to sort a list")
	require.NoError(t, err)

	var res askResult
	decodeData(t, out, &res)
	assert.EqualValues(t, "code", res.Mode)
	assert.False(t, res.Switched)
}

func TestChatsShowAndDelete(t *testing.T) {
	isolate(t)
	srv, _ := fakeService(t)

	out, err := execute(t, "--url", srv.URL, "ask", "--json", "hello there")
	require.NoError(t, err)
	var res askResult
	decodeData(t, out, &res)
	short := storage.ShortID(res.ConversationID)

	out, err = execute(t, "chats", "show", short)
	require.NoError(t, err)
	assert.Contains(t, out, "reply to hello there in chat")

	_, err = execute(t, "chats", "delete", short)
	require.NoError(t, err)

	_, err = execute(t, "chats", "show", short)
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, ExitCode(err))
}

func TestChatsExportJSON(t *testing.T) {
	home := isolate(t)
	srv, _ := fakeService(t)

	_, err := execute(t, "--url", srv.URL, "ask", "implement a stack")
	require.NoError(t, err)

	dest := filepath.Join(home, "export.json")
	_, err = execute(t, "chats", "export", "--all", "--format", "json", "-o", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "implement a stack")
}

func TestLanguagesCommand(t *testing.T) {
	isolate(t)
	srv, _ := fakeService(t)

	out, err := execute(t, "--url", srv.URL, "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "Python")
	assert.Contains(t, out, "* ")
}

func TestDoctorCommand(t *testing.T) {
	isolate(t)
	srv, _ := fakeService(t)

	out, err := execute(t, "--url", srv.URL, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "codementor healthy")
	assert.Contains(t, out, "[WARN]")
}

func TestDoctorFailsWhenServiceIsDown(t *testing.T) {
	isolate(t)
	srv, _ := fakeService(t)
	url := srv.URL
	srv.Close()

	out, err := execute(t, "--url", url, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "[FAIL]")
}

func TestKeyCommands(t *testing.T) {
	isolate(t)

	out, err := execute(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No API key override")

	_, err = execute(t, "key", "set", "sk-test-1234567890")
	require.NoError(t, err)

	out, err = execute(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, cloud.KeyFingerprint("sk-test-1234567890"))
	assert.NotContains(t, out, "sk-test-1234567890")

	_, err = execute(t, "key", "clear")
	require.NoError(t, err)
	out, err = execute(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No API key override")
}

func TestKeySetReadsStdin(t *testing.T) {
	isolate(t)

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetIn(strings.NewReader("sk-from-stdin\n"))
	root.SetArgs([]string{"key", "set"})
	require.NoError(t, root.Execute())

	out, err := execute(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, cloud.KeyFingerprint("sk-from-stdin"))
}

func TestREPLScript(t *testing.T) {
	isolate(t)
	srv, calls := fakeService(t)

	script := strings.Join([]string{
		"/mode explain",
		"/chats",
		"explain recursion",
		"/bogus",
		"/lang go",
		"/new",
		"/quit",
		"never sent",
	}, "\n") + "\n"

	var out bytes.Buffer
	opts := &globalOptions{url: srv.URL}
	require.NoError(t, runREPL(context.Background(), opts, strings.NewReader(script), &out))

	text := out.String()
	assert.Contains(t, text, "Now in")
	assert.Contains(t, text, "No chats yet.")
	assert.Contains(t, text, "reply to explain recursion in explain")
	assert.Contains(t, text, "unknown command /bogus")
	assert.Contains(t, text, "Language: go")
	assert.Contains(t, text, "Started a new chat")
	assert.NotContains(t, text, "never sent")
	assert.EqualValues(t, 1, calls.Load())
}

func TestREPLAutoSwitchAnnounces(t *testing.T) {
	isolate(t)
	srv, _ := fakeService(t)

	var out bytes.Buffer
	opts := &globalOptions{url: srv.URL, mode: "code"}
	require.NoError(t, runREPL(context.Background(), opts, strings.NewReader("hello there\n"), &out))

	text := out.String()
	assert.Contains(t, text, "switched automatically")
	assert.Contains(t, text, "reply to hello there in chat")
}

func TestREPLOpenChatFromOtherMode(t *testing.T) {
	isolate(t)
	srv, _ := fakeService(t)

	out, err := execute(t, "--url", srv.URL, "ask", "--json", "explain recursion")
	require.NoError(t, err)
	var res askResult
	decodeData(t, out, &res)

	var buf bytes.Buffer
	script := "/open " + storage.ShortID(res.ConversationID) + "\n/mode\n"
	require.NoError(t, runREPL(context.Background(), &globalOptions{url: srv.URL}, strings.NewReader(script), &buf))

	text := buf.String()
	assert.Contains(t, text, `Opened "explain recursion"`)
	assert.Contains(t, text, "Mode: Explain")
}
