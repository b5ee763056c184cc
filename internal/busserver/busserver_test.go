package busserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhel-lightspeed/command-line-assistant/internal/audit"
	"github.com/rhel-lightspeed/command-line-assistant/internal/authz"
	"github.com/rhel-lightspeed/command-line-assistant/internal/backend"
	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
	"github.com/rhel-lightspeed/command-line-assistant/internal/session"
	"github.com/rhel-lightspeed/command-line-assistant/internal/storage"
)

type testEnv struct {
	server     *Server
	socketPath string
	cancel     context.CancelFunc
	done       chan struct{}
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.Open(context.Background(), config.DatabaseConfig{Type: "sqlite", ConnectionString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sessions := session.NewService(store, session.NewMemoryCache())

	auditLogDir := t.TempDir()
	auditLogger, err := audit.New(config.LoggingConfig{
		AuditFilePath:   filepath.Join(auditLogDir, "audit.log"),
		SyslogIdentifer: "test",
		Question:        true,
		Responses:       true,
	})
	require.NoError(t, err)
	t.Cleanup(auditLogger.Shutdown)

	authorizer := authz.New(sessions, auditLogger.Denied)

	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"text":"42"}}`))
	}))
	t.Cleanup(backendServer.Close)
	backendClient := backend.New(config.BackendConfig{Endpoint: backendServer.URL, VerifySSL: true}, slog.Default())

	socketPath := filepath.Join(t.TempDir(), "clad.sock")
	srv := New(socketPath, slog.Default())

	NewChatService(store, sessions, authorizer, backendClient, auditLogger).Register(srv)
	NewHistoryService(store, authorizer, auditLogger).Register(srv)
	NewUserService(sessions, authorizer).Register(srv)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Run(ctx)
		close(done)
	}()

	waitForSocket(t, socketPath)

	return &testEnv{server: srv, socketPath: socketPath, cancel: cancel, done: done}
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}

func call(t *testing.T, socketPath, object, method string, args interface{}) Response {
	t.Helper()
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	argsRaw, err := json.Marshal(args)
	require.NoError(t, err)

	req := Request{Object: object, Method: method, Args: argsRaw, ID: uuid.NewString()}
	line, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(append(line, '\n'))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 65536)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(buf[:n], &resp))
	return resp
}

func TestGetUserIdAllowsCallerActingAsOwnUID(t *testing.T) {
	env := startTestServer(t)
	defer env.cancel()

	ownUID := uint32(os.Getuid())
	resp := call(t, env.socketPath, ObjectUser, MethodGetUserId, map[string]any{"effective_user_id": ownUID})
	require.Nil(t, resp.Error)
	assert.NotEmpty(t, resp.Result)
}

func TestGetUserIdDeniesCallerActingAsOtherUID(t *testing.T) {
	env := startTestServer(t)
	defer env.cancel()

	resp := call(t, env.socketPath, ObjectUser, MethodGetUserId, map[string]any{"effective_user_id": uint32(os.Getuid()) + 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NotAuthorizedUser", resp.Error.Code)
}

func TestUnknownMethodReturnsNotFound(t *testing.T) {
	env := startTestServer(t)
	defer env.cancel()

	resp := call(t, env.socketPath, ObjectUser, "NoSuchMethod", map[string]any{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestCreateChatAndAskQuestionEndToEnd(t *testing.T) {
	env := startTestServer(t)
	defer env.cancel()

	ownUID := uint32(os.Getuid())
	userResp := call(t, env.socketPath, ObjectUser, MethodGetUserId, map[string]any{"effective_user_id": ownUID})
	require.Nil(t, userResp.Error)
	userID, ok := userResp.Result.(string)
	require.True(t, ok)

	chatResp := call(t, env.socketPath, ObjectChat, MethodCreateChat, map[string]any{
		"user_id": userID, "name": "default", "description": "",
	})
	require.Nil(t, chatResp.Error)
	chatID, ok := chatResp.Result.(string)
	require.True(t, ok)

	askResp := call(t, env.socketPath, ObjectChat, MethodAskQuestion, map[string]any{
		"chat_id": chatID, "user_id": userID,
		"message_input": map[string]any{"message": "what is RHEL?"},
	})
	require.Nil(t, askResp.Error)

	historyResp := call(t, env.socketPath, ObjectHistory, MethodGetHistory, map[string]any{"user_id": userID})
	require.NotNil(t, historyResp.Error)
	assert.Equal(t, "HistoryNotAvailable", historyResp.Error.Code)

	writeResp := call(t, env.socketPath, ObjectHistory, MethodWriteHistory, map[string]any{
		"chat_id": chatID, "user_id": userID, "question": "what is RHEL?", "response": "a Linux distribution",
	})
	require.Nil(t, writeResp.Error)

	historyResp = call(t, env.socketPath, ObjectHistory, MethodGetHistory, map[string]any{"user_id": userID})
	require.Nil(t, historyResp.Error)
}

func TestAskQuestionUnknownChatReturnsChatNotFound(t *testing.T) {
	env := startTestServer(t)
	defer env.cancel()

	ownUID := uint32(os.Getuid())
	userResp := call(t, env.socketPath, ObjectUser, MethodGetUserId, map[string]any{"effective_user_id": ownUID})
	require.Nil(t, userResp.Error)
	userID, ok := userResp.Result.(string)
	require.True(t, ok)

	askResp := call(t, env.socketPath, ObjectChat, MethodAskQuestion, map[string]any{
		"chat_id": uuid.NewString(), "user_id": userID,
		"message_input": map[string]any{"message": "hello"},
	})
	require.NotNil(t, askResp.Error)
	assert.Equal(t, "ChatNotFoundError", askResp.Error.Code)
}

func TestIsAllowedAlwaysTrue(t *testing.T) {
	env := startTestServer(t)
	defer env.cancel()

	chatResp := call(t, env.socketPath, ObjectChat, MethodIsAllowed, map[string]any{})
	require.Nil(t, chatResp.Error)
	assert.Equal(t, true, chatResp.Result)

	historyResp := call(t, env.socketPath, ObjectHistory, MethodIsAllowed, map[string]any{})
	require.Nil(t, historyResp.Error)
	assert.Equal(t, true, historyResp.Result)
}
