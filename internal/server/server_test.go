package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/megamanics/interactive/internal/bridge"
	"github.com/megamanics/interactive/internal/history"
	"github.com/megamanics/interactive/internal/protocol"
	"github.com/megamanics/interactive/internal/server/auth"
	"github.com/megamanics/interactive/internal/transport/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverRig struct {
	messenger *inmem.Messenger
	server    *Server
}

func newServerRig(t *testing.T, jwtSecret string) *serverRig {
	t.Helper()

	messenger := inmem.NewMessenger()
	matcher := bridge.NewMatcher()
	inbound, cancelSub := messenger.Subscribe()
	go func() {
		for msg := range inbound {
			matcher.Observe(msg)
		}
	}()

	connector := bridge.NewConnector(messenger, matcher, nil)
	store, err := history.NewStore(filepath.Join(t.TempDir(), "exchanges.db"))
	require.NoError(t, err)

	srv := NewServer(Options{
		ListenAddr:      ":0",
		JWTSecret:       jwtSecret,
		ExchangeTimeout: 2 * time.Second,
		Connector:       connector,
		History:         store,
	})

	t.Cleanup(func() {
		connector.Dispose()
		cancelSub()
		messenger.Close()
		store.Close()
	})
	return &serverRig{messenger: messenger, server: srv}
}

func (rig *serverRig) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	rig.server.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	body := struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	if v != nil && len(body.Data) > 0 {
		require.NoError(t, json.Unmarshal(body.Data, v))
	}
}

func TestKernelInfoEndpoint(t *testing.T) {
	rig := newServerRig(t, "")
	rig.messenger.OnKind(protocol.KindKernelInfoRequest, func(req *protocol.Message) []*protocol.Message {
		reply, err := protocol.NewReply(req, protocol.KindKernelInfoReply, &protocol.KernelInfoReply{
			Implementation:        "test-kernel",
			ImplementationVersion: "1.0",
			LanguageInfo:          &protocol.LanguageInfo{Name: "py", Version: "3.11"},
		})
		require.NoError(t, err)
		return []*protocol.Message{reply}
	})

	rec := rig.do(httptest.NewRequest("GET", "/api/kernel/info", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	info := protocol.KernelInfo{}
	decodeData(t, rec, &info)
	assert.Equal(t, "test-kernel", info.Implementation)
	assert.Equal(t, "3.11", info.LanguageVersion)
}

func TestExecuteEndpoint(t *testing.T) {
	rig := newServerRig(t, "")
	rig.messenger.OnKind(protocol.KindExecuteRequest, func(req *protocol.Message) []*protocol.Message {
		stream, err := protocol.NewReply(req, protocol.KindStream, &protocol.StreamContent{Name: "stdout", Text: "ok\n"})
		require.NoError(t, err)
		done, err := protocol.NewReply(req, protocol.KindExecuteReply, &protocol.ExecuteReply{Status: protocol.StatusOK})
		require.NoError(t, err)
		return []*protocol.Message{stream, done}
	})

	rec := rig.do(httptest.NewRequest("POST", "/api/kernel/execute", strings.NewReader(`{"code":"print('ok')"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	frames := []struct {
		EventKind string `json:"event_kind"`
	}{}
	decodeData(t, rec, &frames)
	require.Len(t, frames, 2)
	assert.Equal(t, "standard_output_produced", frames[0].EventKind)
	assert.Equal(t, "command_succeeded", frames[1].EventKind)
}

func TestExecuteEndpoint_RejectsEmptyCode(t *testing.T) {
	rig := newServerRig(t, "")
	rec := rig.do(httptest.NewRequest("POST", "/api/kernel/execute", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExchangesEndpoint_RecordsHistory(t *testing.T) {
	rig := newServerRig(t, "")
	require.NoError(t, rig.server.opts.History.Append(&history.Entry{
		CommandKind: "submit_code",
		EventKind:   "command_succeeded",
	}))

	rec := rig.do(httptest.NewRequest("GET", "/api/exchanges?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	entries := []history.Entry{}
	decodeData(t, rec, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "submit_code", entries[0].CommandKind)
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	rig := newServerRig(t, "test-secret")

	rec := rig.do(httptest.NewRequest("GET", "/api/exchanges", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 健康检查不需要认证
	rec = rig.do(httptest.NewRequest("GET", "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_AcceptsBearerToken(t *testing.T) {
	rig := newServerRig(t, "test-secret")

	token, err := auth.GenerateToken("test")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/exchanges", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := rig.do(req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
